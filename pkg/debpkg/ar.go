package debpkg

import (
	"io"
	"os"
	"strings"

	"github.com/blakesmith/ar"
)

// ArReader reads a .deb's outer `ar` container. Member names are matched
// with any trailing "/" and padding whitespace stripped, per the ar
// format's fixed-width header. Because blakesmith/ar only scans forward,
// re-opening a member means seeking the backing file to its start and
// re-scanning — that's what Rewind + OpenMember does.
type ArReader struct {
	f *os.File
}

// OpenArReader opens path as an ar archive. The returned ArReader owns f
// and must be closed by the caller via Close.
func OpenArReader(path string) (*ArReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &ArReader{f: f}, nil
}

// Close releases the backing file.
func (r *ArReader) Close() error {
	return r.f.Close()
}

// Rewind seeks the backing file back to its start, so OpenMember can scan
// from the beginning again.
func (r *ArReader) Rewind() error {
	_, err := r.f.Seek(0, io.SeekStart)
	return err
}

// OpenMember scans forward from the archive's current position for a
// member named name, returning a reader bounded to that member's size.
// Callers that need to find a second member after this one must Rewind
// first.
func (r *ArReader) OpenMember(name string) (io.Reader, error) {
	reader := ar.NewReader(r.f)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			return nil, &BadArchiveError{Reason: "member " + name + " not found"}
		}
		if err != nil {
			return nil, &CodecError{Op: "reading ar entry", Err: err}
		}

		if normalizeArName(header.Name) == name {
			return io.LimitReader(reader, header.Size), nil
		}
	}
}

func normalizeArName(name string) string {
	return strings.TrimRight(strings.TrimSpace(name), "/")
}
