package debpkg

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// TarReader reads a POSIX tar stream. Strict controls whether an
// unsupported entry type raises CodecError or is skipped; LinksAreCopies
// controls whether hardlink entries are materialized as real hardlinks or
// as independent file copies.
type TarReader struct {
	r              *tar.Reader
	Strict         bool
	LinksAreCopies bool
}

// NewTarReader wraps r, typically the output of Decompress.
func NewTarReader(r io.Reader) *TarReader {
	return &TarReader{r: tar.NewReader(r)}
}

// OpenMember scans forward for a member named name and returns its
// content as a reader. Used to pull the `control` file out of an already
// routed control.tar.* stream.
func (t *TarReader) OpenMember(name string) (io.Reader, error) {
	for {
		header, err := t.r.Next()
		if err == io.EOF {
			return nil, &BadArchiveError{Reason: "member " + name + " not found in tar"}
		}
		if err != nil {
			return nil, &CodecError{Op: "reading tar entry", Err: err}
		}

		if cleanEntryPath(header.Name) == name {
			return t.r, nil
		}
	}
}

// ExtractAll walks every entry and writes it according to dest. Entries
// skipped by dest's routing (no matching prefix) are silently dropped.
func (t *TarReader) ExtractAll(dest DestinationSpec) error {
	extracted := make(map[string]string) // archive path -> extracted filesystem path, for hardlink resolution

	for {
		header, err := t.r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &CodecError{Op: "reading tar entry", Err: err}
		}

		entryPath := cleanEntryPath(header.Name)
		if entryPath == "" || entryPath == "." {
			continue
		}

		targetDir, relPath, ok := dest.route(entryPath)
		if !ok {
			continue
		}
		targetPath := filepath.Join(targetDir, relPath)

		if err := t.extractEntry(header, targetPath, entryPath, extracted); err != nil {
			if t.Strict {
				return err
			}
		} else if header.Typeflag == tar.TypeReg {
			extracted[entryPath] = targetPath
		}
	}
}

func (t *TarReader) extractEntry(header *tar.Header, targetPath, entryPath string, extracted map[string]string) error {
	switch header.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(targetPath, 0o755); err != nil {
			return &FilesystemError{Path: targetPath, Err: err}
		}
		return nil

	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			return &FilesystemError{Path: targetPath, Err: err}
		}
		os.Remove(targetPath)
		if err := os.Symlink(header.Linkname, targetPath); err != nil {
			return &FilesystemError{Path: targetPath, Err: err}
		}
		return nil

	case tar.TypeLink:
		if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			return &FilesystemError{Path: targetPath, Err: err}
		}
		linkTarget, ok := extracted[cleanEntryPath(header.Linkname)]
		if !ok {
			// dangling hardlink: the target wasn't extracted (or hasn't
			// been yet), skip it
			return nil
		}
		os.Remove(targetPath)
		if t.LinksAreCopies {
			return copyFile(linkTarget, targetPath, os.FileMode(header.Mode))
		}
		if err := os.Link(linkTarget, targetPath); err != nil {
			return &FilesystemError{Path: targetPath, Err: err}
		}
		return nil

	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			return &FilesystemError{Path: targetPath, Err: err}
		}
		out, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
		if err != nil {
			return &FilesystemError{Path: targetPath, Err: err}
		}
		defer out.Close()

		if _, err := io.Copy(out, t.r); err != nil {
			return &FilesystemError{Path: targetPath, Err: err}
		}
		return nil

	default:
		if t.Strict {
			return &CodecError{Op: "unsupported tar entry type", Err: errUnsupportedEntry{entryPath}}
		}
		return nil
	}
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return &FilesystemError{Path: src, Err: err}
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return &FilesystemError{Path: dst, Err: err}
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func cleanEntryPath(name string) string {
	return strings.TrimPrefix(name, "./")
}

type errUnsupportedEntry struct {
	path string
}

func (e errUnsupportedEntry) Error() string {
	return "unsupported entry type at " + e.path
}
