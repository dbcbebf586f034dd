package debpkg

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"io"

	"github.com/ulikunitz/xz"
)

var (
	xzMagic   = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
	gzipMagic = []byte{0x1F, 0x8B}
)

// Decompress sniffs r's first bytes for the xz or gzip magic and returns a
// streaming decoder for whichever it finds. r is wrapped in a bufio.Reader
// so the sniffed bytes aren't consumed.
func Decompress(r io.Reader) (io.Reader, error) {
	br := bufio.NewReaderSize(r, 8)

	magic, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return nil, &CodecError{Op: "peeking compressed stream", Err: err}
	}

	switch {
	case hasPrefix(magic, xzMagic):
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, &CodecError{Op: "opening xz stream", Err: err}
		}
		return xr, nil

	case hasPrefix(magic, gzipMagic):
		gr, err := gzip.NewReader(br)
		if err != nil {
			return nil, &CodecError{Op: "opening gzip stream", Err: err}
		}
		return gr, nil

	default:
		return nil, &CodecError{Op: "sniffing compressed stream", Err: errUnrecognizedMagic}
	}
}

// gunzipBytes decompresses a Packages.gz body in one shot. Packages
// indices are always gzip (spec.md §4.5 step 2), unlike the .deb codec
// stack's sniffed Decompress.
func gunzipBytes(body []byte) (string, error) {
	gr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer gr.Close()

	text, err := io.ReadAll(gr)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

func hasPrefix(buf, prefix []byte) bool {
	if len(buf) < len(prefix) {
		return false
	}
	for i, b := range prefix {
		if buf[i] != b {
			return false
		}
	}
	return true
}

var errUnrecognizedMagic = errUnrecognized{}

type errUnrecognized struct{}

func (errUnrecognized) Error() string { return "unrecognized compression magic" }
