package debpkg

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

func TestDecompress_Gzip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte("hello gzip"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	r, err := Decompress(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello gzip", string(content))
}

func TestDecompress_Xz(t *testing.T) {
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = xw.Write([]byte("hello xz"))
	require.NoError(t, err)
	require.NoError(t, xw.Close())

	r, err := Decompress(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello xz", string(content))
}

func TestDecompress_UnrecognizedMagic(t *testing.T) {
	_, err := Decompress(bytes.NewReader([]byte("not a compressed stream")))
	require.Error(t, err)
	var codecErr *CodecError
	assert.ErrorAs(t, err, &codecErr)
}

func TestGunzipBytes(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte("Package: hello\n"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	text, err := gunzipBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Package: hello\n", text)
}
