package debpkg

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeArArchive manually encodes a standard Unix ar archive (the format
// github.com/blakesmith/ar reads) from an ordered list of named members.
// Writing it by hand, rather than depending on an ar.Writer, keeps the
// test fixtures independent of that library's write-side API.
func writeArArchive(t *testing.T, members []arMember) string {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("!<arch>\n")

	for _, m := range members {
		name := m.name
		if len(name) > 16 {
			t.Fatalf("member name %q too long for fixture helper", name)
		}
		header := fmt.Sprintf("%-16s%-12d%-6d%-6d%-8s%-10d`\n",
			name, 0, 0, 0, "100644", len(m.data))
		buf.WriteString(header)
		buf.Write(m.data)
		if len(m.data)%2 != 0 {
			buf.WriteByte('\n')
		}
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.deb")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

type arMember struct {
	name string
	data []byte
}

// gzipTar builds a gzip-compressed tar archive from a set of regular-file
// entries, archive-relative paths to contents.
func gzipTar(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	_, err := gw.Write(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	return gzBuf.Bytes()
}
