package apttransport

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
)

// FileTransport reads Release/Packages files from a local or NFS-style
// path, for `file://` source lines. Reachable through DefaultRegistry's
// scheme dispatch alongside HTTPTransport.
type FileTransport struct{}

func NewFileTransport() *FileTransport {
	return &FileTransport{}
}

func (t *FileTransport) Schemes() []string {
	return []string{"file"}
}

func (t *FileTransport) Acquire(ctx context.Context, req *AcquireRequest) (*AcquireResponse, error) {
	path := req.URI.Path
	if req.URI.Host != "" {
		path = filepath.Join(req.URI.Host, path)
	}

	select {
	case <-ctx.Done():
		return nil, &AcquireError{URI: req.URI, Reason: "context cancelled", Err: ctx.Err()}
	default:
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		reason := "failed to stat file"
		if os.IsNotExist(err) {
			reason = "file not found"
		}
		return nil, &AcquireError{URI: req.URI, Reason: reason, Err: err}
	}
	if fileInfo.IsDir() {
		return nil, &AcquireError{URI: req.URI, Reason: "path is a directory", Err: nil}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &AcquireError{URI: req.URI, Reason: "failed to read file", Err: err}
	}

	modTime := fileInfo.ModTime()
	return &AcquireResponse{
		URI:          req.URI,
		Content:      io.NopCloser(bytes.NewReader(content)),
		Size:         int64(len(content)),
		LastModified: &modTime,
	}, nil
}
