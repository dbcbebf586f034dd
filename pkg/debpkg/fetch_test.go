package debpkg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_FetchBytes_RetriesThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("third body"))
	}))
	defer srv.Close()

	f := NewFetcher(2 * time.Second)
	body, err := f.FetchBytes(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "third body", string(body))
	assert.Equal(t, int32(3), attempts)
}

func TestFetcher_FetchBytes_ExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(2 * time.Second)
	_, err := f.FetchBytes(context.Background(), srv.URL)
	require.Error(t, err)
	var netErr *NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestFetcher_FetchFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("file contents"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := NewFetcher(5 * time.Second)
	path, err := f.FetchFile(context.Background(), srv.URL+"/pkg/hello_1.0.deb", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "hello_1.0.deb"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file contents", string(content))
}
