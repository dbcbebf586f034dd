package debpkg

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const maxFetchAttempts = 3

// Fetcher performs retried HTTP GETs, returning either an in-memory body
// or a path to a downloaded file.
type Fetcher struct {
	client *http.Client
}

// NewFetcher builds a Fetcher with the given per-attempt timeout. Redirects
// are followed transparently via the default http.Client policy.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// FetchBytes GETs rawURL, retrying up to maxFetchAttempts times on any
// transport error or non-2xx status, with no backoff between attempts.
func (f *Fetcher) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	client := f.client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	var lastErr error
	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		body, err := f.attemptFetch(ctx, client, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		log.Debug().Str("url", rawURL).Int("attempt", attempt+1).Err(err).Msg("fetch-bytes attempt failed")
	}

	return nil, &NetworkError{URL: rawURL, Err: lastErr}
}

func (f *Fetcher) attemptFetch(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// FetchFile GETs rawURL into {dir}/{basename(path)}, creating dir if
// missing and overwriting any existing file there. Uses the same retry
// policy as FetchBytes and the same client, so a Fetcher from NewFetcher
// applies one per-attempt timeout to both; only a Fetcher without a client
// gets the longer 20s default here versus 5s in FetchBytes.
func (f *Fetcher) FetchFile(ctx context.Context, rawURL, dir string) (string, error) {
	client := f.client
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &FilesystemError{Path: dir, Err: err}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", &ConfigError{Line: rawURL, Reason: "not a valid URL"}
	}
	dest := filepath.Join(dir, path.Base(parsed.Path))

	var lastErr error
	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		if err := f.attemptDownload(ctx, client, rawURL, dest); err != nil {
			lastErr = err
			log.Debug().Str("url", rawURL).Int("attempt", attempt+1).Err(err).Msg("fetch-file attempt failed")
			continue
		}
		return dest, nil
	}

	return "", &NetworkError{URL: rawURL, Err: lastErr}
}

func (f *Fetcher) attemptDownload(ctx context.Context, client *http.Client, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

// VerifySHA256 checks path's contents against an expected hex-encoded
// SHA256 digest. Unused by the core resolver: spec.md performs no
// signature/authenticity verification, so nothing calls this by default.
// Exposed for callers that want it.
func VerifySHA256(path, expectedHex string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}

	got := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(got, expectedHex) {
		return fmt.Errorf("sha256 mismatch: got %s, want %s", got, expectedHex)
	}
	return nil
}
