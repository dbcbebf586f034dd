package debpkg

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// IndexLocation is one (base-url, index-url) pair to fetch and parse.
type IndexLocation struct {
	BaseURL  string
	IndexURL string
}

// ProviderMap maps a package-or-virtual name to its canonical artifact
// URL. Insertion is first-writer-wins per name: once set, a name's value
// never changes (I1). Guarded by its own mutex (a plain lock, not a
// reader-writer split), separate from the Installer's lock over
// InstalledSet.
type ProviderMap struct {
	mu    sync.Mutex
	byURL map[string]string
}

func newProviderMap() *ProviderMap {
	return &ProviderMap{byURL: make(map[string]string)}
}

// insertRecord registers every name in rec.Names() under a single critical
// section, skipping names already present.
func (p *ProviderMap) insertRecord(rec PackageRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, name := range rec.Names() {
		if name == "" {
			continue
		}
		if _, exists := p.byURL[name]; !exists {
			p.byURL[name] = rec.ArtifactURL
		}
	}
}

// Lookup returns the artifact URL registered for name, if any.
func (p *ProviderMap) Lookup(name string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	url, ok := p.byURL[name]
	return url, ok
}

// Len reports how many names are currently registered.
func (p *ProviderMap) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byURL)
}

// discoverIndices tokenizes each source line by whitespace. The first
// token must be the literal "deb"; other lines are skipped (tolerated,
// per ConfigError's silent-skip policy). Remaining tokens are base-url,
// distribution, then one or more components — one IndexLocation is
// emitted per component, de-duplicated across the whole source set.
func discoverIndices(sourceLines []string, architecture string) []IndexLocation {
	seen := make(map[string]bool)
	var locations []IndexLocation

	for _, line := range sourceLines {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != "deb" {
			log.Debug().Str("line", line).Msg("skipping malformed source line")
			continue
		}

		baseURL := strings.TrimSuffix(fields[1], "/")
		distribution := fields[2]
		components := fields[3:]
		if len(components) == 0 {
			continue
		}

		for _, component := range components {
			indexURL := baseURL + "/dists/" + distribution + "/" + component + "/" + architecture + "/Packages.gz"
			if seen[indexURL] {
				continue
			}
			seen[indexURL] = true
			locations = append(locations, IndexLocation{BaseURL: baseURL, IndexURL: indexURL})
		}
	}

	return locations
}

// buildProviderMap fetches and parses every IndexLocation concurrently on
// pool, writing records into the returned ProviderMap under its own lock.
// Returns once the pool has reached quiescence for this phase.
func buildProviderMap(ctx context.Context, pool *workPool, fetcher *Fetcher, locations []IndexLocation) (*ProviderMap, error) {
	providerMap := newProviderMap()

	for _, loc := range locations {
		loc := loc
		pool.schedule(func() error {
			body, err := fetcher.FetchBytes(ctx, loc.IndexURL)
			if err != nil {
				return err
			}

			text, err := gunzipBytes(body)
			if err != nil {
				return &CodecError{Op: "decompressing " + loc.IndexURL, Err: err}
			}

			for _, rec := range parseIndex(text, loc.BaseURL) {
				providerMap.insertRecord(rec)
			}
			return nil
		})
	}

	if err := pool.wait(); err != nil {
		return nil, err
	}
	return providerMap, nil
}
