package debpkg

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultTempDir = "./tmp"

// Installer resolves and extracts packages and their dependency closure
// from a set of APT source lines. It owns the ProviderMap (which has its
// own internal lock), the InstalledSet, the mutex that guards the
// InstalledSet and the lookup-check-insert in claim, and the worker pool
// that walks the dependency graph. Grounded on the original C++ Installer
// class (sourcesList, packageToUrl, installed, installLock).
type Installer struct {
	sourceLines             []string
	architecture            string
	recursive               bool
	recursionLimit          int
	workers                 int
	throwOnFailedDependency bool
	fetcher                 *Fetcher
	pool                    *workPool

	mu           sync.Mutex
	providerMap  *ProviderMap
	installedSet map[string]bool
}

// Option configures an Installer, mirroring the teacher's apt.MountOption
// functional-options pattern.
type Option func(*Installer)

// WithArchitecture sets the single configured architecture string used to
// build index URLs. Default "binary-amd64".
func WithArchitecture(arch string) Option {
	return func(i *Installer) { i.architecture = arch }
}

// WithRecursive controls whether dependencies are walked at all. Default
// true.
func WithRecursive(recursive bool) Option {
	return func(i *Installer) { i.recursive = recursive }
}

// WithThrowOnFailedDependency controls whether a failure on a transitive
// dependency is forwarded out of Wait, or merely logged. Default false.
func WithThrowOnFailedDependency(throw bool) Option {
	return func(i *Installer) { i.throwOnFailedDependency = throw }
}

// WithRecursionLimit bounds the depth of the dependency chain walked from
// a top-level name. Zero (the default) means unbounded. Resolved Open
// Question (spec.md §9): depth of the dependency chain, not total package
// count — see DESIGN.md.
func WithRecursionLimit(limit int) Option {
	return func(i *Installer) { i.recursionLimit = limit }
}

// WithWorkers overrides the worker pool size (default 16).
func WithWorkers(n int) Option {
	return func(i *Installer) { i.workers = n }
}

// NewInstaller builds an Installer over the given APT source lines.
func NewInstaller(sourceLines []string, opts ...Option) *Installer {
	i := &Installer{
		sourceLines:  sourceLines,
		architecture: "binary-amd64",
		recursive:    true,
		workers:      defaultWorkers,
		fetcher:      NewFetcher(60 * time.Second),
		installedSet: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(i)
	}
	// pool and its throwOnFailedDependency flag are built last so option
	// order (e.g. WithWorkers before or after WithThrowOnFailedDependency)
	// never matters.
	i.pool = newWorkPool(i.workers)
	i.pool.throwOnFailedDependency = i.throwOnFailedDependency
	return i
}

// Install resolves names (whitespace-separated top-level package names)
// against the provider map built from the Installer's source lines, then
// walks and extracts the transitive Depends closure into dest. Returns
// once every scheduled task — including every task transitively scheduled
// by it — has completed.
func (i *Installer) Install(ctx context.Context, names string, dest DestinationSpec) error {
	if err := i.ensureProviderMap(ctx); err != nil {
		return err
	}

	var topLevelMu sync.Mutex
	var topLevelErr error

	for _, name := range strings.Fields(names) {
		name := name
		i.pool.schedule(func() error {
			err := i.installOne(ctx, name, dest, 0)
			// Top-level (user-supplied) unknown names always surface,
			// regardless of throwOnFailedDependency (spec.md §4.6).
			if _, unknown := asUnknownPackageError(err); unknown {
				topLevelMu.Lock()
				if topLevelErr == nil {
					topLevelErr = err
				}
				topLevelMu.Unlock()
			}
			return err
		})
	}

	if err := i.pool.wait(); err != nil {
		return err
	}

	topLevelMu.Lock()
	defer topLevelMu.Unlock()
	return topLevelErr
}

func asUnknownPackageError(err error) (*UnknownPackageError, bool) {
	upe, ok := err.(*UnknownPackageError)
	return upe, ok
}

func (i *Installer) ensureProviderMap(ctx context.Context) error {
	i.mu.Lock()
	if i.providerMap != nil {
		i.mu.Unlock()
		return nil
	}
	i.mu.Unlock()

	locations := discoverIndices(i.sourceLines, i.architecture)
	indexPool := newWorkPool(defaultWorkers)
	indexPool.throwOnFailedDependency = true // index-building errors always surface (spec §7)
	providerMap, err := buildProviderMap(ctx, indexPool, i.fetcher, locations)
	if err != nil {
		return err
	}

	i.mu.Lock()
	i.providerMap = providerMap
	i.mu.Unlock()
	return nil
}

// installOne is the install-task: resolve name, claim its artifact URL
// under the install-lock, fetch and extract its data payload, and — if
// recursive — schedule its Depends as further installOne tasks. depth is
// the number of Depends edges walked from the top-level name that started
// this branch.
func (i *Installer) installOne(ctx context.Context, name string, dest DestinationSpec, depth int) error {
	if i.recursionLimit > 0 && depth > i.recursionLimit {
		log.Debug().Str("package", name).Int("depth", depth).Msg("recursion limit reached, cutting branch")
		return nil
	}

	url, alreadyInstalled, err := i.claim(name)
	if err != nil {
		return err
	}
	if alreadyInstalled {
		log.Debug().Str("package", name).Msg("already installed")
		return nil
	}
	log.Info().Str("package", name).Str("url", url).Msg("installed")

	debPath, err := i.fetcher.FetchFile(ctx, url, defaultTempDir)
	if err != nil {
		return err
	}

	ar, err := OpenArReader(debPath)
	if err != nil {
		return &NetworkError{URL: url, Err: err}
	}
	defer ar.Close()

	if err := verifyDebianBinary(ar, name); err != nil {
		return err
	}

	if err := extractDataPayload(ar, name, dest); err != nil {
		return err
	}

	if !i.recursive {
		return nil
	}

	controlText, err := readControlFile(ar, name)
	if err != nil {
		return err
	}

	for _, dep := range extractDepends(controlText) {
		dep := dep
		i.pool.schedule(func() error {
			return i.installOne(ctx, dep, dest, depth+1)
		})
	}
	return nil
}

// claim performs the lookup/check/insert sequence under a single lock.
// This wide lock scope is deliberate (spec.md §9): narrowing it would let
// two workers both pass the InstalledSet check for the same artifact
// before either records it, causing a duplicate extraction.
func (i *Installer) claim(name string) (url string, alreadyInstalled bool, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	url, ok := i.providerMap.Lookup(name)
	if !ok {
		return "", false, &UnknownPackageError{Name: name}
	}

	if i.installedSet[url] {
		return url, true, nil
	}
	i.installedSet[url] = true
	return url, false, nil
}

func verifyDebianBinary(ar *ArReader, name string) error {
	member, err := ar.OpenMember("debian-binary")
	if err != nil {
		return err
	}

	buf := make([]byte, 32)
	n, _ := member.Read(buf)
	version := string(buf[:n])

	if !strings.Contains(version, "2.0") {
		return &BadArchiveError{Package: name, Reason: "has a bad version number " + version}
	}
	return nil
}

// extractDataPayload tries data.tar.xz first, falling back to data.tar.gz
// on any failure, then decompresses and extracts to dest.
func extractDataPayload(ar *ArReader, name string, dest DestinationSpec) error {
	if err := ar.Rewind(); err != nil {
		return &BadArchiveError{Package: name, Reason: "cannot rewind archive"}
	}
	member, err := ar.OpenMember("data.tar.xz")
	if err != nil {
		if rewindErr := ar.Rewind(); rewindErr != nil {
			return &BadArchiveError{Package: name, Reason: "cannot rewind archive"}
		}
		member, err = ar.OpenMember("data.tar.gz")
		if err != nil {
			return &BadArchiveError{Package: name, Reason: "neither data.tar.xz nor data.tar.gz could be opened"}
		}
	}

	decompressed, err := Decompress(member)
	if err != nil {
		return err
	}

	tr := NewTarReader(decompressed)
	tr.Strict = false
	tr.LinksAreCopies = false
	return tr.ExtractAll(dest)
}

// readControlFile tries control.tar.xz first, falling back to
// control.tar.gz, and returns the inner control file's text.
func readControlFile(ar *ArReader, name string) (string, error) {
	if err := ar.Rewind(); err != nil {
		return "", &BadArchiveError{Package: name, Reason: "cannot rewind archive"}
	}
	member, err := ar.OpenMember("control.tar.xz")
	if err != nil {
		if rewindErr := ar.Rewind(); rewindErr != nil {
			return "", &BadArchiveError{Package: name, Reason: "cannot rewind archive"}
		}
		member, err = ar.OpenMember("control.tar.gz")
		if err != nil {
			return "", &BadArchiveError{Package: name, Reason: "neither control.tar.xz nor control.tar.gz could be opened"}
		}
	}

	decompressed, err := Decompress(member)
	if err != nil {
		return "", err
	}

	tr := NewTarReader(decompressed)
	control, err := tr.OpenMember("control")
	if err != nil {
		return "", err
	}

	content, err := io.ReadAll(control)
	if err != nil {
		return "", &CodecError{Op: "reading control file", Err: err}
	}
	return string(content), nil
}
