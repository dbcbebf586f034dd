package apt

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/url"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/debpull/debpull/pkg/apt/apttransport"
	"github.com/debpull/debpull/pkg/apt/sources"
	"github.com/debpull/debpull/pkg/deb822"
)

// https://www.debian.org/doc/manuals/debian-reference/ch02.en.html#_debian_archive_basics
type Repository struct {
	transport apttransport.Transport
	// registry is non-nil when transport was selected from a Registry
	// (the common case); Acquire calls route through it so the
	// registry's caching wraps every subsequent fetch, not just Mount's.
	// Nil when WithTransport supplied an explicit transport to use as-is.
	registry    *apttransport.Registry
	archiveRoot *url.URL
	distRoot    *url.URL

	// stuff we get from apt-get update
	release  *deb822.Release // set by Mount, refreshed by Update
	packages []deb822.Package
	// file filtering
	components    []string
	architectures []string
}

// curiously, a single source line with multiple components can yield
// multiple repositories, each with their own Release file

// MountOptions contains configuration options for mounting a repository
type MountOptions struct {
	Architectures []string
	Components    []string
	Transport     apttransport.Transport
	Registry      *apttransport.Registry
}

// MountOption is a functional option for configuring Mount behavior
type MountOption func(*MountOptions)

// WithArchitectures sets the target architectures for the repository
func WithArchitectures(architectures ...string) MountOption {
	return func(opts *MountOptions) {
		opts.Architectures = architectures
	}
}

// WithTransport sets a specific transport to use for the repository
func WithTransport(transport apttransport.Transport) MountOption {
	return func(opts *MountOptions) {
		opts.Transport = transport
	}
}

// WithRegistry sets a specific transport registry to use for the repository
func WithRegistry(registry *apttransport.Registry) MountOption {
	return func(opts *MountOptions) {
		opts.Registry = registry
	}
}

func Mount(source sources.Entry, optFns ...MountOption) (*Repository, error) {
	opts := &MountOptions{}
	for _, fn := range optFns {
		fn(opts)
	}

	// Use provided architectures or detect from system
	architectures := opts.Architectures
	if len(architectures) == 0 {
		architectures = detectDebianArch()
	}

	// Use provided transport, or select from registry, or use default registry
	var err error
	var tpt apttransport.Transport
	var registry *apttransport.Registry

	if opts.Transport != nil {
		tpt = opts.Transport
	} else {
		scheme := source.ArchiveRoot.Scheme
		registry = opts.Registry
		if registry == nil {
			registry = apttransport.DefaultRegistry
		}
		tpt, err = registry.Select(scheme)
		if err != nil {
			return nil, fmt.Errorf("unsupported transport %q: %w", scheme, err)
		}
	}

	var distRoot *url.URL
	if slices.Contains([]string{".", "/"}, source.Distribution) {
		// aha! this is a rare case called "Flat Repository Format" described here:
		// https://wiki.debian.org/DebianRepository/Format
		// I've only seen it once in the wild:
		// deb https://pkgs.k8s.io/core:/stable:/v1.28/deb/ /
		distRoot = source.ArchiveRoot.JoinPath(source.Distribution)
	} else {
		// this is the common case
		distRoot = source.ArchiveRoot.JoinPath("dists", source.Distribution)
	}

	r := &Repository{
		transport:     tpt,
		registry:      registry,
		archiveRoot:   source.ArchiveRoot,
		distRoot:      distRoot,
		components:    slices.Clone(source.Components),
		architectures: architectures,
	}

	// Fetch the Release file as part of mounting to validate the repository exists
	ctx := context.Background()
	resp, err := r.acquire(ctx, &apttransport.AcquireRequest{
		// TODO: add support for InRelease file
		URI:     distRoot.JoinPath("Release"),
		Timeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Release file: %w", err)
	}

	// Parse the Release file
	release, err := deb822.ParseRelease(resp.Content)
	resp.Content.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to parse Release file: %w", err)
	}
	r.release = release

	return r, nil
}

// acquire routes a fetch through the repository's registry (so caching
// applies) when one is set, falling back to the bare transport when the
// caller supplied one explicitly via WithTransport.
func (r *Repository) acquire(ctx context.Context, req *apttransport.AcquireRequest) (*apttransport.AcquireResponse, error) {
	if r.registry != nil {
		return r.registry.Acquire(ctx, req)
	}
	return r.transport.Acquire(ctx, req)
}

// Release returns the Release metadata for the repository.
// The Release file is fetched during mounting, so this should always return a valid result.
func (r *Repository) Release() *deb822.Release {
	return r.release
}

// WithComponents sets the components for MountURL (adds to MountOptions)
func WithComponents(components ...string) MountOption {
	return func(opts *MountOptions) {
		opts.Components = components
	}
}

// MountURL is a convenience function that creates a Repository from basic parameters.
// It creates a "deb" type source entry with the specified options.
func MountURL(archiveRoot *url.URL, distribution string, optFns ...MountOption) (*Repository, error) {
	opts := &MountOptions{}
	for _, fn := range optFns {
		fn(opts)
	}

	components := opts.Components
	if len(components) == 0 {
		components = []string{"main"}
	}

	entry := sources.Entry{
		Type:         sources.SourceTypeDeb,
		ArchiveRoot:  archiveRoot,
		Distribution: distribution,
		Components:   components,
		Options:      make(map[string]string),
	}

	return Mount(entry, optFns...)
}

func detectDebianArch() []string {
	switch runtime.GOARCH {
	case "amd64":
		return []string{"amd64", "i386"}
	case "386":
		return []string{"i386"}
	case "arm64":
		return []string{"arm64"}
	case "arm":
		return []string{"arm", "armhf"}
	default:
		// whatever, just use all of them
		return nil
	}
}

func (r *Repository) DistributionRoot() *url.URL {
	return r.distRoot
}

func (r *Repository) Transport() apttransport.Transport {
	return r.transport
}

func (r *Repository) Update(ctx context.Context) (*deb822.Release, error) {
	resp, err := r.acquire(ctx, &apttransport.AcquireRequest{
		// TODO: add support for InRelease file
		URI: r.distRoot.JoinPath("Release"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Release file: %w", err)
	}

	r.release, err = deb822.ParseRelease(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Release file: %w", err)
	}

	return r.release, nil
}

// Fetch acquires loc through the repository's transport and transparently
// decompresses it based on file extension.
func (r *Repository) Fetch(ctx context.Context, loc *url.URL) (io.Reader, *apttransport.AcquireResponse, error) {
	if loc == nil {
		return nil, nil, errors.New("invalid URL")
	}
	acr, err := r.acquire(ctx, &apttransport.AcquireRequest{
		URI: loc,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch repository: %w", err)
	}
	rdr := acr.Content

	// this is where we handle decompression
	switch filepath.Ext(loc.Path) {
	// TODO: support more compression types
	case ".gz":
		rdr, err = gzip.NewReader(acr.Content)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read gzipped file: %w", err)
		}
	default:
		// don't change the rdr
	}

	return rdr, acr, err
}

func (r *Repository) Packages(ctx context.Context) iter.Seq2[*deb822.Package, error] {
	return func(yield func(*deb822.Package, error) bool) {
		if r.release == nil {
			_, err := r.Update(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
		}

		for _, fi := range r.indexes() {
			if fi.Type == "Packages" {
				rdr, _, err := r.Fetch(ctx, r.distRoot.JoinPath(fi.Path))
				if err != nil {
					yield(nil, fmt.Errorf("failed to fetch Packages file %s: %w", fi.Path, err))
					return
				}
				for pkg, err := range deb822.ParsePackages(rdr) {
					if err != nil {
						yield(nil, fmt.Errorf("failed to parse Packages file %s: %w", fi.Path, err))
						return
					}
					yield(pkg, nil)
				}
			}
		}
	}
}

func (r *Repository) indexes() []deb822.FileInfo {
	if r.release == nil {
		panic("release not initialized")
	}

	if len(r.components) == 0 {
		return r.release.GetAvailableFiles()
	}

	var files []deb822.FileInfo
	for _, fi := range r.release.GetAvailableFiles() {
		if !slices.Contains(r.components, fi.Component) {
			continue
		}
		if r.architectures != nil && len(r.architectures) > 0 {
			if !slices.Contains(r.architectures, fi.Architecture) {
				continue
			}
		}
		files = append(files, fi)
	}

	return files
}

// GetAvailableArchitectures returns all architectures available for the specified components
func (r *Repository) GetAvailableArchitectures(components []string) []string {
	if r.release == nil {
		return nil
	}

	archSet := make(map[string]bool)
	for _, fi := range r.release.GetAvailableFiles() {
		if fi.Type == "Packages" {
			// If components are specified, filter by them
			if len(components) > 0 {
				if !slices.Contains(components, fi.Component) {
					continue
				}
			}
			archSet[fi.Architecture] = true
		}
	}

	var archs []string
	for arch := range archSet {
		archs = append(archs, arch)
	}
	slices.Sort(archs)
	return archs
}
