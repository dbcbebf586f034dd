package debpkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverIndices_S1(t *testing.T) {
	locations := discoverIndices([]string{"deb http://example.test/repo jammy main"}, "binary-amd64")
	require.Len(t, locations, 1)
	assert.Equal(t, "http://example.test/repo/dists/jammy/main/binary-amd64/Packages.gz", locations[0].IndexURL)
}

func TestDiscoverIndices_S2(t *testing.T) {
	locations := discoverIndices([]string{"deb http://a jammy main universe"}, "binary-amd64")
	require.Len(t, locations, 2)
	assert.Equal(t, "http://a/dists/jammy/main/binary-amd64/Packages.gz", locations[0].IndexURL)
	assert.Equal(t, "http://a/dists/jammy/universe/binary-amd64/Packages.gz", locations[1].IndexURL)
}

func TestDiscoverIndices_SkipsNonDebLines(t *testing.T) {
	locations := discoverIndices([]string{"# a comment", "deb-src http://a jammy main"}, "binary-amd64")
	assert.Empty(t, locations)
}

func TestDiscoverIndices_Deduplicates(t *testing.T) {
	locations := discoverIndices([]string{
		"deb http://a jammy main",
		"deb http://a jammy main",
	}, "binary-amd64")
	assert.Len(t, locations, 1)
}

func TestProviderMap_FirstWriterWins(t *testing.T) {
	pm := newProviderMap()
	pm.insertRecord(PackageRecord{Package: "foo-real", Provides: []string{"foo"}, ArtifactURL: "http://a/first.deb"})
	pm.insertRecord(PackageRecord{Package: "foo-other", Provides: []string{"foo"}, ArtifactURL: "http://a/second.deb"})

	url, ok := pm.Lookup("foo")
	require.True(t, ok)
	assert.Equal(t, "http://a/first.deb", url)
}
