package debpkg

import "strings"

// PrefixMapping routes archive entries whose path starts with Prefix into
// Dir, with Prefix stripped from the entry's path.
type PrefixMapping struct {
	Prefix string
	Dir    string
}

// DestinationSpec is either a single directory (Dir non-empty, Prefixes
// nil) or an ordered list of prefix mappings.
type DestinationSpec struct {
	Dir      string
	Prefixes []PrefixMapping
}

// SingleDir builds a DestinationSpec that writes every entry under dir.
func SingleDir(dir string) DestinationSpec {
	return DestinationSpec{Dir: dir}
}

// PrefixList builds a DestinationSpec that routes entries by prefix,
// first match wins.
func PrefixList(mappings ...PrefixMapping) DestinationSpec {
	return DestinationSpec{Prefixes: mappings}
}

// route resolves an archive-relative entry path to a target directory and
// the path (relative to that directory) it should be written at. ok is
// false when a prefix list is configured and no prefix matches — the
// entry must be skipped silently.
//
// entryPath arrives with its leading "./" already stripped (the
// convention cleanEntryPath produces). Prefix is normalized the same way
// before matching, so callers can still write it with a leading "./" —
// the convention spec.md's own examples use — and still have it match.
func (d DestinationSpec) route(entryPath string) (targetDir, relPath string, ok bool) {
	if d.Prefixes == nil {
		return d.Dir, entryPath, true
	}

	for _, m := range d.Prefixes {
		prefix := strings.TrimPrefix(m.Prefix, "./")
		if strings.HasPrefix(entryPath, prefix) {
			return m.Dir, strings.TrimPrefix(entryPath, prefix), true
		}
	}

	return "", "", false
}
