package sources

import (
	"fmt"
	"net/url"
	"strings"
)

// SourceType represents the type of APT source entry
type SourceType string

const (
	SourceTypeDeb     SourceType = "deb"     // Binary packages
	SourceTypeSrc     SourceType = "deb-src" // Source packages
	SourceTypeUnknown SourceType = "unknown"
)

// Entry represents a single APT source entry from sources.list or a deb822
// sources file.
type Entry struct {
	// Entry type (deb or deb-src)
	Type SourceType `json:"type"`

	// Repository root, parsed from the entry's URI field
	ArchiveRoot *url.URL `json:"-"`

	// Distribution/Suite (e.g., "stable", "jammy", "bookworm")
	Distribution string `json:"distribution"`

	// Components (e.g., "main", "contrib", "non-free")
	Components []string `json:"components,omitempty"`

	// Options in square brackets (e.g., arch=amd64, trusted=yes)
	Options map[string]string `json:"options,omitempty"`

	// Whether this entry is enabled (true) or commented out (false)
	Enabled bool `json:"enabled"`

	// Original line text for reference
	OriginalLine string `json:"original_line,omitempty"`

	// Line number in the source file
	LineNumber int `json:"line_number,omitempty"`
}

// RawURI returns the entry's archive root as a string, or "" if unset.
func (e Entry) RawURI() string {
	if e.ArchiveRoot == nil {
		return ""
	}
	return e.ArchiveRoot.String()
}

// HasComponent checks if an entry contains a specific component
func (e Entry) HasComponent(component string) bool {
	for _, comp := range e.Components {
		if comp == component {
			return true
		}
	}
	return false
}

// GetOption returns the value of a specific option, with a default value if not found
func (e Entry) GetOption(key, defaultValue string) string {
	if value, exists := e.Options[key]; exists {
		return value
	}
	return defaultValue
}

// HasOption checks if an entry has a specific option set
func (e Entry) HasOption(key string) bool {
	_, exists := e.Options[key]
	return exists
}

// String renders the entry back into sources.list format.
func (e Entry) String() string {
	prefix := ""
	if !e.Enabled {
		prefix = "# "
	}

	optionsStr := ""
	if len(e.Options) > 0 {
		var opts []string
		for key, value := range e.Options {
			if value == "true" {
				opts = append(opts, key)
			} else {
				opts = append(opts, fmt.Sprintf("%s=%s", key, value))
			}
		}
		optionsStr = fmt.Sprintf("[%s] ", strings.Join(opts, " "))
	}

	parts := []string{string(e.Type), e.RawURI(), e.Distribution}
	parts = append(parts, e.Components...)

	return fmt.Sprintf("%s%s%s", prefix, optionsStr, strings.Join(parts, " "))
}

// validateURI validates that the URI is well-formed
func validateURI(uri string) error {
	if uri == "" {
		return fmt.Errorf("URI cannot be empty")
	}

	if uri == "/" {
		return nil // Root directory is valid for some contexts
	}

	if _, err := url.Parse(uri); err != nil {
		return fmt.Errorf("malformed URI: %w", err)
	}

	return nil
}

// isSourceLine checks if a line looks like a source line (starts with deb or deb-src)
func isSourceLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	firstField := fields[0]

	if strings.HasPrefix(firstField, "[") {
		for _, field := range fields {
			if !strings.HasPrefix(field, "[") && !strings.HasSuffix(field, "]") {
				firstField = field
				break
			}
		}
	}

	return parseSourceType(firstField) != SourceTypeUnknown
}
