package sources

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"net/url"
	"regexp"
	"strings"
)

// ParseSources parses APT sources.list format and returns an iterator over
// source entries, including disabled (commented-out) ones.
func ParseSources(r io.Reader) iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		scanner := bufio.NewScanner(r)
		lineNumber := 0

		for scanner.Scan() {
			lineNumber++
			line := scanner.Text()

			if strings.TrimSpace(line) == "" {
				continue
			}

			entry, err := parseSourceLine(line, lineNumber)
			if err != nil {
				yield(nil, fmt.Errorf("line %d: %w", lineNumber, err))
				return
			}

			if entry == nil {
				continue // pure comment, not a disabled source line
			}

			if !yield(entry, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(nil, fmt.Errorf("scanner error: %w", err))
		}
	}
}

// ParseSourcesList parses an entire sources.list file into a slice of entries.
func ParseSourcesList(r io.Reader) ([]Entry, error) {
	var entries []Entry
	for entry, err := range ParseSources(r) {
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

var optionsPattern = regexp.MustCompile(`^(\S+)\s+\[([^]]+)]\s*(.*)`)

// ParseSourceLine parses a single enabled sources.list line. Unlike
// ParseSources, it treats a commented-out line as an error rather than as a
// disabled entry.
func ParseSourceLine(line string, lineNumber int) (*Entry, error) {
	if strings.HasPrefix(strings.TrimSpace(line), "#") {
		return nil, fmt.Errorf("commented-out line is not a source entry")
	}
	return parseSourceLine(line, lineNumber)
}

// parseSourceLine parses a single line from sources.list. Returns (nil, nil)
// for lines that are pure comments rather than disabled source entries.
func parseSourceLine(line string, lineNumber int) (*Entry, error) {
	originalLine := line
	line = strings.TrimSpace(line)

	enabled := true
	if strings.HasPrefix(line, "#") {
		enabled = false
		line = strings.TrimSpace(line[1:])
		if line == "" || !isSourceLine(line) {
			return nil, nil
		}
	}

	options := make(map[string]string)
	if match := optionsPattern.FindStringSubmatch(line); match != nil {
		sourceType := match[1]
		optionsStr := match[2]
		rest := match[3]
		line = sourceType + " " + rest

		for _, opt := range strings.Fields(optionsStr) {
			if parts := strings.SplitN(opt, "=", 2); len(parts) == 2 {
				options[parts[0]] = parts[1]
			} else {
				options[opt] = "true"
			}
		}
	}

	fields := strings.Fields(line)
	if len(fields) < 3 {
		return &Entry{
			Enabled:      enabled,
			OriginalLine: originalLine,
			LineNumber:   lineNumber,
		}, fmt.Errorf("invalid source line format: expected at least 3 fields (type, uri, distribution)")
	}

	sourceType := parseSourceType(fields[0])
	if sourceType == SourceTypeUnknown {
		return &Entry{
			Enabled:      enabled,
			OriginalLine: originalLine,
			LineNumber:   lineNumber,
		}, fmt.Errorf("unknown source type: %s", fields[0])
	}

	rawURI := fields[1]
	if err := validateURI(rawURI); err != nil {
		return &Entry{
			Type:         sourceType,
			Enabled:      enabled,
			OriginalLine: originalLine,
			LineNumber:   lineNumber,
		}, fmt.Errorf("invalid URI: %w", err)
	}
	archiveRoot, err := url.Parse(rawURI)
	if err != nil {
		return nil, fmt.Errorf("invalid URI: %w", err)
	}

	distribution := fields[2]

	var components []string
	if len(fields) > 3 {
		components = fields[3:]
	}

	return &Entry{
		Type:         sourceType,
		ArchiveRoot:  archiveRoot,
		Distribution: distribution,
		Components:   components,
		Options:      options,
		Enabled:      enabled,
		OriginalLine: originalLine,
		LineNumber:   lineNumber,
	}, nil
}

// parseSourceType converts string to SourceType
func parseSourceType(typeStr string) SourceType {
	switch strings.ToLower(typeStr) {
	case "deb":
		return SourceTypeDeb
	case "deb-src":
		return SourceTypeSrc
	default:
		return SourceTypeUnknown
	}
}
