package debpkg

import (
	"regexp"
	"strings"
)

var (
	packageFieldRe  = regexp.MustCompile(`Package:\s?([^\r\n]*)`)
	filenameFieldRe = regexp.MustCompile(`Filename:\s?([^\r\n]*)`)
	providesFieldRe = regexp.MustCompile(`Provides:\s?([^\r\n]*)`)
	sourceFieldRe   = regexp.MustCompile(`Source:\s?([^\r\n]*)`)
	dependsFieldRe  = regexp.MustCompile(`Depends:\s?([^\r\n]*)`)
	depQualifierRe  = regexp.MustCompile(`(?:\s+)|(?:\(.*\))|(?::.*)`)
)

// PackageRecord is one parsed block of a Packages index: the fields
// spec.md §4.4 names, plus the artifact URL resolved against the index's
// base URL.
type PackageRecord struct {
	Package     string
	Filename    string
	ArtifactURL string
	Provides    []string
	Source      []string
	Depends     []string
}

// Names returns the set of identifiers this record should register in a
// ProviderMap: Package, plus every Provides and Source entry.
func (p PackageRecord) Names() []string {
	names := make([]string, 0, 1+len(p.Provides)+len(p.Source))
	names = append(names, p.Package)
	names = append(names, p.Provides...)
	names = append(names, p.Source...)
	return names
}

// parseIndex splits decompressed Packages text into \n\n-separated blocks
// and extracts a PackageRecord from each. Blocks missing Package or
// Filename are skipped. baseURL is the repository root the artifact URL
// is resolved against.
func parseIndex(text, baseURL string) []PackageRecord {
	var records []PackageRecord

	for _, block := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}

		pkg, ok := firstMatch(packageFieldRe, block)
		if !ok {
			continue
		}
		filename, ok := firstMatch(filenameFieldRe, block)
		if !ok {
			continue
		}

		records = append(records, PackageRecord{
			Package:     strings.TrimSpace(pkg),
			Filename:    strings.TrimSpace(filename),
			ArtifactURL: strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimSpace(filename),
			Provides:    splitDependencyExpression(fieldOrEmpty(providesFieldRe, block)),
			Source:      splitDependencyExpression(fieldOrEmpty(sourceFieldRe, block)),
			Depends:     splitDependencyExpression(fieldOrEmpty(dependsFieldRe, block)),
		})
	}

	return records
}

// extractDepends pulls the Depends field out of a raw control file's text,
// returning the normalized dependency atoms. Grounded on the original's
// getFields(controlFile, "Depends").
func extractDepends(controlText string) []string {
	return splitDependencyExpression(fieldOrEmpty(dependsFieldRe, controlText))
}

func firstMatch(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func fieldOrEmpty(re *regexp.Regexp, text string) string {
	v, _ := firstMatch(re, text)
	return v
}

// splitDependencyExpression splits a raw Depends/Provides/Source value on
// the alternatives "," and "|" (treated as equivalent separators), then
// strips whitespace, parenthesized version constraints, and architecture
// qualifiers from each atom.
func splitDependencyExpression(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var atoms []string
	for _, field := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '|'
	}) {
		normalized := depQualifierRe.ReplaceAllString(field, "")
		if normalized != "" {
			atoms = append(atoms, normalized)
		}
	}
	return atoms
}
