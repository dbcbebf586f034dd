package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/debpull/debpull/pkg/apt"
	"github.com/debpull/debpull/pkg/apt/sources"
)

func runStats(entries []sources.Entry, format string) error {
	if len(entries) != 1 {
		return fmt.Errorf("expected 1 source, got %d", len(entries))
	}
	source := entries[0]
	log.Info().Msgf("Getting statistics for: %s", source.RawURI())

	if !source.Enabled {
		return fmt.Errorf("source is disabled")
	}

	stats, err := calculateRepositoryStats(source)
	if err != nil {
		return fmt.Errorf("failed to calculate statistics: %w", err)
	}

	return outputStats(source, stats, format)
}

// RepositoryStats holds statistics about a repository
type RepositoryStats struct {
	Repository struct {
		Origin        string    `json:"origin,omitempty"`
		Label         string    `json:"label,omitempty"`
		Suite         string    `json:"suite,omitempty"`
		Codename      string    `json:"codename,omitempty"`
		Date          time.Time `json:"date"`
		Architectures []string  `json:"architectures"`
		Components    []string  `json:"components"`
	} `json:"repository"`

	Packages struct {
		Total          int            `json:"total"`
		TotalSize      int64          `json:"total_size_bytes"`
		TotalSizeMB    int64          `json:"total_size_mb"`
		ByArchitecture map[string]int `json:"by_architecture"`
		ByComponent    map[string]int `json:"by_component"`
		BySection      map[string]int `json:"by_section"`
		ByPriority     map[string]int `json:"by_priority"`
	} `json:"packages"`
}

func calculateRepositoryStats(source sources.Entry) (*RepositoryStats, error) {
	stats := &RepositoryStats{}

	repo, err := apt.Mount(source)
	if err != nil {
		return nil, fmt.Errorf("failed to mount repository: %w", err)
	}

	release := repo.Release()
	stats.Repository.Origin = release.Origin
	stats.Repository.Label = release.Label
	stats.Repository.Suite = release.Suite
	stats.Repository.Codename = release.Codename
	stats.Repository.Date = release.Date
	stats.Repository.Architectures = release.Architectures
	stats.Repository.Components = release.Components

	stats.Packages.ByArchitecture = make(map[string]int)
	stats.Packages.ByComponent = make(map[string]int)
	stats.Packages.BySection = make(map[string]int)
	stats.Packages.ByPriority = make(map[string]int)

	ctx := context.Background()
	for pkg, err := range repo.Packages(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to walk packages: %w", err)
		}

		stats.Packages.Total++
		stats.Packages.TotalSize += pkg.Size

		if pkg.Architecture != "" {
			stats.Packages.ByArchitecture[pkg.Architecture]++
		}
		if pkg.Section != "" {
			stats.Packages.BySection[pkg.Section]++
		}
		if pkg.Priority != "" {
			stats.Packages.ByPriority[pkg.Priority]++
		}
	}
	for _, component := range source.Components {
		if component == "" {
			continue
		}
		compSource := source
		compSource.Components = []string{component}
		compRepo, err := apt.Mount(compSource)
		if err != nil {
			return nil, fmt.Errorf("failed to mount component %s: %w", component, err)
		}
		for _, err := range compRepo.Packages(ctx) {
			if err != nil {
				return nil, fmt.Errorf("failed to walk packages of component %s: %w", component, err)
			}
			stats.Packages.ByComponent[component]++
		}
	}

	stats.Packages.TotalSizeMB = stats.Packages.TotalSize / (1024 * 1024)

	return stats, nil
}

func outputStats(source sources.Entry, stats *RepositoryStats, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(stats)

	case "tsv":
		return outputStatsTSV(stats)

	case "prom":
		return outputStatsPrometheus(source, stats)

	case "raw":
		return outputStatsRaw(stats)

	case "text":
		fallthrough
	default:
		return outputStatsText(stats)
	}
}

func outputStatsText(stats *RepositoryStats) error {
	fmt.Printf("Repository Statistics\n")
	fmt.Printf("====================\n\n")

	fmt.Printf("Repository Information:\n")
	if stats.Repository.Origin != "" {
		fmt.Printf("  Origin: %s\n", stats.Repository.Origin)
	}
	if stats.Repository.Label != "" {
		fmt.Printf("  Label: %s\n", stats.Repository.Label)
	}
	if stats.Repository.Suite != "" {
		fmt.Printf("  Suite: %s\n", stats.Repository.Suite)
	}
	if stats.Repository.Codename != "" {
		fmt.Printf("  Codename: %s\n", stats.Repository.Codename)
	}
	fmt.Printf("  Date: %s\n", stats.Repository.Date.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  Architectures: %s\n", strings.Join(stats.Repository.Architectures, ", "))
	fmt.Printf("  Components: %s\n", strings.Join(stats.Repository.Components, ", "))

	fmt.Printf("\nPackage Statistics:\n")
	fmt.Printf("  Total Packages: %d\n", stats.Packages.Total)
	fmt.Printf("  Total Size: %d bytes (%.1f MB)\n", stats.Packages.TotalSize, float64(stats.Packages.TotalSize)/(1024*1024))

	if len(stats.Packages.ByArchitecture) > 0 {
		fmt.Printf("\n  By Architecture:\n")
		for arch, count := range stats.Packages.ByArchitecture {
			fmt.Printf("    %s: %d packages\n", arch, count)
		}
	}

	if len(stats.Packages.ByComponent) > 0 {
		fmt.Printf("\n  By Component:\n")
		for component, count := range stats.Packages.ByComponent {
			fmt.Printf("    %s: %d packages\n", component, count)
		}
	}

	if len(stats.Packages.BySection) > 0 {
		fmt.Printf("\n  By Section:\n")
		for section, count := range stats.Packages.BySection {
			fmt.Printf("    %s: %d packages\n", section, count)
		}
	}

	if len(stats.Packages.ByPriority) > 0 {
		fmt.Printf("\n  By Priority:\n")
		for priority, count := range stats.Packages.ByPriority {
			fmt.Printf("    %s: %d packages\n", priority, count)
		}
	}

	return nil
}

func outputStatsTSV(stats *RepositoryStats) error {
	fmt.Printf("field\tvalue\n")
	fmt.Printf("origin\t%s\n", stats.Repository.Origin)
	fmt.Printf("label\t%s\n", stats.Repository.Label)
	fmt.Printf("suite\t%s\n", stats.Repository.Suite)
	fmt.Printf("codename\t%s\n", stats.Repository.Codename)
	fmt.Printf("date\t%s\n", stats.Repository.Date.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Printf("architectures\t%s\n", strings.Join(stats.Repository.Architectures, ","))
	fmt.Printf("components\t%s\n", strings.Join(stats.Repository.Components, ","))
	fmt.Printf("total_packages\t%d\n", stats.Packages.Total)
	fmt.Printf("total_size_bytes\t%d\n", stats.Packages.TotalSize)
	fmt.Printf("total_size_mb\t%d\n", stats.Packages.TotalSizeMB)

	for arch, count := range stats.Packages.ByArchitecture {
		fmt.Printf("arch_%s\t%d\n", arch, count)
	}

	for component, count := range stats.Packages.ByComponent {
		fmt.Printf("component_%s\t%d\n", component, count)
	}

	return nil
}

func formatPrometheusMetric(name string, labels map[string]string, value float64) string {
	var sb strings.Builder
	sb.WriteString(name)
	if len(labels) > 0 {
		sb.WriteRune('{')
		parts := make([]string, 0, len(labels))
		for k, v := range labels {
			parts = append(parts, fmt.Sprintf(`%s=%q`, k, v))
		}
		sb.WriteString(strings.Join(parts, ","))
		sb.WriteRune('}')
	}
	sb.WriteRune(' ')
	sb.WriteString(fmt.Sprintf("%f", value))
	return sb.String()
}

func outputStatsPrometheus(source sources.Entry, stats *RepositoryStats) error {
	purl, err := url.Parse(source.RawURI())
	if err != nil {
		return fmt.Errorf("failed to parse source URI: %w", err)
	}

	labels := map[string]string{
		"host":         purl.Host,
		"path":         purl.Path,
		"distribution": source.Distribution,
		"origin":       stats.Repository.Origin,
		"label":        stats.Repository.Label,
		"suite":        stats.Repository.Suite,
	}

	var metrics []string
	labels["arch"] = "combined"
	metrics = append(metrics, formatPrometheusMetric("apt_repo_total_bytes", labels,
		float64(stats.Packages.TotalSize)))
	metrics = append(metrics, formatPrometheusMetric("apt_repo_total_packages", labels,
		float64(stats.Packages.Total)))

	for arch, pkgCount := range stats.Packages.ByArchitecture {
		labels["arch"] = arch
		metrics = append(metrics, formatPrometheusMetric("apt_repo_total_packages", labels,
			float64(pkgCount)))
	}
	delete(labels, "arch")

	for _, metric := range metrics {
		_, _ = os.Stdout.WriteString(metric + "\n")
	}

	return nil
}

func outputStatsRaw(stats *RepositoryStats) error {
	fmt.Printf("Origin: %s\n", stats.Repository.Origin)
	fmt.Printf("Label: %s\n", stats.Repository.Label)
	fmt.Printf("Suite: %s\n", stats.Repository.Suite)
	fmt.Printf("Codename: %s\n", stats.Repository.Codename)
	fmt.Printf("Date: %s\n", stats.Repository.Date.Format("Mon, 02 Jan 2006 15:04:05 MST"))
	fmt.Printf("Architectures: %s\n", strings.Join(stats.Repository.Architectures, " "))
	fmt.Printf("Components: %s\n", strings.Join(stats.Repository.Components, " "))
	fmt.Printf("Total-Packages: %d\n", stats.Packages.Total)
	fmt.Printf("Total-Size: %d\n", stats.Packages.TotalSize)

	return nil
}
