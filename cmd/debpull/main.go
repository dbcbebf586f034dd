package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/debpull/debpull/pkg/apt/sources"
)

var options struct {
	format     string
	output     string
	configPath string
}

var rootCmd = &cobra.Command{
	Use:   "debpull",
	Short: "Resolve and extract Debian packages from APT repositories without dpkg",
	Long: `debpull explores APT repositories and can pull a package and its
dependency closure straight onto disk, without dpkg, root, or a package
database. It also lists and summarizes what a repository carries.`,
	Example: `  debpull list "deb http://archive.ubuntu.com/ubuntu/ jammy main"
  debpull stats "deb http://archive.ubuntu.com/ubuntu/ jammy main"
  debpull install "deb http://archive.ubuntu.com/ubuntu/ jammy main" curl ./out`,
}

var listCmd = &cobra.Command{
	Use:   "list <source>",
	Short: "List all packages in the repository",
	Long: `List all packages available in the specified APT repository.
Source can be either a full APT source line or a path to a sources.list file.`,
	Args: cobra.ExactArgs(1),
	Example: `  debpull list "deb http://archive.ubuntu.com/ubuntu/ jammy main"
  debpull list /etc/apt/sources.list
  debpull list /etc/apt/sources.list.d/docker.list --format=json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(args[0], options.format)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <source>",
	Short: "Show repository statistics",
	Long: `Display statistics about the repository including total number of packages,
total size, breakdown by component, and other metadata.`,
	Args: cobra.ExactArgs(1),
	Example: `  debpull stats "deb http://archive.ubuntu.com/ubuntu/ jammy main"
  debpull stats /etc/apt/sources.list --format=json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := parseSourceInput(args[0])
		if err != nil {
			return err
		}
		return runStats(entries, options.format)
	},
}

var installCmd = &cobra.Command{
	Use:   "install <source> <package...> <dest>",
	Short: "Resolve and extract a package plus its dependency closure",
	Long: `Resolve the named packages against the repository, walk their dependency
closure, and extract every .deb's data archive into dest. No post-install
scripts run and no system package database is touched.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) >= 3 {
			return nil
		}
		if len(args) == 0 && options.configPath != "" {
			return nil
		}
		return fmt.Errorf("requires <source> <package...> <dest>, or --config with a sources list")
	},
	Example: `  debpull install "deb http://archive.ubuntu.com/ubuntu/ jammy main" curl ./out
  debpull install --config debpull.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return runInstallFromConfig(options.configPath)
		}
		source := args[0]
		dest := args[len(args)-1]
		names := args[1 : len(args)-1]
		return runInstall(source, names, dest, options.configPath)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&options.format, "format", "f", "text",
		"Output format (text, json, tsv, raw)")
	installCmd.Flags().StringVarP(&options.configPath, "config", "c", "",
		"YAML config file overriding architecture/recursion-limit/strictness")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd == installCmd {
			return nil // install doesn't use --format
		}
		validFormats := []string{"text", "json", "tsv", "raw", "prom"}
		for _, validFormat := range validFormats {
			if options.format == validFormat {
				return nil
			}
		}
		return fmt.Errorf("invalid format %q. Valid formats: %s",
			options.format, strings.Join(validFormats, ", "))
	}

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(installCmd)
}

// parseSourceInput accepts either a path to a sources.list file or a single
// inline source line, and returns the entries it resolves to.
func parseSourceInput(source string) ([]sources.Entry, error) {
	if strings.HasPrefix(source, "/") || strings.HasPrefix(source, "./") || strings.HasPrefix(source, "../") {
		file, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open sources file: %w", err)
		}
		defer file.Close()

		entries, err := sources.ParseSourcesList(file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sources file: %w", err)
		}

		var enabled []sources.Entry
		for _, e := range entries {
			if e.Enabled {
				enabled = append(enabled, e)
			}
		}
		return enabled, nil
	}

	var entries []sources.Entry
	for entry, err := range sources.ParseSources(strings.NewReader(source)) {
		if err != nil {
			return nil, fmt.Errorf("failed to parse source line: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: false,
	})
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Msgf("%v", err)
	}
}
