package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/debpull/debpull/pkg/debpkg"
)

// installConfig is the optional YAML config file an install invocation
// may load to override architecture/recursion/strictness/worker count,
// and to supply source lines instead of the positional <source> argument.
// Its sources list is used only when no <source> argument is given.
type installConfig struct {
	Architecture            string   `yaml:"architecture"`
	Recursive               *bool    `yaml:"recursive"`
	RecursionLimit          int      `yaml:"recursion_limit"`
	ThrowOnFailedDependency bool     `yaml:"throw_on_failed_dependency"`
	Workers                 int      `yaml:"workers"`
	Sources                 []string `yaml:"sources"`
	Packages                []string `yaml:"packages"`
	Destination             string   `yaml:"destination"`
}

// runInstallFromConfig handles `debpull install --config file.yaml` with
// no positional arguments: every input (sources, package names,
// destination) comes from the config file.
func runInstallFromConfig(configPath string) error {
	if configPath == "" {
		return fmt.Errorf("requires <source> <package...> <dest>, or --config with a sources list")
	}

	cfg, err := loadInstallConfig(configPath)
	if err != nil {
		return err
	}
	if len(cfg.Packages) == 0 || cfg.Destination == "" {
		return fmt.Errorf("config %s must set both packages and destination when no positional arguments are given", configPath)
	}

	return runInstall("", cfg.Packages, cfg.Destination, configPath)
}

func loadInstallConfig(path string) (*installConfig, error) {
	if path == "" {
		return &installConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg installConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func runInstall(source string, names []string, dest string, configPath string) error {
	cfg, err := loadInstallConfig(configPath)
	if err != nil {
		return err
	}

	sourceLines, err := resolveInstallSources(source, cfg)
	if err != nil {
		return err
	}
	if len(sourceLines) == 0 {
		return fmt.Errorf("no source lines to install from")
	}

	opts := []debpkg.Option{}
	if cfg.Architecture != "" {
		opts = append(opts, debpkg.WithArchitecture(cfg.Architecture))
	}
	if cfg.Recursive != nil {
		opts = append(opts, debpkg.WithRecursive(*cfg.Recursive))
	}
	if cfg.RecursionLimit > 0 {
		opts = append(opts, debpkg.WithRecursionLimit(cfg.RecursionLimit))
	}
	if cfg.Workers > 0 {
		opts = append(opts, debpkg.WithWorkers(cfg.Workers))
	}
	opts = append(opts, debpkg.WithThrowOnFailedDependency(cfg.ThrowOnFailedDependency))

	installer := debpkg.NewInstaller(sourceLines, opts...)

	log.Info().Strs("packages", names).Str("dest", dest).Msg("resolving and extracting")
	return installer.Install(context.Background(), strings.Join(names, " "), debpkg.SingleDir(dest))
}

// resolveInstallSources prefers an explicit <source> positional argument;
// if it's empty (install was invoked with just --config), falls back to
// the config file's sources list.
func resolveInstallSources(source string, cfg *installConfig) ([]string, error) {
	if source == "" {
		return cfg.Sources, nil
	}

	entries, err := parseSourceInput(source)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.String())
	}
	return lines, nil
}
