// Package config provides configuration utilities for the application.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultMaxFileSizeBytes caps individual inbox files at 25 MiB.
const DefaultMaxFileSizeBytes = 25 * 1024 * 1024

// Pipeline is the immutable path/limit configuration passed into every
// pipeline component. Components never consult ambient global state.
type Pipeline struct {
	RepoRoot            string
	InboxRoot           string
	RunsRoot            string
	MappingAgenciesPath string
	MappingChannelsPath string
	MappingRulesPath    string
	CatalogDBPath       string
	MaxFileSizeBytes    int64
}

// NewPipeline builds a Pipeline rooted at repoRoot with the canonical
// directory layout. Callers may override individual fields afterwards.
func NewPipeline(repoRoot string) (Pipeline, error) {
	root, err := filepath.Abs(ExpandPath(repoRoot))
	if err != nil {
		return Pipeline{}, fmt.Errorf("failed to resolve repo root %q: %w", repoRoot, err)
	}
	return Pipeline{
		RepoRoot:            root,
		InboxRoot:           filepath.Join(root, "data", "inbox"),
		RunsRoot:            filepath.Join(root, "data", "raw", "inbox_run"),
		MappingAgenciesPath: filepath.Join(root, "config", "mapping_agencies.csv"),
		MappingChannelsPath: filepath.Join(root, "config", "mapping_channels.csv"),
		MappingRulesPath:    filepath.Join(root, "config", "mapping_rules.json"),
		CatalogDBPath:       filepath.Join(root, "data", "runs.db"),
		MaxFileSizeBytes:    DefaultMaxFileSizeBytes,
	}, nil
}

// WithinRepo reports whether path resolves to a location inside the
// configured repo root. Inbox and run paths must never escape it.
func (p Pipeline) WithinRepo(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(p.RepoRoot, abs)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

// RelToRepo returns path relative to the repo root with forward slashes,
// for stable manifest entries across platforms.
func (p Pipeline) RelToRepo(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", path, err)
	}
	rel, err := filepath.Rel(p.RepoRoot, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path escapes repo root: %s", path)
	}
	return filepath.ToSlash(rel), nil
}
