package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/hotelops/recon/internal/config"
	"github.com/hotelops/recon/internal/inbox"
	"github.com/hotelops/recon/internal/mapping"
	"github.com/hotelops/recon/internal/model"
	"github.com/hotelops/recon/internal/normalize"
	"github.com/hotelops/recon/internal/storage"
)

// pipelineConfig builds the pipeline paths from viper, with per-path
// overrides for non-standard layouts.
func pipelineConfig() (config.Pipeline, error) {
	repoRoot := viper.GetString("repo_root")
	if repoRoot == "" {
		repoRoot = "."
	}
	cfg, err := config.NewPipeline(repoRoot)
	if err != nil {
		return config.Pipeline{}, err
	}

	if v := viper.GetString("inbox.root"); v != "" {
		cfg.InboxRoot = config.ExpandPath(v)
	}
	if v := viper.GetString("runs.root"); v != "" {
		cfg.RunsRoot = config.ExpandPath(v)
	}
	if v := viper.GetString("mapping.agencies"); v != "" {
		cfg.MappingAgenciesPath = config.ExpandPath(v)
	}
	if v := viper.GetString("mapping.channels"); v != "" {
		cfg.MappingChannelsPath = config.ExpandPath(v)
	}
	if v := viper.GetString("mapping.rules"); v != "" {
		cfg.MappingRulesPath = config.ExpandPath(v)
	}
	if v := viper.GetString("database.path"); v != "" {
		cfg.CatalogDBPath = config.ExpandPath(v)
	}
	if v := viper.GetInt64("inbox.max_file_size_bytes"); v > 0 {
		cfg.MaxFileSizeBytes = v
	}
	return cfg, nil
}

// initCatalog opens the run catalog and applies migrations.
func initCatalog(ctx context.Context, cfg config.Pipeline) (*storage.Catalog, error) {
	catalog, err := storage.NewCatalog(cfg.CatalogDBPath)
	if err != nil {
		return nil, err
	}
	if err := catalog.Migrate(ctx); err != nil {
		_ = catalog.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return catalog, nil
}

// resolveRun locates a run directory and its manifest. An empty runID
// selects the newest cataloged run.
func resolveRun(ctx context.Context, cfg config.Pipeline, runID string) (string, *model.Manifest, error) {
	if runID == "" {
		catalog, err := initCatalog(ctx, cfg)
		if err != nil {
			return "", nil, err
		}
		defer func() { _ = catalog.Close() }()

		runs, err := catalog.ListRuns(ctx)
		if err != nil {
			return "", nil, err
		}
		if len(runs) == 0 {
			return "", nil, fmt.Errorf("no ingested runs in catalog; run 'recon ingest' first")
		}
		runID = runs[0].RunID
	}

	runRoot := filepath.Join(cfg.RunsRoot, runID)
	manifest, err := inbox.ReadManifest(filepath.Join(runRoot, "manifest.json"))
	if err != nil {
		return "", nil, err
	}
	return runRoot, manifest, nil
}

// effectiveYears falls back to the manifest's years when no --year flags
// were given.
func effectiveYears(flagYears []int, manifest *model.Manifest) []int {
	if len(flagYears) > 0 {
		return flagYears
	}
	return manifest.Years
}

func newResolver(cfg config.Pipeline) (*mapping.Resolver, error) {
	return mapping.NewResolver(cfg.MappingAgenciesPath, cfg.MappingChannelsPath, cfg.MappingRulesPath)
}

// loadEnrichedRows reads the normalized data of one run for the given years
// and annotates every row through the mapping engine.
func loadEnrichedRows(normalizedRoot string, years []int, resolver *mapping.Resolver) (electra, hr []mapping.EnrichedRow, err error) {
	if err := normalize.ValidateYearsExist(model.SourceElectra, years, normalizedRoot); err != nil {
		return nil, nil, err
	}
	if err := normalize.ValidateYearsExist(model.SourceHotelRunner, years, normalizedRoot); err != nil {
		return nil, nil, err
	}
	for _, year := range years {
		electraRows, err := normalize.ReadElectraYear(filepath.Join(normalizedRoot, normalize.ElectraYearFile(year)))
		if err != nil {
			return nil, nil, err
		}
		electra = append(electra, resolver.EnrichElectra(electraRows)...)

		hrRows, err := normalize.ReadHotelRunnerYear(filepath.Join(normalizedRoot, normalize.HotelRunnerYearFile(year)))
		if err != nil {
			return nil, nil, err
		}
		hr = append(hr, resolver.EnrichHotelRunner(hrRows)...)
	}
	return electra, hr, nil
}
