package inbox

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hotelops/recon/internal/config"
	"github.com/hotelops/recon/internal/model"
	"github.com/hotelops/recon/internal/normalize"
	"github.com/hotelops/recon/internal/pipeline"
)

// IngestResult summarizes one completed ingestion run.
type IngestResult struct {
	RunID          string
	RunRoot        string
	ManifestPath   string
	NormalizedRoot string
	SelectedFiles  []model.SelectedInboxFile
	Manifest       model.Manifest
	Reused         bool
}

// Ingestor orchestrates scan, selection, validation, copying,
// normalization, and manifest writing for one run.
type Ingestor struct {
	OnFile func(selected model.SelectedInboxFile)
	Config config.Pipeline
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for hashing: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// buildRunID derives the content-addressed run identifier:
// inbox_<max report date>_<sha256 of the sorted seed lines, first 12 hex>.
// Identical inbox contents always produce the same run id.
func buildRunID(selected []model.SelectedInboxFile, hashes map[string]string) (string, error) {
	if len(selected) == 0 {
		return "", pipeline.Errorf(pipeline.KindScan, "no selected files provided")
	}
	maxDate := selected[0].ReportDate
	for _, s := range selected[1:] {
		if s.ReportDate.After(maxDate) {
			maxDate = s.ReportDate
		}
	}

	seed := make([]string, 0, len(selected))
	for _, s := range selected {
		seed = append(seed, strings.Join([]string{
			s.Source,
			s.ReportType,
			strconv.Itoa(s.Year),
			s.ReportDate.Format("2006-01-02"),
			filepath.Base(s.Path),
			hashes[s.Path],
		}, "|"))
	}
	digest := sha256.Sum256([]byte(strings.Join(seed, "\n")))
	return fmt.Sprintf("inbox_%s_%x", maxDate.Format("2006-01-02"), digest[:6]), nil
}

func (ing *Ingestor) copySelected(selected model.SelectedInboxFile, runRoot string) (string, error) {
	dstDir := filepath.Join(runRoot, selected.Source, selected.ReportType, strconv.Itoa(selected.Year))
	if err := os.MkdirAll(dstDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create run subdirectory: %w", err)
	}
	dst := filepath.Join(dstDir, filepath.Base(selected.Path))

	src, err := os.Open(selected.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open selected file %s: %w", selected.Path, err)
	}
	defer func() { _ = src.Close() }()
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create run copy %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("failed to copy %s: %w", selected.Path, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize run copy %s: %w", dst, err)
	}
	return dst, nil
}

func (ing *Ingestor) normalizeCopies(copied map[string]model.SelectedInboxFile, normalizedRoot string) ([]string, error) {
	byKind := map[string][]string{}
	for path, sel := range copied {
		byKind[sel.Source+"/"+sel.ReportType] = append(byKind[sel.Source+"/"+sel.ReportType], path)
	}
	for _, paths := range byKind {
		sort.Strings(paths)
	}

	var outPaths []string
	if paths := byKind[model.SourceElectra+"/"+model.ReportSalesSummary]; len(paths) > 0 {
		out, err := normalize.NormalizeElectraFiles(paths, model.ReportSalesSummary, normalizedRoot)
		if err != nil {
			return nil, err
		}
		outPaths = append(outPaths, out...)
	}
	if paths := byKind[model.SourceElectra+"/"+model.ReportSalesByAgency]; len(paths) > 0 {
		out, err := normalize.NormalizeElectraFiles(paths, model.ReportSalesByAgency, normalizedRoot)
		if err != nil {
			return nil, err
		}
		outPaths = append(outPaths, out...)
	}
	if paths := byKind[model.SourceHotelRunner+"/"+model.ReportDailySales]; len(paths) > 0 {
		out, err := normalize.NormalizeHotelRunnerFiles(paths, normalizedRoot)
		if err != nil {
			return nil, err
		}
		outPaths = append(outPaths, out...)
	}

	unique := map[string]bool{}
	deduped := outPaths[:0]
	for _, p := range outPaths {
		if unique[p] {
			continue
		}
		unique[p] = true
		deduped = append(deduped, p)
	}
	sort.Strings(deduped)
	return deduped, nil
}

// Ingest runs the full pipeline for the requested years. The run is built
// in a temporary directory and renamed into place only after the manifest
// is written, so a partially-built run is never visible under its run id.
func (ing *Ingestor) Ingest(years []int) (*IngestResult, error) {
	cfg := ing.Config

	selected, err := ScanAndSelectNewest(cfg, years, true)
	if err != nil {
		return nil, err
	}
	if err := ValidateSelectedFiles(selected, cfg.MaxFileSizeBytes); err != nil {
		return nil, err
	}

	hashes := make(map[string]string, len(selected))
	for _, s := range selected {
		h, err := sha256File(s.Path)
		if err != nil {
			return nil, err
		}
		hashes[s.Path] = h
	}
	runID, err := buildRunID(selected, hashes)
	if err != nil {
		return nil, err
	}

	if !cfg.WithinRepo(cfg.RunsRoot) {
		return nil, pipeline.Errorf(pipeline.KindScan, "path escapes repo root: %s", cfg.RunsRoot)
	}
	runRoot := filepath.Join(cfg.RunsRoot, runID)
	manifestPath := filepath.Join(runRoot, "manifest.json")

	// Identical inbox contents re-ingested: the finished run already exists.
	if _, err := os.Stat(manifestPath); err == nil {
		manifest, err := ReadManifest(manifestPath)
		if err != nil {
			return nil, err
		}
		slog.Info("run already ingested", "run_id", runID, "run_root", runRoot)
		return &IngestResult{
			RunID:          runID,
			RunRoot:        runRoot,
			ManifestPath:   manifestPath,
			NormalizedRoot: filepath.Join(runRoot, "normalized"),
			SelectedFiles:  selected,
			Manifest:       *manifest,
			Reused:         true,
		}, nil
	}

	if err := os.MkdirAll(cfg.RunsRoot, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create runs root: %w", err)
	}
	tmpRoot, err := os.MkdirTemp(cfg.RunsRoot, ".tmp-"+runID+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpRoot) }()

	copied := make(map[string]model.SelectedInboxFile, len(selected))
	manifestFiles := make([]model.ManifestFile, 0, len(selected))
	for _, s := range selected {
		copiedPath, err := ing.copySelected(s, tmpRoot)
		if err != nil {
			return nil, err
		}
		copied[copiedPath] = s

		inboxRel, err := cfg.RelToRepo(s.Path)
		if err != nil {
			return nil, pipeline.Wrap(pipeline.KindScan, err, "selected file outside repo root")
		}
		// The manifest records the final location, not the staging path.
		copiedRel := filepath.ToSlash(filepath.Join(
			mustRelToRepo(cfg, runRoot), s.Source, s.ReportType, strconv.Itoa(s.Year), filepath.Base(s.Path)))

		manifestFiles = append(manifestFiles, model.ManifestFile{
			Source:     s.Source,
			ReportType: s.ReportType,
			Year:       s.Year,
			ReportDate: s.ReportDate.Format("2006-01-02"),
			InboxPath:  inboxRel,
			CopiedPath: copiedRel,
			SizeBytes:  s.SizeBytes,
			Sha256:     hashes[s.Path],
		})
		if ing.OnFile != nil {
			ing.OnFile(s)
		}
	}

	normalizedTmp := filepath.Join(tmpRoot, "normalized")
	if err := os.MkdirAll(normalizedTmp, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create normalized root: %w", err)
	}
	normalizedOutputs, err := ing.normalizeCopies(copied, normalizedTmp)
	if err != nil {
		return nil, err
	}

	runRel := mustRelToRepo(cfg, runRoot)
	outputRels := make([]string, 0, len(normalizedOutputs))
	for _, p := range normalizedOutputs {
		outputRels = append(outputRels, filepath.ToSlash(filepath.Join(runRel, "normalized", filepath.Base(p))))
	}

	yearsNorm, err := normalizeYears(years)
	if err != nil {
		return nil, err
	}
	manifest := model.Manifest{
		RunID:                runID,
		Years:                yearsNorm,
		SelectedFiles:        manifestFiles,
		NormalizationOutputs: outputRels,
	}
	if err := writeManifest(filepath.Join(tmpRoot, "manifest.json"), manifest); err != nil {
		return nil, err
	}

	if err := os.Rename(tmpRoot, runRoot); err != nil {
		// A concurrent or earlier run may have finalized the same content.
		if _, statErr := os.Stat(manifestPath); statErr == nil {
			slog.Info("run finalized by a previous ingestion", "run_id", runID)
		} else {
			return nil, fmt.Errorf("failed to finalize run directory %s: %w", runRoot, err)
		}
	}

	slog.Info("ingestion complete",
		"run_id", runID,
		"files", len(manifestFiles),
		"normalized_outputs", len(outputRels))

	return &IngestResult{
		RunID:          runID,
		RunRoot:        runRoot,
		ManifestPath:   manifestPath,
		NormalizedRoot: filepath.Join(runRoot, "normalized"),
		SelectedFiles:  selected,
		Manifest:       manifest,
	}, nil
}

func mustRelToRepo(cfg config.Pipeline, path string) string {
	rel, err := cfg.RelToRepo(path)
	if err != nil {
		return path
	}
	return rel
}

func writeManifest(path string, manifest model.Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a run manifest from disk.
func ReadManifest(path string) (*model.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	var manifest model.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &manifest, nil
}
