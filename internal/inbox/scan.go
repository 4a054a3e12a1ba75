// Package inbox scans, selects, validates, and ingests export files
// dropped into the inbox folder.
package inbox

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/hotelops/recon/internal/config"
	"github.com/hotelops/recon/internal/model"
	"github.com/hotelops/recon/internal/pipeline"
)

var (
	electraNameRe     = regexp.MustCompile(`^electra_(sales_summary|sales_by_agency)_(\d{4}-\d{2}-\d{2})\.(csv|xlsx|xlsm)$`)
	hotelRunnerNameRe = regexp.MustCompile(`^hotelrunner_daily_sales_(\d{4}-\d{2}-\d{2})\.(csv|xlsx|xlsm)$`)
)

// RequiredReportKeys are the (source, report_type) pairs that must be
// present for every requested year when completeness is enforced.
var RequiredReportKeys = [][2]string{
	{model.SourceElectra, model.ReportSalesSummary},
	{model.SourceElectra, model.ReportSalesByAgency},
	{model.SourceHotelRunner, model.ReportDailySales},
}

func parseReportDate(raw, filename string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, pipeline.Wrap(pipeline.KindScan, err,
			"invalid date in filename %q: expected YYYY-MM-DD", filename)
	}
	return d, nil
}

// parseCandidateFilename enforces the strict per-source filename grammar.
// Any non-conforming name is a hard error: silently skipping a misnamed
// financial export is worse than stopping.
func parseCandidateFilename(source, filename string) (string, time.Time, error) {
	switch source {
	case model.SourceElectra:
		m := electraNameRe.FindStringSubmatch(filename)
		if m == nil {
			return "", time.Time{}, pipeline.Errorf(pipeline.KindScan,
				"invalid inbox filename for electra: %s; expected electra_<report>_<YYYY-MM-DD>.<csv|xlsx|xlsm> where report in [sales_summary, sales_by_agency]",
				filename)
		}
		d, err := parseReportDate(m[2], filename)
		return m[1], d, err
	case model.SourceHotelRunner:
		m := hotelRunnerNameRe.FindStringSubmatch(filename)
		if m == nil {
			return "", time.Time{}, pipeline.Errorf(pipeline.KindScan,
				"invalid inbox filename for hotelrunner: %s; expected hotelrunner_daily_sales_<YYYY-MM-DD>.<csv|xlsx|xlsm>",
				filename)
		}
		d, err := parseReportDate(m[1], filename)
		return model.ReportDailySales, d, err
	}
	return "", time.Time{}, pipeline.Errorf(pipeline.KindScan, "unsupported inbox source: %s", source)
}

func scanSource(cfg config.Pipeline, source string) ([]model.InboxCandidate, error) {
	sourceRoot := filepath.Join(cfg.InboxRoot, source)
	info, err := os.Stat(sourceRoot)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, pipeline.Wrap(pipeline.KindScan, err, "unable to stat inbox source path: %s", sourceRoot)
	}
	if !info.IsDir() {
		return nil, pipeline.Errorf(pipeline.KindScan, "inbox source path is not a directory: %s", sourceRoot)
	}

	entries, err := os.ReadDir(sourceRoot)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.KindScan, err, "unable to read inbox source: %s", sourceRoot)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var candidates []model.InboxCandidate
	for _, entry := range entries {
		path := filepath.Join(sourceRoot, entry.Name())
		if !cfg.WithinRepo(path) {
			return nil, pipeline.Errorf(pipeline.KindScan, "path escapes repo root: %s", path)
		}
		if entry.IsDir() {
			return nil, pipeline.Errorf(pipeline.KindScan,
				"unexpected directory inside inbox source (%s): %s", source, entry.Name())
		}

		reportType, reportDate, err := parseCandidateFilename(source, entry.Name())
		if err != nil {
			return nil, err
		}
		stat, err := entry.Info()
		if err != nil {
			return nil, pipeline.Wrap(pipeline.KindScan, err, "unable to stat inbox file: %s", path)
		}
		candidates = append(candidates, model.InboxCandidate{
			Source:     source,
			ReportType: reportType,
			ReportDate: reportDate,
			Path:       path,
			MTime:      stat.ModTime(),
			SizeBytes:  stat.Size(),
		})
	}
	return candidates, nil
}

// ScanCandidates walks both inbox source folders and returns every strictly
// parsed candidate, in a deterministic order.
func ScanCandidates(cfg config.Pipeline) ([]model.InboxCandidate, error) {
	if !cfg.WithinRepo(cfg.InboxRoot) {
		return nil, pipeline.Errorf(pipeline.KindScan, "path escapes repo root: %s", cfg.InboxRoot)
	}

	var candidates []model.InboxCandidate
	for _, source := range []string{model.SourceElectra, model.SourceHotelRunner} {
		batch, err := scanSource(cfg, source)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, batch...)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.ReportType != b.ReportType {
			return a.ReportType < b.ReportType
		}
		if !a.ReportDate.Equal(b.ReportDate) {
			return a.ReportDate.Before(b.ReportDate)
		}
		return filepath.Base(a.Path) < filepath.Base(b.Path)
	})
	return candidates, nil
}
