package inbox

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/hotelops/recon/internal/config"
	"github.com/hotelops/recon/internal/model"
	"github.com/hotelops/recon/internal/pipeline"
)

func normalizeYears(years []int) ([]int, error) {
	if len(years) == 0 {
		return nil, pipeline.Errorf(pipeline.KindScan, "at least one year is required")
	}
	set := map[int]bool{}
	for _, y := range years {
		set[y] = true
	}
	out := make([]int, 0, len(set))
	for y := range set {
		out = append(out, y)
	}
	sort.Ints(out)
	return out, nil
}

// SelectNewestForYears picks the newest candidate per (source, report_type,
// year). Newest means: report date, then file mtime, then filename, all
// descending, so selection is deterministic regardless of directory order.
func SelectNewestForYears(candidates []model.InboxCandidate, years []int, requireComplete bool) ([]model.SelectedInboxFile, error) {
	yearsNorm, err := normalizeYears(years)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, pipeline.Errorf(pipeline.KindNoFiles, "no inbox files found")
	}
	wantYear := map[int]bool{}
	for _, y := range yearsNorm {
		wantYear[y] = true
	}

	type groupKey struct {
		source     string
		reportType string
		year       int
	}
	grouped := map[groupKey][]model.InboxCandidate{}
	for _, c := range candidates {
		if !wantYear[c.Year()] {
			continue
		}
		key := groupKey{c.Source, c.ReportType, c.Year()}
		grouped[key] = append(grouped[key], c)
	}

	var selected []model.SelectedInboxFile
	for _, items := range grouped {
		sort.Slice(items, func(i, j int) bool {
			a, b := items[i], items[j]
			if !a.ReportDate.Equal(b.ReportDate) {
				return a.ReportDate.After(b.ReportDate)
			}
			if !a.MTime.Equal(b.MTime) {
				return a.MTime.After(b.MTime)
			}
			return filepath.Base(a.Path) > filepath.Base(b.Path)
		})
		newest := items[0]
		selected = append(selected, model.SelectedInboxFile{
			Source:     newest.Source,
			ReportType: newest.ReportType,
			ReportDate: newest.ReportDate,
			Year:       newest.Year(),
			Path:       newest.Path,
			MTime:      newest.MTime,
			SizeBytes:  newest.SizeBytes,
		})
	}

	sortSelected(selected)

	if requireComplete {
		have := map[string]bool{}
		for _, s := range selected {
			have[fmt.Sprintf("%s:%s:%d", s.Source, s.ReportType, s.Year)] = true
		}
		var missing []string
		for _, year := range yearsNorm {
			for _, key := range RequiredReportKeys {
				id := fmt.Sprintf("%s:%s:%d", key[0], key[1], year)
				if !have[id] {
					missing = append(missing, id)
				}
			}
		}
		if len(missing) > 0 {
			seenYears := map[int]bool{}
			for _, c := range candidates {
				seenYears[c.Year()] = true
			}
			available := make([]int, 0, len(seenYears))
			for y := range seenYears {
				available = append(available, y)
			}
			sort.Ints(available)
			availableText := make([]string, 0, len(available))
			for _, y := range available {
				availableText = append(availableText, strconv.Itoa(y))
			}
			return nil, &pipeline.Error{
				Kind:      pipeline.KindMissingReports,
				Msg:       "missing required inbox report files for requested years",
				Missing:   missing,
				Available: availableText,
			}
		}
	}

	return selected, nil
}

func sortSelected(selected []model.SelectedInboxFile) {
	sort.Slice(selected, func(i, j int) bool {
		a, b := selected[i], selected[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.ReportType != b.ReportType {
			return a.ReportType < b.ReportType
		}
		return filepath.Base(a.Path) < filepath.Base(b.Path)
	})
}

// ScanAndSelectNewest scans the inbox and selects the newest candidates for
// the requested years in one step.
func ScanAndSelectNewest(cfg config.Pipeline, years []int, requireComplete bool) ([]model.SelectedInboxFile, error) {
	candidates, err := ScanCandidates(cfg)
	if err != nil {
		return nil, err
	}
	return SelectNewestForYears(candidates, years, requireComplete)
}
