// Package normalize converts adapter output into the per-year canonical
// CSV files that the reconciliation engine reads. Writing is idempotent:
// re-normalizing the same inputs merges, dedupes, and leaves files sorted.
package normalize

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hotelops/recon/internal/adapter"
	"github.com/hotelops/recon/internal/model"
	"github.com/hotelops/recon/internal/pipeline"
)

// ElectraColumns is the normalized Electra CSV header.
var ElectraColumns = []string{"date", "year", "agency_id", "agency_name", "gross_sales", "net_sales", "currency"}

// ElectraYearFile returns the normalized file name for one year.
func ElectraYearFile(year int) string {
	return fmt.Sprintf("electra_sales_%d.csv", year)
}

func yearOfDate(date string) (int, error) {
	if len(date) < 4 {
		return 0, pipeline.Errorf(pipeline.KindAdapter, "invalid date value: %q", date)
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0, pipeline.Wrap(pipeline.KindAdapter, err, "invalid date value: %q", date)
	}
	return year, nil
}

func parseAmount(raw, field string) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, pipeline.Wrap(pipeline.KindAdapter, err, "invalid %s value: %q", field, raw)
	}
	return v, nil
}

// ElectraRows converts parsed Electra records into normalized rows.
// Summary reports collapse onto the TOTAL sentinel agency.
func ElectraRows(records []adapter.ElectraRecord, reportType string) ([]model.ElectraRow, error) {
	rows := make([]model.ElectraRow, 0, len(records))
	for _, rec := range records {
		year, err := yearOfDate(rec.Date)
		if err != nil {
			return nil, err
		}
		gross, err := parseAmount(rec.GrossSales, "gross_sales")
		if err != nil {
			return nil, err
		}
		net, err := parseAmount(rec.NetSales, "net_sales")
		if err != nil {
			return nil, err
		}

		row := model.ElectraRow{
			Date:       rec.Date,
			Year:       year,
			AgencyID:   rec.AgencyID,
			AgencyName: rec.AgencyName,
			GrossSales: gross,
			NetSales:   net,
			Currency:   rec.Currency,
		}
		if reportType == model.ReportSalesSummary {
			row.AgencyID = model.TotalAgencyID
			row.AgencyName = model.TotalAgencyID
		}
		rows = append(rows, row)
	}
	if err := validateNoNegativeElectra(rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func validateNoNegativeElectra(rows []model.ElectraRow) error {
	bad := 0
	for _, r := range rows {
		if r.GrossSales < 0 {
			bad++
		}
	}
	if bad > 0 {
		return pipeline.Errorf(pipeline.KindReconcile, "negative gross_sales rows found: %d", bad)
	}
	return nil
}

func electraKey(r model.ElectraRow) string {
	return strings.Join(electraRecord(r), "\x1f")
}

func electraRecord(r model.ElectraRow) []string {
	return []string{
		r.Date,
		strconv.Itoa(r.Year),
		r.AgencyID,
		r.AgencyName,
		fmt.Sprintf("%.2f", r.GrossSales),
		fmt.Sprintf("%.2f", r.NetSales),
		r.Currency,
	}
}

// WriteElectraYearly merges rows into per-year normalized CSVs under
// outputRoot, deduplicating on the full column tuple.
func WriteElectraYearly(rows []model.ElectraRow, outputRoot string) ([]string, error) {
	if err := os.MkdirAll(outputRoot, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create normalized root: %w", err)
	}

	years := map[int]bool{}
	for _, r := range rows {
		years[r.Year] = true
	}
	sortedYears := make([]int, 0, len(years))
	for y := range years {
		sortedYears = append(sortedYears, y)
	}
	sort.Ints(sortedYears)

	var outPaths []string
	for _, year := range sortedYears {
		outPath := filepath.Join(outputRoot, ElectraYearFile(year))
		merged, err := ReadElectraYear(outPath)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			if r.Year == year {
				merged = append(merged, r)
			}
		}

		seen := map[string]bool{}
		deduped := merged[:0]
		for _, r := range merged {
			key := electraKey(r)
			if seen[key] {
				continue
			}
			seen[key] = true
			deduped = append(deduped, r)
		}
		sort.SliceStable(deduped, func(i, j int) bool {
			if deduped[i].Date != deduped[j].Date {
				return deduped[i].Date < deduped[j].Date
			}
			return deduped[i].AgencyID < deduped[j].AgencyID
		})

		records := make([][]string, 0, len(deduped)+1)
		records = append(records, ElectraColumns)
		for _, r := range deduped {
			records = append(records, electraRecord(r))
		}
		if err := writeCSV(outPath, records); err != nil {
			return nil, err
		}
		outPaths = append(outPaths, outPath)
	}
	return outPaths, nil
}

// ReadElectraYear loads one normalized Electra year file. A missing file
// yields no rows, so first-time normalization starts from empty.
func ReadElectraYear(path string) ([]model.ElectraRow, error) {
	records, err := readCSV(path)
	if err != nil || records == nil {
		return nil, err
	}
	rows := make([]model.ElectraRow, 0, len(records))
	for _, rec := range records {
		year, convErr := strconv.Atoi(rec["year"])
		if convErr != nil {
			return nil, pipeline.Wrap(pipeline.KindReconcile, convErr, "invalid year in normalized file: %s", path)
		}
		gross, convErr := parseAmount(rec["gross_sales"], "gross_sales")
		if convErr != nil {
			return nil, convErr
		}
		net, convErr := parseAmount(rec["net_sales"], "net_sales")
		if convErr != nil {
			return nil, convErr
		}
		currency := rec["currency"]
		if currency == "" {
			currency = "USD"
		}
		rows = append(rows, model.ElectraRow{
			Date:       rec["date"],
			Year:       year,
			AgencyID:   rec["agency_id"],
			AgencyName: rec["agency_name"],
			GrossSales: gross,
			NetSales:   net,
			Currency:   currency,
		})
	}
	return rows, nil
}

// NormalizeElectraFiles parses and normalizes a batch of Electra report
// copies into per-year files under outputRoot.
func NormalizeElectraFiles(paths []string, reportType, outputRoot string) ([]string, error) {
	var rows []model.ElectraRow
	for _, path := range paths {
		records, err := adapter.ParseElectraExport(path, reportType)
		if err != nil {
			return nil, err
		}
		batch, err := ElectraRows(records, reportType)
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
	}
	return WriteElectraYearly(rows, outputRoot)
}

func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	all, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(all) == 0 {
		return []map[string]string{}, nil
	}
	header := all[0]
	out := make([]map[string]string, 0, len(all)-1)
	for _, rec := range all[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return f.Close()
}
