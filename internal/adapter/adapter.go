// Package adapter parses Electra and HotelRunner export files into
// canonical row maps with a fixed column vocabulary.
package adapter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/hotelops/recon/internal/pipeline"
)

var supportedSuffixes = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xlsm": true,
}

// normalizeCol reduces a header cell to its comparable form: lowercase with
// all non-alphanumerics stripped.
func normalizeCol(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func assertSupportedSuffix(path string) error {
	suffix := strings.ToLower(filepath.Ext(path))
	if !supportedSuffixes[suffix] {
		keys := make([]string, 0, len(supportedSuffixes))
		for k := range supportedSuffixes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return pipeline.Errorf(pipeline.KindAdapter,
			"unsupported file type for %s: expected one of [%s]",
			filepath.Base(path), strings.Join(keys, ", "))
	}
	return nil
}

// readTable loads an export file as a header row plus string-valued records.
// CSV files must be UTF-8; spreadsheets are read from the first sheet.
func readTable(path string) ([]string, []map[string]string, error) {
	suffix := strings.ToLower(filepath.Ext(path))
	if suffix == ".csv" {
		return readCSVTable(path)
	}
	return readSheetTable(path)
}

func readCSVTable(path string) ([]string, []map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, pipeline.Wrap(pipeline.KindAdapter, err, "unable to read file: %s", path)
	}
	if !utf8.Valid(raw) {
		return nil, nil, pipeline.Errorf(pipeline.KindAdapter,
			"CSV must be UTF-8 readable: %s", filepath.Base(path))
	}

	reader := csv.NewReader(strings.NewReader(string(raw)))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, pipeline.Wrap(pipeline.KindAdapter, err, "malformed CSV: %s", filepath.Base(path))
	}
	if len(records) == 0 {
		return nil, nil, pipeline.Errorf(pipeline.KindAdapter,
			"header mismatch in %s: CSV header is empty", filepath.Base(path))
	}

	header := trimHeader(records[0])
	if len(header) == 0 {
		return nil, nil, pipeline.Errorf(pipeline.KindAdapter,
			"header mismatch in %s: CSV header is empty", filepath.Base(path))
	}
	return header, recordsToRows(header, records[1:]), nil
}

func readSheetTable(path string) ([]string, []map[string]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, pipeline.Wrap(pipeline.KindAdapter, err,
			"unable to open spreadsheet: %s", filepath.Base(path))
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, pipeline.Errorf(pipeline.KindAdapter,
			"header mismatch in %s: spreadsheet is empty", filepath.Base(path))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, pipeline.Wrap(pipeline.KindAdapter, err,
			"unable to read spreadsheet rows: %s", filepath.Base(path))
	}
	if len(rows) == 0 {
		return nil, nil, pipeline.Errorf(pipeline.KindAdapter,
			"header mismatch in %s: spreadsheet is empty", filepath.Base(path))
	}

	header := trimHeader(rows[0])
	if len(header) == 0 {
		return nil, nil, pipeline.Errorf(pipeline.KindAdapter,
			"header mismatch in %s: spreadsheet header is empty", filepath.Base(path))
	}
	return header, recordsToRows(header, rows[1:]), nil
}

func trimHeader(cells []string) []string {
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func recordsToRows(header []string, records [][]string) []map[string]string {
	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = strings.TrimSpace(rec[i])
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// headerLookup maps normalized header names to the first raw header that
// produced them.
func headerLookup(header []string) map[string]string {
	out := make(map[string]string, len(header))
	for _, name := range header {
		key := normalizeCol(name)
		if key == "" {
			continue
		}
		if _, ok := out[key]; !ok {
			out[key] = name
		}
	}
	return out
}

// resolveAliases maps each canonical field to the raw header matching its
// first present alias.
func resolveAliases(header []string, aliases map[string][]string) map[string]string {
	lookup := headerLookup(header)
	mapping := make(map[string]string, len(aliases))
	for canonical, names := range aliases {
		for _, alias := range names {
			if raw, ok := lookup[normalizeCol(alias)]; ok {
				mapping[canonical] = raw
				break
			}
		}
	}
	return mapping
}

func missingFieldDesc(canonical string, aliases map[string][]string) string {
	return fmt.Sprintf("%s (aliases: %s)", canonical, strings.Join(aliases[canonical], ", "))
}

func cell(row map[string]string, rawHeader string) string {
	if rawHeader == "" {
		return ""
	}
	return strings.TrimSpace(row[rawHeader])
}
