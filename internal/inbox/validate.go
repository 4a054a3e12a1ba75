package inbox

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hotelops/recon/internal/model"
	"github.com/hotelops/recon/internal/pipeline"
)

// Required header columns per report type. The validator is a pre-ingestion
// gate: it checks the exact canonical column names, not adapter aliases.
var requiredColumns = map[string][]string{
	model.ReportSalesSummary:  {"date", "gross_sales"},
	model.ReportSalesByAgency: {"date", "agency_id", "agency_name", "gross_sales"},
	model.ReportDailySales:    {"date", "gross_sales"},
}

var (
	hotelRunnerIDColumns      = []string{"booking_id", "invoice_id"}
	hotelRunnerChannelColumns = []string{"channel", "agency"}
)

// ValidateFile checks one selected inbox file before it is trusted:
// CSV-only suffix, size cap, UTF-8 content, and a non-empty header carrying
// the required columns for its report type.
func ValidateFile(selected model.SelectedInboxFile, maxFileSizeBytes int64) error {
	path := selected.Path
	name := filepath.Base(path)

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return pipeline.Errorf(pipeline.KindValidation, "selected inbox file is missing or not a file: %s", path)
	}
	if strings.ToLower(filepath.Ext(path)) != ".csv" {
		return pipeline.Errorf(pipeline.KindValidation,
			"unsupported inbox file type for %s: ingestion accepts .csv only", name)
	}
	if info.Size() > maxFileSizeBytes {
		return pipeline.Errorf(pipeline.KindValidation,
			"inbox file too large: %s is %d bytes; limit is %d bytes", name, info.Size(), maxFileSizeBytes)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Wrap(pipeline.KindValidation, err, "unable to read inbox file: %s", path)
	}
	if !utf8.Valid(raw) {
		return pipeline.Errorf(pipeline.KindValidation, "inbox file must be UTF-8 readable: %s", name)
	}

	reader := csv.NewReader(strings.NewReader(string(raw)))
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return pipeline.Errorf(pipeline.KindValidation, "header mismatch in %s: CSV header is empty", name)
	}
	have := map[string]bool{}
	for _, col := range header {
		col = strings.TrimSpace(col)
		if col != "" {
			have[col] = true
		}
	}
	if len(have) == 0 {
		return pipeline.Errorf(pipeline.KindValidation, "header mismatch in %s: CSV header is empty", name)
	}

	required, ok := requiredColumns[selected.ReportType]
	if !ok {
		return pipeline.Errorf(pipeline.KindValidation, "unsupported report_type: %s", selected.ReportType)
	}
	var missing []string
	for _, col := range required {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	if selected.Source == model.SourceHotelRunner {
		if !anyPresent(have, hotelRunnerIDColumns) {
			missing = append(missing, strings.Join(hotelRunnerIDColumns, "|"))
		}
		hasChannel := anyPresent(have, hotelRunnerChannelColumns)
		hasAgencyPair := have["agency_id"] && have["agency_name"]
		if !hasChannel && !hasAgencyPair {
			missing = append(missing, strings.Join(hotelRunnerChannelColumns, "|"))
		}
	}
	if len(missing) > 0 {
		return &pipeline.Error{
			Kind:    pipeline.KindValidation,
			Msg:     "required columns missing in " + name,
			Path:    path,
			Missing: missing,
		}
	}
	return nil
}

func anyPresent(have map[string]bool, names []string) bool {
	for _, n := range names {
		if have[n] {
			return true
		}
	}
	return false
}

// ValidateSelectedFiles validates every selected file before anything is
// copied. The first violation aborts the whole run.
func ValidateSelectedFiles(selected []model.SelectedInboxFile, maxFileSizeBytes int64) error {
	ordered := make([]model.SelectedInboxFile, len(selected))
	copy(ordered, selected)
	sortSelected(ordered)
	for _, s := range ordered {
		if err := ValidateFile(s, maxFileSizeBytes); err != nil {
			return err
		}
	}
	return nil
}
