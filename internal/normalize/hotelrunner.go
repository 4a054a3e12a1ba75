package normalize

import (
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

// HotelRunnerColumns is the normalized HotelRunner CSV header.
var HotelRunnerColumns = []string{"date", "year", "booking_id", "agency_id", "agency_name", "channel", "gross_sales", "net_sales", "currency"}

// HotelRunnerYearFile returns the normalized file name for one year.
func HotelRunnerYearFile(year int) string {
	return fmt.Sprintf("hotelrunner_sales_%d.csv", year)
}

// channelToAgency supplies default agency identities for rows that carry
// only a channel. Known wholesale channels map onto their contracted
// agencies.
var channelToAgency = map[string][2]string{
	"direct":      {"DIRECT", "Direct Channel"},
	"booking.com": {"AG001", "Atlas Partners"},
	"expedia":     {"AG002", "Beacon Agency"},
	"agoda":       {"AG003", "Cedar Travel"},
	"hotelbeds":   {"AG004", "Drift Voyages"},
	"wholesaler":  {"AG005", "Elm Holidays"},
	"wholesalerx": {"AG005", "Elm Holidays"},
}

// SlugifyAgencyID reduces free text to an agency-id shape: upper-case
// alphanumerics with separator runs collapsed to single underscores.
func SlugifyAgencyID(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(raw)) {
		switch {
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '/' || r == '&':
			b.WriteRune('_')
		}
	}
	cleaned := strings.Trim(b.String(), "_")
	for strings.Contains(cleaned, "__") {
		cleaned = strings.ReplaceAll(cleaned, "__", "_")
	}
	if cleaned == "" {
		return "UNKNOWN"
	}
	return cleaned
}

func resolveAgency(agencyID, agencyName, channel string) (string, string) {
	if agencyID != "" && agencyName != "" {
		return agencyID, agencyName
	}

	defaultID, defaultName := SlugifyAgencyID(channel), channel
	if defaultName == "" {
		defaultName = "Unknown Agency"
	}
	if mapped, ok := channelToAgency[strings.ToLower(channel)]; ok {
		defaultID, defaultName = mapped[0], mapped[1]
	}

	if agencyID == "" {
		agencyID = defaultID
	}
	if agencyName == "" {
		agencyName = defaultName
	}
	return agencyID, agencyName
}

// HotelRunnerRows converts parsed HotelRunner records into normalized rows,
// deriving agency identity from the channel when the export omits it.
func HotelRunnerRows(records []adapter.HotelRunnerRecord) ([]model.HotelRunnerRow, error) {
	rows := make([]model.HotelRunnerRow, 0, len(records))
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
		agencyID, agencyName := resolveAgency(rec.AgencyID, rec.AgencyName, rec.Channel)
		rows = append(rows, model.HotelRunnerRow{
			Date:       rec.Date,
			Year:       year,
			BookingID:  rec.BookingID,
			AgencyID:   agencyID,
			AgencyName: agencyName,
			Channel:    rec.Channel,
			GrossSales: gross,
			NetSales:   net,
			Currency:   rec.Currency,
		})
	}
	if err := validateNoNegativeHotelRunner(rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func validateNoNegativeHotelRunner(rows []model.HotelRunnerRow) error {
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

func hotelRunnerRecord(r model.HotelRunnerRow) []string {
	return []string{
		r.Date,
		strconv.Itoa(r.Year),
		r.BookingID,
		r.AgencyID,
		r.AgencyName,
		r.Channel,
		fmt.Sprintf("%.2f", r.GrossSales),
		fmt.Sprintf("%.2f", r.NetSales),
		r.Currency,
	}
}

func hotelRunnerKey(r model.HotelRunnerRow) string {
	return strings.Join(hotelRunnerRecord(r), "\x1f")
}

// WriteHotelRunnerYearly merges rows into per-year normalized CSVs under
// outputRoot, deduplicating on the full column tuple.
func WriteHotelRunnerYearly(rows []model.HotelRunnerRow, outputRoot string) ([]string, error) {
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
		outPath := filepath.Join(outputRoot, HotelRunnerYearFile(year))
		merged, err := ReadHotelRunnerYear(outPath)
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
			key := hotelRunnerKey(r)
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
			return deduped[i].BookingID < deduped[j].BookingID
		})

		records := make([][]string, 0, len(deduped)+1)
		records = append(records, HotelRunnerColumns)
		for _, r := range deduped {
			records = append(records, hotelRunnerRecord(r))
		}
		if err := writeCSV(outPath, records); err != nil {
			return nil, err
		}
		outPaths = append(outPaths, outPath)
	}
	return outPaths, nil
}

// ReadHotelRunnerYear loads one normalized HotelRunner year file. A missing
// file yields no rows.
func ReadHotelRunnerYear(path string) ([]model.HotelRunnerRow, error) {
	records, err := readCSV(path)
	if err != nil || records == nil {
		return nil, err
	}
	rows := make([]model.HotelRunnerRow, 0, len(records))
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
		channel := rec["channel"]
		if channel == "" {
			channel = rec["agency_name"]
		}
		currency := rec["currency"]
		if currency == "" {
			currency = "USD"
		}
		rows = append(rows, model.HotelRunnerRow{
			Date:       rec["date"],
			Year:       year,
			BookingID:  rec["booking_id"],
			AgencyID:   rec["agency_id"],
			AgencyName: rec["agency_name"],
			Channel:    channel,
			GrossSales: gross,
			NetSales:   net,
			Currency:   currency,
		})
	}
	return rows, nil
}

// NormalizeHotelRunnerFiles parses and normalizes a batch of HotelRunner
// report copies into per-year files under outputRoot. Ingested copies are
// CSV-only by the validator's contract.
func NormalizeHotelRunnerFiles(paths []string, outputRoot string) ([]string, error) {
	var rows []model.HotelRunnerRow
	for _, path := range paths {
		if strings.ToLower(filepath.Ext(path)) != ".csv" {
			return nil, pipeline.Errorf(pipeline.KindValidation, "unsupported report file: %s", path)
		}
		records, err := adapter.ParseHotelRunnerExport(path)
		if err != nil {
			return nil, err
		}
		batch, err := HotelRunnerRows(records)
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
	}
	return WriteHotelRunnerYearly(rows, outputRoot)
}

// ValidateYearsExist raises when any requested year lacks its normalized
// CSV for the given source prefix ("electra" or "hotelrunner").
func ValidateYearsExist(source string, years []int, normalizedRoot string) error {
	var missing []string
	for _, year := range years {
		var name string
		if source == model.SourceElectra {
			name = ElectraYearFile(year)
		} else {
			name = HotelRunnerYearFile(year)
		}
		if _, err := os.Stat(filepath.Join(normalizedRoot, name)); err != nil {
			missing = append(missing, strconv.Itoa(year))
		}
	}
	if len(missing) > 0 {
		return &pipeline.Error{
			Kind:    pipeline.KindReconcile,
			Msg:     "normalized data missing for years",
			Path:    normalizedRoot,
			Missing: missing,
		}
	}
	return nil
}
