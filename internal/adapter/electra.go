package adapter

import (
	"path/filepath"
	"strings"

	"github.com/hotelops/recon/internal/model"
	"github.com/hotelops/recon/internal/pipeline"
)

var electraAliases = map[string][]string{
	"date":        {"date", "report_date", "transaction_date", "date_value"},
	"agency_id":   {"agency_id", "agencyid", "agent_id", "agentid", "partner_id", "partnerid"},
	"agency_name": {"agency_name", "agency", "agencyname", "agent_name", "agentname", "partner_name"},
	"gross_sales": {"gross_sales", "gross", "gross_revenue", "grossrevenue", "gross_amount", "grossamount"},
	"net_sales":   {"net_sales", "net", "net_revenue", "netrevenue", "net_amount", "netamount"},
	"currency":    {"currency", "currency_code", "currencycode", "curr", "ccy"},
}

var electraRequired = map[string][]string{
	model.ReportSalesSummary:  {"date", "gross_sales"},
	model.ReportSalesByAgency: {"date", "agency_id", "agency_name", "gross_sales"},
}

// ElectraRecord is one canonical row parsed from an Electra export. Values
// stay as exported strings; the normalizer owns numeric conversion.
type ElectraRecord struct {
	Date       string
	AgencyID   string
	AgencyName string
	GrossSales string
	NetSales   string
	Currency   string
}

// ParseElectraExport parses one Electra export file into canonical records.
// Rows with an empty date (footer/blank rows) are dropped.
func ParseElectraExport(path, reportType string) ([]ElectraRecord, error) {
	if err := assertSupportedSuffix(path); err != nil {
		return nil, err
	}
	required, ok := electraRequired[reportType]
	if !ok {
		return nil, pipeline.Errorf(pipeline.KindAdapter, "unsupported electra report_type: %s", reportType)
	}

	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}

	mapping := resolveAliases(header, electraAliases)
	var missing []string
	for _, canonical := range required {
		if _, ok := mapping[canonical]; !ok {
			missing = append(missing, missingFieldDesc(canonical, electraAliases))
		}
	}
	if len(missing) > 0 {
		return nil, &pipeline.Error{
			Kind:    pipeline.KindAdapter,
			Msg:     "header mismatch in " + filepath.Base(path) + ": required columns missing",
			Path:    path,
			Missing: missing,
		}
	}

	out := make([]ElectraRecord, 0, len(rows))
	for _, row := range rows {
		date := cell(row, mapping["date"])
		if date == "" {
			continue
		}
		rec := ElectraRecord{
			Date:       date,
			GrossSales: cell(row, mapping["gross_sales"]),
			NetSales:   cell(row, mapping["net_sales"]),
			Currency:   cell(row, mapping["currency"]),
		}
		if rec.NetSales == "" {
			rec.NetSales = "0"
		}
		if rec.Currency == "" {
			rec.Currency = "USD"
		}
		if reportType == model.ReportSalesByAgency {
			rec.AgencyID = strings.TrimSpace(cell(row, mapping["agency_id"]))
			rec.AgencyName = cell(row, mapping["agency_name"])
		}
		out = append(out, rec)
	}
	return out, nil
}

// ValidateElectraExport checks that an Electra export's columns are
// adapter-compatible without keeping the parsed rows.
func ValidateElectraExport(path, reportType string) error {
	_, err := ParseElectraExport(path, reportType)
	return err
}
