package adapter

import (
	"path/filepath"

	"github.com/hotelops/recon/internal/pipeline"
)

var hotelRunnerAliases = map[string][]string{
	"date":        {"date", "report_date", "transaction_date", "date_value"},
	"booking_id":  {"booking_id", "bookingid", "reservation_id", "reservationid", "invoice_id", "invoiceid"},
	"channel":     {"channel", "agency", "source", "sales_channel", "saleschannel"},
	"agency_id":   {"agency_id", "agencyid", "agent_id", "agentid", "agency_code", "agencycode"},
	"agency_name": {"agency_name", "agencyname", "agent_name", "agentname", "agency_label", "agencylabel"},
	"gross_sales": {"gross_sales", "gross", "gross_revenue", "grossrevenue", "gross_amount", "grossamount"},
	"net_sales":   {"net_sales", "net", "net_revenue", "netrevenue", "net_amount", "netamount"},
	"currency":    {"currency", "currency_code", "currencycode", "curr", "ccy"},
}

var hotelRunnerBaseRequired = []string{"date", "gross_sales"}

// HotelRunnerRecord is one canonical row parsed from a HotelRunner export.
type HotelRunnerRecord struct {
	Date       string
	BookingID  string
	Channel    string
	AgencyID   string
	AgencyName string
	GrossSales string
	NetSales   string
	Currency   string
}

// ParseHotelRunnerExport parses one HotelRunner daily sales export into
// canonical records. Beyond date+gross_sales, the file must carry an id
// column (booking or invoice) and either a channel column or a full
// agency_id+agency_name pair.
func ParseHotelRunnerExport(path string) ([]HotelRunnerRecord, error) {
	if err := assertSupportedSuffix(path); err != nil {
		return nil, err
	}
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}

	mapping := resolveAliases(header, hotelRunnerAliases)
	var missing []string
	for _, canonical := range hotelRunnerBaseRequired {
		if _, ok := mapping[canonical]; !ok {
			missing = append(missing, missingFieldDesc(canonical, hotelRunnerAliases))
		}
	}

	_, hasBooking := mapping["booking_id"]
	_, hasChannel := mapping["channel"]
	_, hasAgencyID := mapping["agency_id"]
	_, hasAgencyName := mapping["agency_name"]
	if !hasBooking {
		missing = append(missing, "booking_id (aliases include invoice_id, reservation_id)")
	}
	if !hasChannel && !(hasAgencyID && hasAgencyName) {
		missing = append(missing, "channel (or both agency_id + agency_name)")
	}
	if len(missing) > 0 {
		return nil, &pipeline.Error{
			Kind:    pipeline.KindAdapter,
			Msg:     "header mismatch in " + filepath.Base(path) + ": required columns missing",
			Path:    path,
			Missing: missing,
		}
	}

	out := make([]HotelRunnerRecord, 0, len(rows))
	for _, row := range rows {
		date := cell(row, mapping["date"])
		if date == "" {
			continue
		}
		rec := HotelRunnerRecord{
			Date:       date,
			BookingID:  cell(row, mapping["booking_id"]),
			Channel:    cell(row, mapping["channel"]),
			AgencyID:   cell(row, mapping["agency_id"]),
			AgencyName: cell(row, mapping["agency_name"]),
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
		out = append(out, rec)
	}
	return out, nil
}

// ValidateHotelRunnerExport checks that a HotelRunner export's columns are
// adapter-compatible without keeping the parsed rows.
func ValidateHotelRunnerExport(path string) error {
	_, err := ParseHotelRunnerExport(path)
	return err
}
