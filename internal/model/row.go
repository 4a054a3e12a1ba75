// Package model defines the canonical data types shared across the pipeline.
package model

// Source systems whose exports feed the pipeline.
const (
	SourceElectra     = "electra"
	SourceHotelRunner = "hotelrunner"
)

// Report types per source. The inbox requires all three per requested year.
const (
	ReportSalesSummary  = "sales_summary"
	ReportSalesByAgency = "sales_by_agency"
	ReportDailySales    = "daily_sales"
)

// TotalAgencyID marks Electra source-level aggregate rows that carry no
// per-agency breakdown.
const TotalAgencyID = "TOTAL"

// ElectraRow is one normalized Electra sales record.
type ElectraRow struct {
	Date       string
	AgencyID   string
	AgencyName string
	Currency   string
	Year       int
	GrossSales float64
	NetSales   float64
}

// HotelRunnerRow is one normalized HotelRunner sales record.
type HotelRunnerRow struct {
	Date       string
	BookingID  string
	AgencyID   string
	AgencyName string
	Channel    string
	Currency   string
	Year       int
	GrossSales float64
	NetSales   float64
}
