package model

// Reconciliation row status values.
const (
	StatusMatch    = "MATCH"
	StatusMismatch = "MISMATCH"
)

// Reason codes explaining why the two sources disagree on a period.
const (
	ReasonRounding = "ROUNDING"
	ReasonTiming   = "TIMING"
	ReasonFee      = "FEE"
	ReasonUnknown  = "UNKNOWN"
)

// Anomaly types emitted by the detector.
const (
	AnomalySpike                  = "SPIKE"
	AnomalyDrop                   = "DROP"
	AnomalyNewDimValue            = "NEW_DIM_VALUE"
	AnomalyTopMismatchContributor = "TOP_MISMATCH_CONTRIBUTOR"
)

// ReconRow is one reconciled period between Electra and HotelRunner.
// Daily rows set Date; monthly rows set Month (YYYY-MM). Dimensioned rows
// additionally set DimValue.
type ReconRow struct {
	Date         string
	Month        string
	DimValue     string
	Status       string
	ReasonCode   string
	Year         int
	ElectraGross float64
	HRGross      float64
	Delta        float64
}

// Period returns the row's period label: the date for daily rows, the
// month otherwise.
func (r ReconRow) Period() string {
	if r.Date != "" {
		return r.Date
	}
	return r.Month
}

// YearRollup aggregates match/mismatch counts and total absolute mismatch
// for one year of reconciliation rows.
type YearRollup struct {
	Year             int
	MatchCount       int
	MismatchCount    int
	MismatchAbsTotal float64
}

// AnomalyRecord is one flagged irregularity in the reconciled time series.
type AnomalyRecord struct {
	Period        string
	DimValue      string
	AnomalyType   string
	Explanation   string
	SeverityScore float64
}
