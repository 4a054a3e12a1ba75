package model

// ManifestFile describes one selected inbox file as recorded in the run
// manifest. JSON fields are declared in sorted-key order so the marshaled
// manifest is byte-stable.
type ManifestFile struct {
	CopiedPath string `json:"copied_path"`
	InboxPath  string `json:"inbox_path"`
	ReportDate string `json:"report_date"`
	ReportType string `json:"report_type"`
	Sha256     string `json:"sha256"`
	SizeBytes  int64  `json:"size_bytes"`
	Source     string `json:"source"`
	Year       int    `json:"year"`
}

// Manifest is the durable audit artifact written once per ingestion run and
// never mutated afterward.
type Manifest struct {
	NormalizationOutputs []string       `json:"normalization_outputs"`
	RunID                string         `json:"run_id"`
	SelectedFiles        []ManifestFile `json:"selected_files"`
	Years                []int          `json:"years"`
}
