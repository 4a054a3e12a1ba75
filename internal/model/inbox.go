package model

import "time"

// InboxCandidate is one strictly-named file discovered in the inbox drop
// folder. Candidates are ephemeral and rebuilt on every scan.
type InboxCandidate struct {
	ReportDate time.Time
	MTime      time.Time
	Source     string
	ReportType string
	Path       string
	SizeBytes  int64
}

// Year returns the report year the candidate belongs to.
func (c InboxCandidate) Year() int {
	return c.ReportDate.Year()
}

// SelectedInboxFile is the newest valid candidate chosen for one
// (source, report_type, year) key. Immutable once ingestion copies it.
type SelectedInboxFile struct {
	ReportDate time.Time
	MTime      time.Time
	Source     string
	ReportType string
	Path       string
	Year       int
	SizeBytes  int64
}
