package constants

// JobStatus is the canonical status for rows in extract_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued  JobStatus = "QUEUED"  // queued for processing
	JobStatusRunning JobStatus = "RUNNING" // in progress
	JobStatusOCROK   JobStatus = "OCR_OK"  // fragments recognized
	JobStatusParsed  JobStatus = "PARSED"  // transcript record stored
	JobStatusFailed  JobStatus = "FAILED"  // terminal failure
)

// Terminal reports whether no further transitions are expected.
func (s JobStatus) Terminal() bool {
	return s == JobStatusParsed || s == JobStatusFailed
}

// JobStatuses lists every status as stored strings.
func JobStatuses() []string {
	return []string{
		string(JobStatusQueued),
		string(JobStatusRunning),
		string(JobStatusOCROK),
		string(JobStatusParsed),
		string(JobStatusFailed),
	}
}
