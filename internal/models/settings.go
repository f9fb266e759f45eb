package models

// Settings is the process-wide site configuration. It is persisted in Redis
// and read fresh on every request so multiple instances stay consistent;
// a missing key yields the zero value (both flags off).
type Settings struct {
	SubmissionsPaused bool `json:"submissionsPaused"`
	RequireApproval   bool `json:"requireApproval"`
}
