package logging

import "time"

// #region outcome
// Outcome is the terminal state of one submission attempt.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeRejected  Outcome = "rejected" // stopped by validation, nothing sent
)
// #endregion outcome

// #region submission-entry
// SubmissionEntry is a single row in the submission_log table.
type SubmissionEntry struct {
	AttemptID   string
	FullName    string
	Outcome     Outcome
	Stage       string // pipeline stage the attempt ended in
	Message     string
	Locator     string // rendered-document URL returned by the service
	FileName    string
	PayloadHash string
	Bytes       int
	CreatedAt   time.Time
}
// #endregion submission-entry
