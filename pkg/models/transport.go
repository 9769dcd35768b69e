package models

import "encoding/json"

// ResultSubmission is one backend's raw output for one image
type ResultSubmission struct {
	SequenceNumber int             `json:"sequence_number"`
	Filename       string          `json:"filename"`
	Backend        BackendID       `json:"backend"`
	AnalysisMode   AnalysisMode    `json:"analysis_mode,omitempty"`
	Payload        json.RawMessage `json:"payload"`
}

// StartRunRequest resets the batch and declares which backends each image waits for
type StartRunRequest struct {
	AnalysisMode     AnalysisMode `json:"analysis_mode"`
	ExpectedBackends []BackendID  `json:"expected_backends,omitempty"`
}

// StartRunResponse identifies the new run
type StartRunResponse struct {
	RunID            string       `json:"run_id"`
	AnalysisMode     AnalysisMode `json:"analysis_mode"`
	ExpectedBackends []BackendID  `json:"expected_backends"`
}

// SubmissionResponse reports what happened to an accepted submission
type SubmissionResponse struct {
	SequenceNumber int      `json:"sequence_number"`
	Backend        string   `json:"backend"`
	Completed      bool     `json:"completed"`
	Pending        int      `json:"pending_images"`
	Warnings       []string `json:"warnings,omitempty"`
}

// SettleResponse reports how many incomplete images were flushed into the batch
type SettleResponse struct {
	Settled int `json:"settled"`
	Total   int `json:"total_images"`
}

// SummaryResponse bundles both statistics engines
type SummaryResponse struct {
	RunID       string          `json:"run_id"`
	GeneratedAt string          `json:"generated_at"`
	Schema      Schema          `json:"schema"`
	Statistics  Summary         `json:"statistics"`
	Comparison  BatchComparison `json:"comparison"`
}

// PublishResponse lists where an artifact was delivered
type PublishResponse struct {
	Artifact  Artifact          `json:"artifact"`
	Locations map[string]string `json:"locations"`
	Failures  map[string]string `json:"failures,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
