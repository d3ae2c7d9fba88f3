package server

// Response envelopes. Every endpoint answers with a "status" discriminator
// plus either a human-readable message, a data payload, or both; list
// payloads carry their length in "count".

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type listResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
	Count  int    `json:"count"`
}

type dataResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

type ingestResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	ReportID int64  `json:"report_id"`
}

type cleanupResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	DeletedCount int64  `json:"deleted_count"`
}

type healthResponse struct {
	Status string `json:"status"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)
