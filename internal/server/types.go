// Package server provides the HTTP interface of vocabdeck: session
// creation, input uploads, deck generation and download, session removal
// and the Prometheus scrape endpoint. Request and response DTOs live here,
// separate from the domain types.
package server

// sessionQuery is the query string shared by the upload and generate routes.
type sessionQuery struct {
	SessionID string `validate:"required,session_id"`
}

// StatusResponse is the HTTP response for the status endpoint.
type StatusResponse struct {
	// Status is "running" while the service accepts requests.
	Status string `json:"status"`
}

// SessionResponse is the HTTP response after creating a session.
type SessionResponse struct {
	// SessionID identifies the session in later requests.
	SessionID string `json:"session_id"`
}

// UploadResponse is the HTTP response after storing an input file.
type UploadResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// Response headers set by the generate route.
const (
	HeaderMismatch = "X-Vocabdeck-Mismatch"
	HeaderCards    = "X-Vocabdeck-Cards"
	HeaderURL      = "X-Vocabdeck-URL"
)
