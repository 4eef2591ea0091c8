// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case. Generic codes mirror HTTP status semantics;
// workflow codes name the failed operation. Clients branch on the code, not
// on the message.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeTimeout          = "timeout"

	// Workflow:
	ErrCodeScanFailed         = "scan_failed"
	ErrCodeIngestFailed       = "ingest_failed"
	ErrCodeListFailed         = "list_failed"
	ErrCodeDeliveryFailed     = "delivery_failed"
	ErrCodeMailboxUnavailable = "mailbox_unavailable"
	ErrCodeDocumentFailed     = "document_failed"
)
