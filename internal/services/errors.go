// Package services implements the notice workflow: keyword ingestion, the
// time-triggered lifecycle scans, reply correlation and manual legal
// requests. This file centralizes service-level error values so handlers can
// map them to HTTP status codes with errors.Is.
package services

import "errors"

var (
	// ErrIngestion marks a malformed input record. The record is skipped and
	// counted; the rest of the batch continues.
	ErrIngestion = errors.New("malformed record")

	// ErrCaseNotFound indicates that the requested case does not exist.
	ErrCaseNotFound = errors.New("case not found")

	// ErrInvalidRequest is returned when a legal request is missing required
	// officer or recipient details.
	ErrInvalidRequest = errors.New("invalid legal request")

	// ErrNoMailbox is returned by ProcessInbox when no inbound mailbox is
	// configured.
	ErrNoMailbox = errors.New("no inbound mailbox configured")

	// ErrMailboxFetch wraps a failure to read replies from the mailbox.
	ErrMailboxFetch = errors.New("fetch replies")
)
