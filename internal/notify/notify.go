// Package notify turns lifecycle transitions into outbound mail. The
// Dispatcher owns message wording and, for escalations, the legal document
// that is rendered, stored and attached. Transport, rendering and storage are
// injected collaborators so the workflow can run against fakes in tests.
package notify

import (
	"context"
	"errors"
	"io"
)

// ErrDeliveryFailed wraps every failure of a notification side effect. A
// caller seeing it must leave the case state unchanged.
var ErrDeliveryFailed = errors.New("delivery failed")

// ErrUnknownTemplate is returned by a Renderer for an unregistered template id.
var ErrUnknownTemplate = errors.New("unknown template")

// ErrDocumentNotFound is returned by a DocumentStore when a reference does not
// resolve to a stored document.
var ErrDocumentNotFound = errors.New("document not found")

// ErrInvalidDocumentName is returned when a document name would escape the
// store (path separators, "..", empty).
var ErrInvalidDocumentName = errors.New("invalid document name")

// Template ids understood by the PDF renderer.
const (
	TemplateEscalation   = "escalation"
	TemplateLegalRequest = "legal_request"
)

// Attachment is a binary file carried by a Message.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is one outbound email.
type Message struct {
	To         string
	Subject    string
	Body       string
	Attachment *Attachment
}

// Transport delivers a Message. Success means the transport accepted it.
type Transport interface {
	Send(ctx context.Context, m Message) error
}

// Renderer produces a binary document from a template id and field values.
type Renderer interface {
	Render(ctx context.Context, templateID string, fields map[string]string) ([]byte, error)
}

// DocumentStore persists generated documents and serves them back by
// reference.
type DocumentStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	List(ctx context.Context) ([]string, error)
}
