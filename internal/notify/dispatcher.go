package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/notice-escalator/internal/domain"
)

const pdfContentType = "application/pdf"

// Officer holds the requesting-officer details stamped on automatically
// escalated legal requests.
type Officer struct {
	Name          string
	Designation   string
	PoliceStation string
	ContactInfo   string
	DateRange     string
	CasePurpose   string
}

// DefaultOfficer matches the values used before officer details were
// configurable.
var DefaultOfficer = Officer{
	Name:          "Inspector General",
	Designation:   "Cyber Cell",
	PoliceStation: "Hyderabad HQ",
	ContactInfo:   "cybercell@hyderabadpolice.gov.in",
	DateRange:     "Last 30 days",
	CasePurpose:   "Legal investigation of flagged cyber activity",
}

// Receipt describes an accepted notification.
type Receipt struct {
	Kind        domain.TransitionKind
	To          string
	Subject     string
	SentAt      time.Time
	DocumentRef string // escalation and legal requests only

	// Request is the legal request generated for an escalation. The caller
	// persists it once the case transition has committed.
	Request *domain.LegalRequest
}

// Dispatcher builds and sends lifecycle notifications.
type Dispatcher struct {
	Transport Transport
	Renderer  Renderer
	Store     DocumentStore

	Signature string  // closing line of every notice
	Officer   Officer // officer details for escalations

	Now   func() time.Time
	NewID func() string
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d *Dispatcher) newID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.NewString()
}

func (d *Dispatcher) signature() string {
	if strings.TrimSpace(d.Signature) == "" {
		return "Cyber Monitoring Unit"
	}
	return d.Signature
}

func (d *Dispatcher) officer() Officer {
	o := d.Officer
	def := DefaultOfficer
	if o.Name == "" {
		o.Name = def.Name
	}
	if o.Designation == "" {
		o.Designation = def.Designation
	}
	if o.PoliceStation == "" {
		o.PoliceStation = def.PoliceStation
	}
	if o.ContactInfo == "" {
		o.ContactInfo = def.ContactInfo
	}
	if o.DateRange == "" {
		o.DateRange = def.DateRange
	}
	if o.CasePurpose == "" {
		o.CasePurpose = def.CasePurpose
	}
	return o
}

// Notify sends the notice for kind to c's contact address. For
// KindEscalation it renders, stores and attaches the legal document first.
// Every failure wraps ErrDeliveryFailed; nothing here touches case state.
func (d *Dispatcher) Notify(ctx context.Context, c domain.Case, kind domain.TransitionKind) (Receipt, error) {
	tr := otel.Tracer("notify/Dispatcher")
	ctx, span := tr.Start(ctx, "Notify",
		trace.WithAttributes(
			attribute.String("case.id", c.ID),
			attribute.String("transition.kind", string(kind)),
		),
	)
	defer span.End()

	r, err := d.notify(ctx, c, kind)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
	}
	return r, err
}

func (d *Dispatcher) notify(ctx context.Context, c domain.Case, kind domain.TransitionKind) (Receipt, error) {
	if d.Transport == nil {
		return Receipt{}, fmt.Errorf("%w: no transport configured", ErrDeliveryFailed)
	}
	to := strings.TrimSpace(c.ContactAddress)
	if to == "" {
		return Receipt{}, fmt.Errorf("%w: case %s has no contact address", ErrDeliveryFailed, c.ID)
	}

	var msg Message
	rcpt := Receipt{Kind: kind, To: to}
	switch kind {
	case domain.KindWarning:
		msg = warningMessage(c, d.signature())
	case domain.KindFollowUp:
		msg = followUpMessage(c, d.signature())
	case domain.KindEscalation:
		req, att, err := d.escalationDocument(ctx, c)
		if err != nil {
			return Receipt{}, err
		}
		msg = escalationMessage(c, d.signature())
		msg.Attachment = att
		rcpt.DocumentRef = req.DocumentRef
		rcpt.Request = req
	default:
		return Receipt{}, fmt.Errorf("%w: no notice for transition %q", ErrDeliveryFailed, kind)
	}
	msg.To = to

	if err := d.Transport.Send(ctx, msg); err != nil {
		return Receipt{}, fmt.Errorf("%w: send %s to case %s: %w", ErrDeliveryFailed, kind, c.ID, err)
	}
	rcpt.Subject = msg.Subject
	rcpt.SentAt = d.now()
	if rcpt.Request != nil {
		sent := rcpt.SentAt
		rcpt.Request.SentAt = &sent
	}
	return rcpt, nil
}

// escalationDocument renders and stores the auto-escalated request for c. The
// case number and document name derive from c.ID, so a retried escalation
// overwrites its earlier document instead of leaving an orphan behind.
func (d *Dispatcher) escalationDocument(ctx context.Context, c domain.Case) (*domain.LegalRequest, *Attachment, error) {
	if d.Renderer == nil || d.Store == nil {
		return nil, nil, fmt.Errorf("%w: escalation needs a renderer and a document store", ErrDeliveryFailed)
	}
	o := d.officer()
	id := c.ID
	if strings.TrimSpace(id) == "" {
		id = d.newID()
	}
	caseID := c.ID
	subject := c.SubjectIdentifier
	if subject == "" {
		subject = c.ContactAddress
	}
	req := &domain.LegalRequest{
		CaseID:            &caseID,
		OfficerName:       o.Name,
		Designation:       o.Designation,
		PoliceStation:     o.PoliceStation,
		ContactInfo:       o.ContactInfo,
		CaseNumber:        caseNumber(id),
		Recipient:         subject,
		RecipientEmail:    c.ContactAddress,
		SuspectIdentifier: subject,
		DateRange:         o.DateRange,
		DataRequested:     "All messages related to: " + c.ContentSnapshot,
		CasePurpose:       o.CasePurpose,
	}

	fields := RequestFields(req, d.now())
	fields["username"] = subject
	fields["email"] = c.ContactAddress
	fields["text"] = c.ContentSnapshot

	pdf, err := d.Renderer.Render(ctx, TemplateEscalation, fields)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: render escalation for case %s: %w", ErrDeliveryFailed, c.ID, err)
	}
	name := "crpc_" + strings.ReplaceAll(id, "-", "") + ".pdf"
	ref, err := d.Store.Save(ctx, name, pdf)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: store escalation for case %s: %w", ErrDeliveryFailed, c.ID, err)
	}
	req.DocumentRef = ref
	return req, &Attachment{Name: name, ContentType: pdfContentType, Data: pdf}, nil
}

// SendLegalRequest renders the officer request template for r, stores the
// document, emails it to r.RecipientEmail and fills r.DocumentRef and
// r.SentAt. Failures wrap ErrDeliveryFailed.
func (d *Dispatcher) SendLegalRequest(ctx context.Context, r *domain.LegalRequest) (Receipt, error) {
	tr := otel.Tracer("notify/Dispatcher")
	ctx, span := tr.Start(ctx, "SendLegalRequest",
		trace.WithAttributes(attribute.String("request.case_number", r.CaseNumber)),
	)
	defer span.End()

	if d.Transport == nil || d.Renderer == nil || d.Store == nil {
		return Receipt{}, fmt.Errorf("%w: legal requests need a transport, renderer and document store", ErrDeliveryFailed)
	}
	pdf, err := d.Renderer.Render(ctx, TemplateLegalRequest, RequestFields(r, d.now()))
	if err != nil {
		span.RecordError(err)
		return Receipt{}, fmt.Errorf("%w: render request %s: %w", ErrDeliveryFailed, r.CaseNumber, err)
	}
	name := "crpc_" + strings.ReplaceAll(d.newID(), "-", "") + ".pdf"
	ref, err := d.Store.Save(ctx, name, pdf)
	if err != nil {
		span.RecordError(err)
		return Receipt{}, fmt.Errorf("%w: store request %s: %w", ErrDeliveryFailed, r.CaseNumber, err)
	}
	r.DocumentRef = ref

	msg := Message{
		To:         r.RecipientEmail,
		Subject:    "Request under Section 91 CrPC - Case " + r.CaseNumber,
		Body:       legalRequestBody(r),
		Attachment: &Attachment{Name: name, ContentType: pdfContentType, Data: pdf},
	}
	if err := d.Transport.Send(ctx, msg); err != nil {
		span.RecordError(err)
		return Receipt{}, fmt.Errorf("%w: send request %s: %w", ErrDeliveryFailed, r.CaseNumber, err)
	}
	sent := d.now()
	r.SentAt = &sent
	return Receipt{To: r.RecipientEmail, Subject: msg.Subject, SentAt: sent, DocumentRef: ref, Request: r}, nil
}

// RequestFields flattens r into the field map shared by both request
// templates.
func RequestFields(r *domain.LegalRequest, generatedOn time.Time) map[string]string {
	return map[string]string{
		"officer_name":       r.OfficerName,
		"designation":        r.Designation,
		"police_station":     r.PoliceStation,
		"contact_info":       r.ContactInfo,
		"case_number":        r.CaseNumber,
		"recipient":          r.Recipient,
		"recipient_email":    r.RecipientEmail,
		"suspect_identifier": r.SuspectIdentifier,
		"date_range":         r.DateRange,
		"data_requested":     r.DataRequested,
		"case_purpose":       r.CasePurpose,
		"generated_on":       generatedOn.Format("2006-01-02 15:04"),
	}
}

func caseNumber(id string) string {
	hex := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(hex) > 8 {
		hex = hex[:8]
	}
	return "CASE-" + hex
}

// body renders a notice body around the flagged text.
func body(greeting, lead, text, closing, signature string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", greeting)
	if text != "" {
		fmt.Fprintf(&b, "%s\n---\n\"%s\"\n---\n\n", lead, text)
	} else {
		fmt.Fprintf(&b, "%s\n\n", lead)
	}
	fmt.Fprintf(&b, "%s\n\nRegards,\n%s\n", closing, signature)
	return b.String()
}

func greeting(c domain.Case) string {
	if s := strings.TrimSpace(c.SubjectIdentifier); s != "" {
		return s
	}
	return "User"
}

func warningMessage(c domain.Case, sig string) Message {
	return Message{
		Subject: "⚠ Suspicious Activity Detected",
		Body: body(greeting(c),
			"We've detected suspicious content linked to your recent activity:",
			c.ContentSnapshot,
			"This violates our usage policies. Please refrain from such content.\nIf this was a mistake, please reply within 48 hours.",
			sig),
	}
}

func followUpMessage(c domain.Case, sig string) Message {
	return Message{
		Subject: "⏰ Final Warning: Suspicious Activity",
		Body: body(greeting(c),
			"You were previously notified about suspicious content:",
			c.ContentSnapshot,
			"This is a final warning. If you do not respond within 24 hours, legal action under Section 91 CrPC may be initiated.",
			sig),
	}
}

func escalationMessage(c domain.Case, sig string) Message {
	return Message{
		Subject: "⚠ CrPC Escalation - No Response Received",
		Body: body(greeting(c),
			"No reply was received to our previous notices.",
			"",
			"Attached is a notice under Section 91 CrPC regarding your activity.",
			sig),
	}
}

func legalRequestBody(r *domain.LegalRequest) string {
	return fmt.Sprintf("Dear %s,\n\nPlease find attached a request under Section 91 CrPC for case %s.\n\nRegards,\n%s\n%s\n%s\n",
		r.Recipient, r.CaseNumber, r.OfficerName, r.Designation, r.ContactInfo)
}
