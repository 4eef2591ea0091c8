package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/go-pdf/fpdf"
)

const escalationTemplate = `To:
{{.recipient}}

Subject: Request under Section 91 CrPC - Case {{.case_number}} (auto escalated)

Respected Sir/Madam,

Based on prior warnings sent about suspicious activity from this account, and no reply received within the expected time window, we are issuing this request under Section 91 CrPC.

Suspect details:
- Username: {{.username}}
- Email: {{.email}}
- Flagged text: {{.text}}

Please provide the following information for {{.date_range}}:
- {{.data_requested}}

This is needed for: {{.case_purpose}}

Regards,
{{.officer_name}}, {{.designation}}, {{.police_station}}
{{.contact_info}}
`

const legalRequestTemplate = `To: {{.recipient}}

Subject: Request under Section 91 CrPC - Case {{.case_number}}

Dear Sir/Madam,

I am {{.officer_name}}, {{.designation}}, {{.police_station}}.

Please provide the following information related to:
- Suspect: {{.suspect_identifier}}
- Date range: {{.date_range}}
- Requested info: {{.data_requested}}

This is needed for: {{.case_purpose}}

Regards,
{{.officer_name}}
{{.contact_info}}
`

type docTemplate struct {
	title string
	body  *template.Template
}

// PDFRenderer renders registered text templates into A4 PDF documents.
// Template lines starting with "- " are laid out as bullets; blank lines
// separate paragraphs. Missing fields are an error.
type PDFRenderer struct {
	mu        sync.RWMutex
	templates map[string]docTemplate
}

// NewPDFRenderer returns a renderer with the escalation and legal request
// templates registered.
func NewPDFRenderer() *PDFRenderer {
	r := &PDFRenderer{templates: map[string]docTemplate{}}
	r.MustRegister(TemplateEscalation, "CrPC 91 Notice", escalationTemplate)
	r.MustRegister(TemplateLegalRequest, "Section 91 CrPC Request", legalRequestTemplate)
	return r
}

// Register parses text and stores it under id, replacing any previous
// template with that id.
func (r *PDFRenderer) Register(id, title, text string) error {
	t, err := template.New(id).Option("missingkey=error").Parse(text)
	if err != nil {
		return fmt.Errorf("parse template %s: %w", id, err)
	}
	r.mu.Lock()
	r.templates[id] = docTemplate{title: title, body: t}
	r.mu.Unlock()
	return nil
}

// MustRegister is Register that panics on a parse error.
func (r *PDFRenderer) MustRegister(id, title, text string) {
	if err := r.Register(id, title, text); err != nil {
		panic(err)
	}
}

// Render executes template id with fields and lays the result out as a PDF.
func (r *PDFRenderer) Render(ctx context.Context, templateID string, fields map[string]string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	t, ok := r.templates[templateID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, templateID)
	}

	var text bytes.Buffer
	if err := t.body.Execute(&text, fields); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", templateID, err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetTitle(t.title, true)
	pdf.SetCreator("noticed", false)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 8, tr(t.title), "", "C", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	for _, line := range strings.Split(strings.TrimRight(text.String(), "\n"), "\n") {
		switch {
		case strings.TrimSpace(line) == "":
			pdf.Ln(3)
		case strings.HasPrefix(line, "- "):
			pdf.SetX(26)
			pdf.MultiCell(0, 6, tr("• "+strings.TrimPrefix(line, "- ")), "", "L", false)
		default:
			pdf.MultiCell(0, 6, tr(line), "", "L", false)
		}
	}

	if gen := fields["generated_on"]; gen != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, tr("Generated on "+gen), "", "L", false)
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("write pdf %s: %w", templateID, err)
	}
	return out.Bytes(), nil
}
