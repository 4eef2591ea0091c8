package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestPDFRenderer_RendersBuiltInTemplates(t *testing.T) {
	r := NewPDFRenderer()
	fields := map[string]string{
		"officer_name":       "Inspector General",
		"designation":        "Cyber Cell",
		"police_station":     "HQ",
		"contact_info":       "cell@example.gov",
		"case_number":        "CASE-1",
		"recipient":          "alice",
		"recipient_email":    "alice@example.com",
		"suspect_identifier": "alice",
		"date_range":         "Last 30 days",
		"data_requested":     "All messages",
		"case_purpose":       "Investigation",
		"generated_on":       time.Now().Format("2006-01-02 15:04"),
		"username":           "alice",
		"email":              "alice@example.com",
		"text":               "crypto – “quoted” ünïcode",
	}
	for _, id := range []string{TemplateEscalation, TemplateLegalRequest} {
		out, err := r.Render(context.Background(), id, fields)
		if err != nil {
			t.Fatalf("Render(%s): %v", id, err)
		}
		if !bytes.HasPrefix(out, []byte("%PDF-")) {
			t.Fatalf("Render(%s) did not produce a PDF header", id)
		}
	}
}

func TestPDFRenderer_Errors(t *testing.T) {
	r := NewPDFRenderer()

	if _, err := r.Render(context.Background(), "nope", nil); !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("expected ErrUnknownTemplate, got %v", err)
	}
	if _, err := r.Render(context.Background(), TemplateLegalRequest, map[string]string{"recipient": "x"}); err == nil {
		t.Fatalf("expected missing field error")
	}
	if err := r.Register("broken", "Broken", "{{.unclosed"); err == nil {
		t.Fatalf("expected parse error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Render(ctx, TemplateEscalation, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPDFRenderer_CustomTemplate(t *testing.T) {
	r := NewPDFRenderer()
	r.MustRegister("memo", "Memo", "Hello {{.name}}\n- one\n\n- two\n")
	out, err := r.Render(context.Background(), "memo", map[string]string{"name": "Bob"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("empty pdf")
	}
}
