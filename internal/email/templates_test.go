package email

import (
	"strings"
	"testing"
)

func TestCatalogCoversSequenceStages(t *testing.T) {
	r, err := NewRenderer(Links{AppBaseURL: "https://app.example.com", WhatsAppURL: "https://wa.me/5215512345678"})
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	for _, name := range []string{"welcome", "followup_1", "followup_2", "followup_3"} {
		if !r.Has(name) {
			t.Fatalf("catalog missing %s", name)
		}
	}
	if len(r.Templates()) != 4 {
		t.Fatalf("expected 4 templates, got %v", r.Templates())
	}
}

func TestRenderWelcome(t *testing.T) {
	r, err := NewRenderer(Links{AppBaseURL: "https://app.example.com", WhatsAppURL: "https://wa.me/1"})
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	out, err := r.Render("welcome", Recipient{Name: "Ana López", BusinessType: "salon", City: "Monterrey"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out.Subject != "Ana, recibimos tu solicitud" {
		t.Fatalf("unexpected subject %q", out.Subject)
	}
	if !strings.Contains(out.HTML, "salón en Monterrey") {
		t.Fatalf("body missing business and city: %s", out.HTML)
	}
	if !strings.Contains(out.HTML, `href="https://app.example.com"`) {
		t.Fatalf("body missing app link")
	}
}

func TestRenderEscapesLeadInput(t *testing.T) {
	r, err := NewRenderer(Links{})
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	out, err := r.Render("followup_2", Recipient{Name: "<b>Eve</b>", BusinessType: "gym", City: "CDMX"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(out.HTML, "<b>Eve</b>") {
		t.Fatal("expected lead name to be escaped")
	}
	if strings.Contains(out.HTML, "<a href") {
		t.Fatal("expected no CTA button without a link")
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	r, err := NewRenderer(Links{})
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	if _, err := r.Render("followup_9", Recipient{Name: "Ana"}); err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestRecipientFallbacks(t *testing.T) {
	r := Recipient{Name: "   ", BusinessType: "bakery"}
	if r.FirstName() != "hola" {
		t.Fatalf("unexpected first name %q", r.FirstName())
	}
	if r.BusinessLabel() != "negocio" {
		t.Fatalf("unexpected label %q", r.BusinessLabel())
	}
}
