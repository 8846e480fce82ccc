package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeEmailConfig struct {
	enabled  bool
	provider string
}

func (f fakeEmailConfig) GetEmailEnabled() bool       { return f.enabled }
func (f fakeEmailConfig) GetEmailProvider() string    { return f.provider }
func (f fakeEmailConfig) GetBrevoAPIKey() string      { return "key" }
func (f fakeEmailConfig) GetSMTPHost() string         { return "smtp.example.com" }
func (f fakeEmailConfig) GetSMTPPort() int            { return 587 }
func (f fakeEmailConfig) GetSMTPUsername() string     { return "" }
func (f fakeEmailConfig) GetSMTPPassword() string     { return "" }
func (f fakeEmailConfig) GetEmailFromName() string    { return "Leadflow" }
func (f fakeEmailConfig) GetEmailFromAddress() string { return "hola@example.com" }

func TestNewSenderSelectsTransport(t *testing.T) {
	cases := []struct {
		name string
		cfg  fakeEmailConfig
		want string
	}{
		{"disabled", fakeEmailConfig{enabled: false, provider: "smtp"}, "noop"},
		{"brevo", fakeEmailConfig{enabled: true, provider: "brevo"}, "brevo"},
		{"smtp", fakeEmailConfig{enabled: true, provider: "smtp"}, "smtp"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSender(tc.cfg)
			if err != nil {
				t.Fatalf("NewSender: %v", err)
			}
			var got string
			switch s.(type) {
			case NoopSender:
				got = "noop"
			case *BrevoSender:
				got = "brevo"
			case *SMTPSender:
				got = "smtp"
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %T", tc.want, s)
			}
		})
	}

	if _, err := NewSender(fakeEmailConfig{enabled: true, provider: "pigeon"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNoopSenderReturnsID(t *testing.T) {
	res, err := NoopSender{}.Send(context.Background(), Message{To: "a@example.com"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.HasPrefix(res.ID, "noop-") {
		t.Fatalf("unexpected id %q", res.ID)
	}
}

func TestBrevoSenderParsesMessageID(t *testing.T) {
	var got brevoEmailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "secret" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<202610141200.abc@smtp-relay.mailin.fr>"}`))
	}))
	defer srv.Close()

	b := NewBrevoSender("secret", "Leadflow", "hola@example.com")
	b.endpoint = srv.URL

	res, err := b.Send(context.Background(), Message{
		To:      "ana@example.com",
		ToName:  "Ana",
		Subject: "Hola",
		HTML:    "<p>hola</p>",
		Tags:    []string{"welcome"},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.ID != "<202610141200.abc@smtp-relay.mailin.fr>" {
		t.Fatalf("unexpected id %q", res.ID)
	}
	if got.To[0].Email != "ana@example.com" || got.Sender.Email != "hola@example.com" {
		t.Fatalf("unexpected request %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "welcome" {
		t.Fatalf("expected welcome tag, got %v", got.Tags)
	}
}

func TestBrevoSenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"invalid_parameter"}`))
	}))
	defer srv.Close()

	b := NewBrevoSender("secret", "Leadflow", "hola@example.com")
	b.endpoint = srv.URL

	_, err := b.Send(context.Background(), Message{To: "ana@example.com"})
	if err == nil || !strings.Contains(err.Error(), "status 400") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestSMTPBuildMessageSetsMessageID(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "", "", "hola@example.com", "Leadflow")
	m, err := s.buildMessage(Message{To: "ana@example.com", ToName: "Ana", Subject: "Hola", HTML: "<p>hola</p>"})
	if err != nil {
		t.Fatalf("buildMessage: %v", err)
	}
	if m.GetMessageID() == "" {
		t.Fatal("expected generated message id")
	}

	if _, err := s.buildMessage(Message{To: "not-an-address"}); err == nil {
		t.Fatal("expected error for invalid recipient")
	}
}
