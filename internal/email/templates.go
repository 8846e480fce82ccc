package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"sort"
	"strings"
	texttemplate "text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates/base.html templates/catalog.yaml
var templateFS embed.FS

// Links resolves the call-to-action targets named in the catalog.
type Links struct {
	AppBaseURL  string
	WhatsAppURL string
}

func (l Links) resolve(name string) string {
	switch name {
	case "app":
		return l.AppBaseURL
	case "whatsapp":
		return l.WhatsAppURL
	default:
		return ""
	}
}

// Recipient holds the lead fields available to copy.
type Recipient struct {
	Name         string
	Email        string
	BusinessType string
	City         string
}

// FirstName is the first word of Name.
func (r Recipient) FirstName() string {
	fields := strings.Fields(r.Name)
	if len(fields) == 0 {
		return "hola"
	}
	return fields[0]
}

var businessLabels = map[string]string{
	"salon":      "salón",
	"restaurant": "restaurante",
	"clinic":     "clínica",
	"dentist":    "consultorio dental",
	"spa":        "spa",
	"gym":        "gimnasio",
	"retail":     "tienda",
}

// BusinessLabel is the Spanish noun for BusinessType.
func (r Recipient) BusinessLabel() string {
	if label, ok := businessLabels[r.BusinessType]; ok {
		return label
	}
	return "negocio"
}

// Rendered is a ready-to-send subject and body.
type Rendered struct {
	Subject string
	HTML    string
}

type stageCopy struct {
	Subject    string   `yaml:"subject"`
	Preheader  string   `yaml:"preheader"`
	Heading    string   `yaml:"heading"`
	Paragraphs []string `yaml:"paragraphs"`
	CTALabel   string   `yaml:"cta_label"`
	CTALink    string   `yaml:"cta_link"`
}

type compiledCopy struct {
	subject    *texttemplate.Template
	preheader  *texttemplate.Template
	heading    *texttemplate.Template
	paragraphs []*texttemplate.Template
	ctaLabel   string
	ctaLink    string
}

type baseEmailData struct {
	Title      string
	Preheader  string
	Heading    string
	Paragraphs []string
	CTALabel   string
	CTAURL     string
}

// Renderer renders catalog templates into HTML emails.
type Renderer struct {
	base   *htmltemplate.Template
	stages map[string]compiledCopy
	links  Links
}

// NewRenderer parses the embedded layout and copy catalog.
func NewRenderer(links Links) (*Renderer, error) {
	base, err := htmltemplate.ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parse email layout: %w", err)
	}

	raw, err := templateFS.ReadFile("templates/catalog.yaml")
	if err != nil {
		return nil, fmt.Errorf("read email catalog: %w", err)
	}
	var catalog map[string]stageCopy
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("decode email catalog: %w", err)
	}

	compiled := make(map[string]compiledCopy, len(catalog))
	for name, sc := range catalog {
		cc, err := compileCopy(name, sc)
		if err != nil {
			return nil, err
		}
		compiled[name] = cc
	}

	return &Renderer{base: base, stages: compiled, links: links}, nil
}

func compileCopy(name string, sc stageCopy) (compiledCopy, error) {
	parse := func(field, src string) (*texttemplate.Template, error) {
		t, err := texttemplate.New(name + "." + field).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("email catalog %s.%s: %w", name, field, err)
		}
		return t, nil
	}

	if sc.Subject == "" {
		return compiledCopy{}, fmt.Errorf("email catalog %s: subject is required", name)
	}

	var (
		cc  = compiledCopy{ctaLabel: sc.CTALabel, ctaLink: sc.CTALink}
		err error
	)
	if cc.subject, err = parse("subject", sc.Subject); err != nil {
		return compiledCopy{}, err
	}
	if cc.preheader, err = parse("preheader", sc.Preheader); err != nil {
		return compiledCopy{}, err
	}
	if cc.heading, err = parse("heading", sc.Heading); err != nil {
		return compiledCopy{}, err
	}
	for i, p := range sc.Paragraphs {
		t, err := parse(fmt.Sprintf("paragraphs[%d]", i), p)
		if err != nil {
			return compiledCopy{}, err
		}
		cc.paragraphs = append(cc.paragraphs, t)
	}
	return cc, nil
}

// Templates lists the catalog entries in name order.
func (r *Renderer) Templates() []string {
	names := make([]string, 0, len(r.stages))
	for name := range r.stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the catalog contains name.
func (r *Renderer) Has(name string) bool {
	_, ok := r.stages[name]
	return ok
}

// Render produces the subject and HTML body of template name for to.
func (r *Renderer) Render(name string, to Recipient) (Rendered, error) {
	cc, ok := r.stages[name]
	if !ok {
		return Rendered{}, fmt.Errorf("unknown email template %q", name)
	}

	exec := func(t *texttemplate.Template) (string, error) {
		var buf bytes.Buffer
		if err := t.Execute(&buf, to); err != nil {
			return "", fmt.Errorf("render %s: %w", t.Name(), err)
		}
		return buf.String(), nil
	}

	subject, err := exec(cc.subject)
	if err != nil {
		return Rendered{}, err
	}
	data := baseEmailData{Title: subject, CTALabel: cc.ctaLabel, CTAURL: r.links.resolve(cc.ctaLink)}
	if data.Preheader, err = exec(cc.preheader); err != nil {
		return Rendered{}, err
	}
	if data.Heading, err = exec(cc.heading); err != nil {
		return Rendered{}, err
	}
	for _, p := range cc.paragraphs {
		text, err := exec(p)
		if err != nil {
			return Rendered{}, err
		}
		data.Paragraphs = append(data.Paragraphs, text)
	}

	var html bytes.Buffer
	if err := r.base.ExecuteTemplate(&html, "email", data); err != nil {
		return Rendered{}, fmt.Errorf("render %s layout: %w", name, err)
	}
	return Rendered{Subject: subject, HTML: html.String()}, nil
}
