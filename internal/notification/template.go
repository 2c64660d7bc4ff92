package notification

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var subjects = map[Kind]string{
	KindBudgetAlert:     "Budget alert: {{.budget_name}} is at {{.usage_percentage}}%",
	KindExpenseApproved: "Your expense \"{{.title}}\" was approved",
	KindExpenseRejected: "Your expense \"{{.title}}\" was rejected",
}

// Renderer turns a Message into an email subject and HTML body.
type Renderer struct {
	bodies   *template.Template
	subjects map[Kind]*texttemplate.Template
}

func NewRenderer() (*Renderer, error) {
	bodies, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse notification templates: %w", err)
	}

	parsed := make(map[Kind]*texttemplate.Template, len(subjects))
	for kind, raw := range subjects {
		t, err := texttemplate.New(string(kind)).Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse subject %s: %w", kind, err)
		}
		parsed[kind] = t
	}
	return &Renderer{bodies: bodies, subjects: parsed}, nil
}

type view struct {
	Recipient Recipient
	Payload   map[string]interface{}
}

func (r *Renderer) Render(msg Message) (string, string, error) {
	subjectTmpl, ok := r.subjects[msg.Kind]
	if !ok {
		return "", "", fmt.Errorf("unknown notification kind %q", msg.Kind)
	}

	var subject bytes.Buffer
	if err := subjectTmpl.Execute(&subject, msg.Payload); err != nil {
		return "", "", err
	}

	var body bytes.Buffer
	if err := r.bodies.ExecuteTemplate(&body, string(msg.Kind)+".html", view{Recipient: msg.Recipient, Payload: msg.Payload}); err != nil {
		return "", "", err
	}
	return subject.String(), body.String(), nil
}
