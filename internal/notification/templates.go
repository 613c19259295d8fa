package notification

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	notificationDomain "github.com/mindsettler/service-booking/internal/domain/notification"
)

//go:embed templates/*.html
var templateFS embed.FS

var subjects = map[notificationDomain.Template]string{
	notificationDomain.TemplateVerification:        "Verify your email for MindSettler",
	notificationDomain.TemplateCancellationRequest: "Confirm cancellation request - MindSettler",
	notificationDomain.TemplateApproved:            "Your MindSettler session has been approved",
	notificationDomain.TemplateRejected:            "Update on your MindSettler booking",
	notificationDomain.TemplateConfirmed:           "Your MindSettler session is confirmed",
}

// Renderer turns a template name and data into a subject and HTML body.
type Renderer struct {
	templates map[notificationDomain.Template]*template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[notificationDomain.Template]*template.Template, len(subjects))}
	for name := range subjects {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+string(name)+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

// Render executes the named template.
func (r *Renderer) Render(name notificationDomain.Template, data TemplateData) (subject, body string, err error) {
	t, ok := r.templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown template %s", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, string(name)+".html", data); err != nil {
		return "", "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return subjects[name], buf.String(), nil
}
