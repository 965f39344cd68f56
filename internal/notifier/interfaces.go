package notifier

import (
	"embed"
	"fmt"
	"html/template"
)

// Template names, matching the files under templates/.
const (
	TemplateLeadCreated       = "lead_created"
	TemplateTwoFactorEnabled  = "two_factor_enabled"
	TemplateTwoFactorDisabled = "two_factor_disabled"
)

type INotifier interface {
	NotifyFromTemplate(to string, subject string, templateName string, data any) error
}

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

func lookupTemplate(name string) (*template.Template, error) {
	tpl := templates.Lookup(name + ".html")
	if tpl == nil {
		return nil, fmt.Errorf("unknown notification template %q", name)
	}
	return tpl, nil
}
