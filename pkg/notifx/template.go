package notifx

import (
	"bytes"
	"html/template"
	"sync"
)

// TemplateRegistry holds the parsed email bodies by name. Rendering is
// strict: a template that references a key absent from its data fails
// instead of silently producing "<no value>" in an outgoing email.
type TemplateRegistry struct {
	templates map[string]*template.Template
	mu        sync.RWMutex
}

func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{
		templates: make(map[string]*template.Template),
	}
}

// Register parses tmplString and stores it under name, replacing any
// earlier registration.
func (r *TemplateRegistry) Register(name, tmplString string) error {
	t, err := template.New(name).Option("missingkey=error").Parse(tmplString)
	if err != nil {
		return notifxErrors.NewWithCause(ErrTemplateParse, err).WithDetail("template", name)
	}

	r.mu.Lock()
	r.templates[name] = t
	r.mu.Unlock()

	return nil
}

// Render executes the named template against data. HTML escaping follows
// html/template rules, so untrusted values in data come out inert.
func (r *TemplateRegistry) Render(name string, data interface{}) (string, error) {
	r.mu.RLock()
	t, ok := r.templates[name]
	r.mu.RUnlock()

	if !ok {
		return "", notifxErrors.New(ErrTemplateNotFound).WithDetail("template", name)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", notifxErrors.NewWithCause(ErrTemplateRender, err).WithDetail("template", name)
	}

	return buf.String(), nil
}
