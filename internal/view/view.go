package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/spec-kit/account-portal/internal/validation"
)

// Layout is the base template every page renders into.
const Layout = "layout"

//go:embed templates/*.html
var content embed.FS

var funcs = template.FuncMap{
	"fieldErrors": func(errs validation.Errors, field string) []string {
		return errs[field]
	},
}

// Engine implements fiber.Views over the embedded templates.
type Engine struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
}

func New() *Engine {
	return &Engine{}
}

// Load parses the layout and pairs it with every page.
func (e *Engine) Load() error {
	base, err := template.New(Layout).Funcs(funcs).ParseFS(content, "templates/"+Layout+".html")
	if err != nil {
		return fmt.Errorf("parse layout: %w", err)
	}

	pages, err := fs.Glob(content, "templates/*.html")
	if err != nil {
		return err
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		name := strings.TrimSuffix(strings.TrimPrefix(page, "templates/"), ".html")
		if name == Layout {
			continue
		}
		tmpl, err := template.Must(base.Clone()).ParseFS(content, page)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		templates[name] = tmpl
	}

	e.mu.Lock()
	e.templates = templates
	e.mu.Unlock()
	return nil
}

// Render writes page name. Without a layout only the page content is written.
func (e *Engine) Render(w io.Writer, name string, binding interface{}, layout ...string) error {
	e.mu.RLock()
	loaded := e.templates != nil
	e.mu.RUnlock()
	if !loaded {
		if err := e.Load(); err != nil {
			return err
		}
	}

	e.mu.RLock()
	tmpl, ok := e.templates[name]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("view %q not found", name)
	}

	entry := "content"
	if len(layout) > 0 && layout[0] != "" {
		entry = layout[0]
	}
	return tmpl.ExecuteTemplate(w, entry, binding)
}
