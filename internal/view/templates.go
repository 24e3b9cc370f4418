// Package view renders the back-office HTML pages.
package view

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/odyssey-commerce/storefront/internal/pricing"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
	"github.com/odyssey-commerce/storefront/web"
)

// Engine renders the embedded page templates.
type Engine struct {
	pages *template.Template
}

// TemplateData is the root value passed to every page.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Notice      string
	CurrentPath string
	Identity    *shared.Identity
	Data        any
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format("02 Jan 2006 15:04")
		},
		"formatCents": pricing.FormatCents,
		// can hides navigation the viewer's role would be refused anyway.
		"can": func(who *shared.Identity, capability string) bool {
			if who == nil {
				return false
			}
			c, err := rbac.ParseCapability(capability)
			if err != nil {
				return false
			}
			return rbac.HasPermission(who.Role, c)
		},
	}
}

// NewEngine parses the layouts and pages embedded in the binary.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("root").Funcs(funcs()).ParseFS(web.Templates, web.LayoutGlob, web.PageGlob)
	if err != nil {
		return nil, fmt.Errorf("view: parse templates: %w", err)
	}
	return &Engine{pages: tpl}, nil
}

// Render executes the page into a buffer and only then writes status and body,
// so a template failure never leaves a half-written page behind.
func (e *Engine) Render(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil || e.pages == nil {
		return errors.New("view: engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.pages.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return fmt.Errorf("view: render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
