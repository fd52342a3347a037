package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/facturapro/facturapro/internal/money"
	"github.com/facturapro/facturapro/internal/shared"
	"github.com/facturapro/facturapro/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	// Identity drives the navigation; handlers still pass owner ids explicitly.
	Identity shared.Identity
	Data     any
}

// FuncMap returns the helpers available to page templates.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006 15:04")
		},
		"formatMoney": func(c money.Currency, amount decimal.Decimal) string {
			return c.FormatGrouped(amount)
		},
		"shortID": func(id fmt.Stringer) string {
			s := id.String()
			if len(s) > 8 {
				return s[:8]
			}
			return s
		},
		"currencies": func() []money.Currency {
			return money.Currencies
		},
		"hasPrefix": strings.HasPrefix,
		"same": func(a, b any) bool {
			return fmt.Sprint(a) == fmt.Sprint(b)
		},
	}
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("root").Funcs(FuncMap()).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData. The page is rendered
// into a buffer first so a template failure never leaves half a page on the
// wire.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus is Render with an explicit status code.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
