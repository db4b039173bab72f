// Package web embeds the page templates and static assets and renders the
// server-side pages.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/sentinel-auth/internal/domain"
	"github.com/ashureev/sentinel-auth/internal/safebrowsing"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed all:static
var staticFS embed.FS

// Page names accepted by Render.
const (
	PageLogin    = "login"
	PageChat     = "chat"
	PageSecurity = "security"
)

// Section labels shown in the sidebar selector.
const (
	SectionChat     = "Wikipedia Chatbot"
	SectionSecurity = "Security Tools"
)

// Login form states.
const (
	LoginIdle     = "not_attempted"
	LoginRejected = "rejected"
)

// PageData is the view model shared by every page.
type PageData struct {
	Session *domain.Session

	// Login page.
	LoginState string
	Username   string

	// Chatbot section.
	Messages []domain.Message

	// Security Tools section.
	SecurityError   string
	URL             string
	ValidationError string
	Verdict         *safebrowsing.Verdict
}

// sectionLabel returns the sidebar label of page.
func sectionLabel(page string) string {
	if page == PageSecurity {
		return SectionSecurity
	}
	return SectionChat
}

// Renderer executes the embedded templates.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"isUser":  func(r domain.Role) bool { return r == domain.RoleUser },
	"section": sectionLabel,
}

// NewRenderer parses every page together with the shared layout.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, page := range []string{PageLogin, PageChat, PageSecurity} {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", page, err)
		}
		r.pages[page] = tmpl
	}
	return r, nil
}

// Render writes page with the given status. The page is rendered into a
// buffer first so a template error never leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data PageData) {
	tmpl, ok := r.pages[page]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", struct {
		PageData
		Page string
	}{data, page}); err != nil {
		slog.Error("Failed to render page", "page", page, "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("web: failed to write page", "page", page, "error", err)
	}
}

// StaticHandler serves the embedded assets under /static/.
func StaticHandler() http.Handler {
	subFS, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(subFS)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No directory listings.
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}
