package app

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin/render"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/simp-lee/salesboard/internal/dashboard"
)

// TemplateRenderer is a gin HTML renderer with layout and partial
// inheritance.
//
// Every page under templates/ (outside layouts/ and partials/) is compiled on
// top of a clone of the shared layouts and partials, so a page defines the
// "title" and "content" blocks and invokes {{ template "base" . }}. In debug
// mode the whole set is re-parsed on each render; otherwise it is parsed once
// at startup.
type TemplateRenderer struct {
	templates map[string]*template.Template // release mode only
	fs        fs.FS
	funcMap   template.FuncMap
	debug     bool
}

var _ render.HTMLRender = (*TemplateRenderer)(nil)

// NewTemplateRenderer creates a TemplateRenderer over fsys, which must hold a
// templates/ directory laid out as:
//
//	templates/
//	  layouts/   page skeleton (base.html)
//	  partials/  shared fragments (sale form, pager)
//	  sales/     dashboard and entry form pages
//	  errors/    error pages
func NewTemplateRenderer(fsys fs.FS, debug bool) (*TemplateRenderer, error) {
	r := &TemplateRenderer{
		fs:      fsys,
		funcMap: templateFuncMap(),
		debug:   debug,
	}

	if !debug {
		templates, err := r.parseAllTemplates()
		if err != nil {
			return nil, fmt.Errorf("parse templates: %w", err)
		}
		r.templates = templates
	}

	return r, nil
}

// Instance returns a render.Render for the page name relative to templates/,
// e.g. "sales/dashboard.html".
func (r *TemplateRenderer) Instance(name string, data any) render.Render {
	templates := r.templates
	if r.debug {
		var err error
		if templates, err = r.parseAllTemplates(); err != nil {
			return &HTMLInstance{Name: name, err: err}
		}
	}

	return &HTMLInstance{
		Template: templates[name],
		Name:     name,
		Data:     data,
	}
}

func (r *TemplateRenderer) parseAllTemplates() (map[string]*template.Template, error) {
	layoutFiles, err := fs.Glob(r.fs, "templates/layouts/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob layouts: %w", err)
	}
	partialFiles, err := fs.Glob(r.fs, "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob partials: %w", err)
	}

	base := template.New("").Funcs(r.funcMap)
	for _, f := range append(layoutFiles, partialFiles...) {
		if err := parseFile(base, r.fs, f, f); err != nil {
			return nil, err
		}
	}

	pageFiles, err := r.discoverPageTemplates()
	if err != nil {
		return nil, fmt.Errorf("discover pages: %w", err)
	}

	templates := make(map[string]*template.Template, len(pageFiles))
	for _, pf := range pageFiles {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone base for %s: %w", pf, err)
		}
		name := strings.TrimPrefix(pf, "templates/")
		if err := parseFile(clone, r.fs, pf, name); err != nil {
			return nil, err
		}
		templates[name] = clone
	}

	return templates, nil
}

func parseFile(set *template.Template, fsys fs.FS, path, name string) error {
	content, err := fs.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if _, err := set.New(name).Parse(string(content)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// discoverPageTemplates lists .html files under templates/ outside layouts/
// and partials/.
func (r *TemplateRenderer) discoverPageTemplates() ([]string, error) {
	var pages []string
	err := fs.WalkDir(r.fs, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		rel := strings.TrimPrefix(path, "templates/")
		if strings.HasPrefix(rel, "layouts/") || strings.HasPrefix(rel, "partials/") {
			return nil
		}
		pages = append(pages, path)
		return nil
	})
	return pages, err
}

func templateFuncMap() template.FuncMap {
	return template.FuncMap{
		// json embeds v in a <script> or attribute without re-escaping.
		"json": func(v any) template.JS {
			b, err := json.Marshal(v)
			if err != nil {
				return template.JS("null")
			}
			return template.JS(b)
		},

		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02 15:04:05")
		},

		// money renders a KPI amount rounded half away from zero to 2 places.
		"money": func(symbol string, amount float64) string {
			return symbol + decimal.NewFromFloat(amount).StringFixed(2)
		},

		// number renders a price the way exports do: 100 as "100", 99.5 as "99.5".
		"number": dashboard.FormatNumber,

		// pageURL links base to st moved to page, keeping the filter.
		"pageURL": pageURL,

		"add": func(a, b int) int {
			return a + b
		},

		"sub": func(a, b int) int {
			return a - b
		},
	}
}

func pageURL(base string, st dashboard.State, page int) string {
	q := st.WithPage(page).Query().Encode()
	if q == "" {
		return base
	}
	return base + "?" + q
}

// HTMLInstance executes one page template. It is returned by
// TemplateRenderer.Instance.
type HTMLInstance struct {
	Template *template.Template
	Name     string
	Data     any
	err      error // parse failure in debug mode
}

const htmlContentType = "text/html; charset=utf-8"

// Render writes the template output to w.
func (h *HTMLInstance) Render(w http.ResponseWriter) error {
	h.WriteContentType(w)
	if h.err != nil {
		return h.err
	}
	if h.Template == nil {
		return fmt.Errorf("template %q not found", h.Name)
	}
	return h.Template.ExecuteTemplate(w, h.Name, h.Data)
}

// WriteContentType sets text/html unless a Content-Type is already present.
func (h *HTMLInstance) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = []string{htmlContentType}
	}
}
