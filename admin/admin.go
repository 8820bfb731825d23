// ABOUTME: Admin mounts generated CRUD views for registered models on a ServeMux
// ABOUTME: Options cover naming, paging, form overrides, and view decoration

// Package admin serves a generated administrative interface over a
// datastore: an index of registered models, paginated listings, and
// add/edit/delete forms derived from model metadata.
package admin

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/2389/modeladmin/datastore"
	"github.com/2389/modeladmin/form"
)

// nameRegex bounds admin names to path-safe identifiers.
var nameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// Options configures one admin instance.
type Options struct {
	// Name is the mount name and default path prefix. Defaults to
	// "admin". Two admins with distinct names can share a mux.
	Name string
	// BasePath overrides the "/<name>" mount prefix.
	BasePath string
	// PageSize is the list page size, default 25.
	PageSize int
	// IncludePK renders primary keys as read-only form fields.
	IncludePK bool
	// Converter replaces the default form converter for generated
	// schemas. Stores with extra column types register theirs here.
	Converter *form.Converter
	// Forms overrides the generated schema per model name.
	Forms map[string]*form.Schema
	// Intro is Markdown rendered at the top of the index page.
	Intro string
	// Decorator wraps every view; the login wall plugs in here.
	Decorator func(http.HandlerFunc) http.HandlerFunc
}

// Admin owns the generated views over one datastore.
type Admin struct {
	store    datastore.Datastore
	name     string
	basePath string
	pageSize int
	schemas  map[string]*form.Schema
	intro    template.HTML
	decorate func(http.HandlerFunc) http.HandlerFunc
	logger   *slog.Logger
}

// New builds an admin over the store's registered models. Form schemas
// are generated once here; per-request state lives in the forms they
// instantiate.
func New(store datastore.Datastore, opts Options) (*Admin, error) {
	name := opts.Name
	if name == "" {
		name = "admin"
	}
	if !nameRegex.MatchString(name) {
		return nil, fmt.Errorf("admin name %q: must match %s", name, nameRegex)
	}

	basePath := opts.BasePath
	if basePath == "" {
		basePath = "/" + name
	}
	if !strings.HasPrefix(basePath, "/") || strings.HasSuffix(basePath, "/") {
		return nil, fmt.Errorf("base path %q: must start with a slash and not end with one", basePath)
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}

	a := &Admin{
		store:    store,
		name:     name,
		basePath: basePath,
		pageSize: pageSize,
		schemas:  make(map[string]*form.Schema),
		decorate: opts.Decorator,
		logger:   slog.Default().With("component", "admin", "admin", name),
	}
	if a.decorate == nil {
		a.decorate = func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	conv := opts.Converter
	if conv == nil {
		conv = form.NewConverter()
	}
	for _, model := range store.Registry().Models() {
		if override, ok := opts.Forms[model.Name]; ok && override != nil {
			a.schemas[model.Name] = override
			continue
		}
		a.schemas[model.Name] = form.ForModel(model, conv, opts.IncludePK)
	}

	if opts.Intro != "" {
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(opts.Intro), &buf); err != nil {
			return nil, fmt.Errorf("rendering intro markdown: %w", err)
		}
		a.intro = template.HTML(buf.String())
	}

	return a, nil
}

// Name returns the admin's mount name.
func (a *Admin) Name() string {
	return a.name
}

// BasePath returns the admin's mount prefix.
func (a *Admin) BasePath() string {
	return a.basePath
}

// RegisterRoutes registers every view on the mux. Paths end in {$}, so
// requests missing their trailing slash redirect onto it.
func (a *Admin) RegisterRoutes(mux *http.ServeMux) {
	base := a.basePath
	mux.HandleFunc("GET "+base+"/{$}", a.decorate(a.handleIndex))
	mux.HandleFunc("GET "+base+"/list/{model}/{$}", a.decorate(a.handleList))
	mux.HandleFunc("GET "+base+"/add/{model}/{$}", a.decorate(a.handleAddForm))
	mux.HandleFunc("POST "+base+"/add/{model}/{$}", a.decorate(a.handleAddSubmit))
	mux.HandleFunc("GET "+base+"/edit/{model}/{key}/{$}", a.decorate(a.handleEditForm))
	mux.HandleFunc("POST "+base+"/edit/{model}/{key}/{$}", a.decorate(a.handleEditSubmit))
	mux.HandleFunc("GET "+base+"/delete/{model}/{key}/{$}", a.decorate(a.handleDelete))

	a.logger.Info("admin routes registered", "base_path", base, "models", a.store.Registry().Len())
}

func (a *Admin) indexPath() string {
	return a.basePath + "/"
}

func (a *Admin) listPath(model string) string {
	return a.basePath + "/list/" + model + "/"
}

func (a *Admin) addPath(model string) string {
	return a.basePath + "/add/" + model + "/"
}

func (a *Admin) editPath(model, key string) string {
	return a.basePath + "/edit/" + model + "/" + url.PathEscape(key) + "/"
}

func (a *Admin) deletePath(model, key string) string {
	return a.basePath + "/delete/" + model + "/" + url.PathEscape(key) + "/"
}
