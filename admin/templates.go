// ABOUTME: Template rendering functions for the generated admin pages
// ABOUTME: Loads templates from the embedded filesystem and renders them

package admin

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/2389/modeladmin/datastore"
	"github.com/2389/modeladmin/form"
	"github.com/2389/modeladmin/metadata"
)

// Template data types
type indexData struct {
	Title     string
	AdminName string
	BasePath  string
	Models    []string
	Intro     template.HTML
	Actions   []*datastore.Action
	Flash     *flashMessage
}

type pageLink struct {
	Num     int
	URL     string
	Current bool
	Gap     bool
}

type listRow struct {
	Key       string
	Cells     []string
	EditURL   string
	DeleteURL string
}

type listData struct {
	Title     string
	AdminName string
	BasePath  string
	ModelName string
	Columns   []string
	Rows      []listRow
	Total     int
	AddURL    string
	PrevURL   string
	NextURL   string
	Pages     []pageLink
	Flash     *flashMessage
}

type formData struct {
	Title     string
	AdminName string
	BasePath  string
	ModelName string
	Action    string
	ListURL   string
	Fields    []*form.BoundField
	Error     string
	Flash     *flashMessage
}

// renderIndexPage renders the model directory
func (a *Admin) renderIndexPage(w http.ResponseWriter, models []string, actions []*datastore.Action, flash *flashMessage) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/partials/*.html", "templates/index.html"))

	data := indexData{
		Title:     a.name,
		AdminName: a.name,
		BasePath:  a.basePath,
		Models:    models,
		Intro:     a.intro,
		Actions:   actions,
		Flash:     flash,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		a.logger.Error("failed to render index page", "error", err)
	}
}

// renderListPage renders one page of a model listing. Many-relation
// fields live in join structures, not columns, so they stay off the
// table.
func (a *Admin) renderListPage(w http.ResponseWriter, model *metadata.Model, pg *datastore.Pagination, flash *flashMessage) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/partials/*.html", "templates/list.html"))

	data := listData{
		Title:     model.Name + " list",
		AdminName: a.name,
		BasePath:  a.basePath,
		ModelName: model.Name,
		Total:     pg.Total,
		AddURL:    a.addPath(model.Name),
		Flash:     flash,
	}
	for _, f := range model.Fields {
		if f.Many {
			continue
		}
		data.Columns = append(data.Columns, f.Label)
	}
	for _, inst := range pg.Items {
		row := listRow{
			Key:       inst.Key(),
			EditURL:   a.editPath(model.Name, inst.Key()),
			DeleteURL: a.deletePath(model.Name, inst.Key()),
		}
		for _, f := range model.Fields {
			if f.Many {
				continue
			}
			row.Cells = append(row.Cells, displayValue(inst.Get(f)))
		}
		data.Rows = append(data.Rows, row)
	}
	if pg.HasPrev() {
		data.PrevURL = a.pageURL(model.Name, pg.PrevNum())
	}
	if pg.HasNext() {
		data.NextURL = a.pageURL(model.Name, pg.NextNum())
	}
	for _, num := range pg.Iter() {
		if num == 0 {
			data.Pages = append(data.Pages, pageLink{Gap: true})
			continue
		}
		data.Pages = append(data.Pages, pageLink{
			Num:     num,
			URL:     a.pageURL(model.Name, num),
			Current: num == pg.Page,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		a.logger.Error("failed to render list page", "error", err)
	}
}

// renderFormPage renders the add and edit forms
func (a *Admin) renderFormPage(w http.ResponseWriter, title, model, action string, f *form.Form, errorMsg string, flash *flashMessage) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/partials/*.html", "templates/form.html"))

	data := formData{
		Title:     title,
		AdminName: a.name,
		BasePath:  a.basePath,
		ModelName: model,
		Action:    action,
		ListURL:   a.listPath(model),
		Fields:    f.Fields(),
		Error:     errorMsg,
		Flash:     flash,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		a.logger.Error("failed to render form page", "error", err)
	}
}

func (a *Admin) pageURL(model string, page int) string {
	return a.listPath(model) + "?page=" + strconv.Itoa(page)
}
