// ABOUTME: HTTP handlers for the index, list, add, edit, and delete views
// ABOUTME: Success flows flash and redirect; failures re-render with the error

package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/2389/modeladmin/datastore"
	"github.com/2389/modeladmin/form"
	"github.com/2389/modeladmin/metadata"
)

// handleIndex renders the model directory with recent actions.
func (a *Admin) handleIndex(w http.ResponseWriter, r *http.Request) {
	var actions []*datastore.Action
	if auditor, ok := a.store.(datastore.Auditor); ok {
		var err error
		actions, err = auditor.RecentActions(r.Context(), 10)
		if err != nil {
			a.logger.Warn("failed to load recent actions", "error", err)
			actions = nil
		}
	}
	a.renderIndexPage(w, a.store.Registry().Names(), actions, a.consumeFlash(w, r))
}

// handleList renders one page of a model listing.
func (a *Admin) handleList(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("model")
	model, ok := a.store.Registry().Lookup(name)
	if !ok {
		a.renderNotRegistered(w, name)
		return
	}

	page := parsePage(r.URL.Query().Get("page"))
	pg, err := a.store.FindPage(r.Context(), name, page, a.pageSize)
	if err != nil {
		a.serverError(w, "list", name, err)
		return
	}

	a.renderListPage(w, model, pg, a.consumeFlash(w, r))
}

// handleAddForm renders an empty form for a new instance.
func (a *Admin) handleAddForm(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("model")
	schema, ok := a.schemas[name]
	if !ok {
		a.renderNotRegistered(w, name)
		return
	}

	f := schema.New()
	a.loadChoices(r.Context(), f)
	a.renderFormPage(w, "Add "+name, name, a.addPath(name), f, "", a.consumeFlash(w, r))
}

// handleAddSubmit validates the submission and saves a new instance.
func (a *Admin) handleAddSubmit(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("model")
	schema, ok := a.schemas[name]
	if !ok {
		a.renderNotRegistered(w, name)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	f := schema.New()
	a.loadChoices(r.Context(), f)
	f.Process(r.PostForm)
	if !f.Validate() {
		a.renderFormPage(w, "Add "+name, name, a.addPath(name), f, formErrorMessage(name), nil)
		return
	}

	inst := schema.Model().New()
	if err := f.Apply(inst); err != nil {
		a.logger.Error("failed to apply form", "model", name, "error", err)
		a.renderFormPage(w, "Add "+name, name, a.addPath(name), f, formErrorMessage(name), nil)
		return
	}
	if err := a.store.Save(r.Context(), name, inst); err != nil {
		a.logger.Error("failed to save instance", "model", name, "error", err)
		a.renderFormPage(w, "Add "+name, name, a.addPath(name), f, formErrorMessage(name), nil)
		return
	}

	a.audit(r.Context(), datastore.ActionAdd, name, inst)
	a.setFlash(w, fmt.Sprintf("%s added: %s", name, inst.Display()), flashSuccess)
	http.Redirect(w, r, a.listPath(name), http.StatusSeeOther)
}

// handleEditForm renders the form filled from an existing instance.
func (a *Admin) handleEditForm(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("model")
	key := r.PathValue("key")
	schema, ok := a.schemas[name]
	if !ok {
		a.renderNotRegistered(w, name)
		return
	}

	inst, err := a.store.Find(r.Context(), name, key)
	if err != nil {
		a.renderFindError(w, name, key, err)
		return
	}

	f := schema.New()
	a.loadChoices(r.Context(), f)
	f.FillFrom(inst)
	a.renderFormPage(w, "Edit "+name, name, a.editPath(name, key), f, "", a.consumeFlash(w, r))
}

// handleEditSubmit validates the submission and updates the instance.
func (a *Admin) handleEditSubmit(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("model")
	key := r.PathValue("key")
	schema, ok := a.schemas[name]
	if !ok {
		a.renderNotRegistered(w, name)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	inst, err := a.store.Find(r.Context(), name, key)
	if err != nil {
		a.renderFindError(w, name, key, err)
		return
	}

	f := schema.New()
	a.loadChoices(r.Context(), f)
	f.Process(r.PostForm)
	if !f.Validate() {
		a.renderFormPage(w, "Edit "+name, name, a.editPath(name, key), f, formErrorMessage(name), nil)
		return
	}

	if err := f.Apply(inst); err != nil {
		a.logger.Error("failed to apply form", "model", name, "key", key, "error", err)
		a.renderFormPage(w, "Edit "+name, name, a.editPath(name, key), f, formErrorMessage(name), nil)
		return
	}
	if err := a.store.Save(r.Context(), name, inst); err != nil {
		a.logger.Error("failed to save instance", "model", name, "key", key, "error", err)
		a.renderFormPage(w, "Edit "+name, name, a.editPath(name, key), f, formErrorMessage(name), nil)
		return
	}

	a.audit(r.Context(), datastore.ActionEdit, name, inst)
	a.setFlash(w, fmt.Sprintf("%s updated: %s", name, inst.Display()), flashSuccess)
	http.Redirect(w, r, a.listPath(name), http.StatusSeeOther)
}

// handleDelete removes an instance and returns to the listing.
func (a *Admin) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("model")
	key := r.PathValue("key")
	if _, ok := a.store.Registry().Lookup(name); !ok {
		a.renderNotRegistered(w, name)
		return
	}

	// Fetched first so the flash can carry the display label.
	inst, err := a.store.Find(r.Context(), name, key)
	if err != nil {
		a.renderFindError(w, name, key, err)
		return
	}

	if err := a.store.Delete(r.Context(), name, key); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			a.renderNotFound(w, name, key)
			return
		}
		a.serverError(w, "delete", name, err)
		return
	}

	a.audit(r.Context(), datastore.ActionDelete, name, inst)
	a.setFlash(w, fmt.Sprintf("%s deleted: %s", name, inst.Display()), flashSuccess)
	http.Redirect(w, r, a.listPath(name), http.StatusSeeOther)
}

// renderFindError maps store lookup failures to their response bodies.
func (a *Admin) renderFindError(w http.ResponseWriter, model, key string, err error) {
	switch {
	case errors.Is(err, datastore.ErrNotFound):
		a.renderNotFound(w, model, key)
	case errors.Is(err, datastore.ErrNotRegistered):
		a.renderNotRegistered(w, model)
	default:
		a.serverError(w, "find", model, err)
	}
}

// renderNotRegistered answers requests for models the registry does not
// serve. The body is plain text with a 200 status.
func (a *Admin) renderNotRegistered(w http.ResponseWriter, model string) {
	fmt.Fprintf(w, "%s cannot be accessed through this admin page", model)
}

// renderNotFound answers requests for instances that do not exist.
func (a *Admin) renderNotFound(w http.ResponseWriter, model, key string) {
	fmt.Fprintf(w, "%s not found: %s", model, key)
}

func (a *Admin) serverError(w http.ResponseWriter, op, model string, err error) {
	a.logger.Error("admin operation failed", "op", op, "model", model, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// audit records the action when the store keeps a trail.
func (a *Admin) audit(ctx context.Context, action, model string, inst *metadata.Instance) {
	auditor, ok := a.store.(datastore.Auditor)
	if !ok {
		return
	}
	err := auditor.RecordAction(ctx, &datastore.Action{
		Action:  action,
		Model:   model,
		Key:     inst.Key(),
		Summary: inst.Display(),
	})
	if err != nil {
		a.logger.Warn("failed to record action", "action", action, "model", model, "error", err)
	}
}

// loadChoices fills relation selects from the store. A failed load
// leaves the select empty rather than failing the whole page.
func (a *Admin) loadChoices(ctx context.Context, f *form.Form) {
	for _, bf := range f.Fields() {
		if bf.Meta.Relation == "" {
			continue
		}
		cf, ok := bf.Field.(form.ChoiceField)
		if !ok {
			continue
		}
		refs, err := a.store.ListRefs(ctx, bf.Meta.Relation)
		if err != nil {
			a.logger.Warn("failed to load relation choices", "relation", bf.Meta.Relation, "error", err)
			continue
		}
		choices := make([]form.Choice, len(refs))
		for i, ref := range refs {
			choices[i] = form.Choice{Value: ref.Key, Label: ref.Label}
		}
		cf.SetChoices(choices)
	}
}

// parsePage reads a ?page= value leniently: anything unparseable or
// below one is page one.
func parsePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func formErrorMessage(model string) string {
	return fmt.Sprintf("There was an error processing your form. This %s has not been saved.", model)
}

// displayValue renders one cell of the list table.
func displayValue(v any) string {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format("2006-01-02 15:04")
	case bool:
		if x {
			return "yes"
		}
		return "no"
	}
	if h, ok := v.(interface{ Hex() string }); ok {
		return h.Hex()
	}
	return fmt.Sprintf("%v", v)
}
