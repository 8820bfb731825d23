// ABOUTME: End-to-end scenario over httptest and a SQLite temp database.
// ABOUTME: Walks add, edit with relation links, and delete through the HTTP surface.

package admin

import (
	"context"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/2389/modeladmin/datastore/sqlstore"
	"github.com/2389/modeladmin/metadata"
)

// newSQLiteStore builds the school registry over a SQLite file in a
// temp directory, schema included.
func newSQLiteStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	reg := metadata.NewRegistry(teacher{}, student{}, course{})
	store, err := sqlstore.OpenSQLite(reg, filepath.Join(t.TempDir(), "admin.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}
	return store
}

func TestScenario_SQLiteBackedAdmin(t *testing.T) {
	store := newSQLiteStore(t)
	_, mux := newTestAdmin(t, store, Options{})
	ctx := context.Background()

	// Add a teacher through the form.
	rec := doPost(mux, "/admin/add/teacher/", url.Values{"Name": {"Ada"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("add teacher: expected status 303, got %d, body: %s", rec.Code, rec.Body.String())
	}
	list := doGet(mux, "/admin/list/teacher/", rec.Result().Cookies())
	if !strings.Contains(list.Body.String(), "teacher added: Ada") {
		t.Error("list missing the add flash")
	}
	if !strings.Contains(list.Body.String(), `href="/admin/edit/teacher/1/"`) {
		t.Error("list missing the new row")
	}

	// Two students and a course, then link them on the edit form.
	for _, name := range []string{"Grace", "Barbara"} {
		if rec := doPost(mux, "/admin/add/student/", url.Values{"Name": {name}}); rec.Code != http.StatusSeeOther {
			t.Fatalf("add student %s: expected status 303, got %d", name, rec.Code)
		}
	}
	if rec := doPost(mux, "/admin/add/course/", url.Values{"Subject": {"Algorithms"}, "TeacherID": {"1"}}); rec.Code != http.StatusSeeOther {
		t.Fatalf("add course: expected status 303, got %d", rec.Code)
	}

	rec = doPost(mux, "/admin/edit/course/1/", url.Values{
		"Subject":   {"Algorithms"},
		"TeacherID": {"1"},
		"Students":  {"1", "2"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("edit course: expected status 303, got %d, body: %s", rec.Code, rec.Body.String())
	}

	// The links landed in the join table and read back from both sides.
	cm, _ := store.Registry().Lookup("course")
	sf, _ := cm.Field("Students")
	inst, err := store.Find(ctx, "course", "1")
	if err != nil {
		t.Fatalf("Find(course) error = %v", err)
	}
	if got, ok := inst.Get(sf).([]int64); !ok || len(got) != 2 {
		t.Fatalf("course Students = %v, want two elements", inst.Get(sf))
	}

	sm, _ := store.Registry().Lookup("student")
	cf, _ := sm.Field("Courses")
	inst, err = store.Find(ctx, "student", "2")
	if err != nil {
		t.Fatalf("Find(student) error = %v", err)
	}
	if got, ok := inst.Get(cf).([]int64); !ok || len(got) != 1 || got[0] != 1 {
		t.Fatalf("student Courses = %v, want [1]", inst.Get(cf))
	}

	// The edit form re-renders with the linked students selected.
	body := doGet(mux, "/admin/edit/course/1/", nil).Body.String()
	if strings.Count(body, "selected") < 2 {
		t.Errorf("edit form missing selected students, body: %s", body)
	}

	// Delete the course; its links vanish and repeat deletes report missing.
	rec = doGet(mux, "/admin/delete/course/1/", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("delete course: expected status 303, got %d", rec.Code)
	}
	if _, err := store.Find(ctx, "course", "1"); err == nil {
		t.Error("course still present after delete")
	}
	inst, err = store.Find(ctx, "student", "1")
	if err != nil {
		t.Fatalf("Find(student) error = %v", err)
	}
	if got := inst.Get(cf).([]int64); len(got) != 0 {
		t.Errorf("student Courses = %v, want empty after course delete", got)
	}
	again := doGet(mux, "/admin/delete/course/1/", nil)
	if again.Body.String() != "course not found: 1" {
		t.Errorf("repeat delete body = %q, want %q", again.Body.String(), "course not found: 1")
	}

	// The audit trail survived in SQLite and feeds the index.
	idx := doGet(mux, "/admin/", nil).Body.String()
	if !strings.Contains(idx, "Recent actions") {
		t.Error("index missing recent actions")
	}
	if !strings.Contains(idx, "delete") {
		t.Error("recent actions missing the delete entry")
	}
}
