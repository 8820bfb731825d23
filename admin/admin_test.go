// ABOUTME: Tests for the generated admin views over the in-memory store.
// ABOUTME: Verifies routing, response bodies, flashes, and persistence effects.

package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/2389/modeladmin/datastore"
	"github.com/2389/modeladmin/form"
	"github.com/2389/modeladmin/metadata"
)

type teacher struct {
	ID   int64  `db:"id,pk,auto"`
	Name string `db:"name" admin:"required"`
}

func (t teacher) String() string { return t.Name }

type student struct {
	ID      int64   `db:"id,pk,auto"`
	Name    string  `db:"name" admin:"required"`
	Courses []int64 `db:"-" admin:"relation=course"`
}

func (s student) String() string { return s.Name }

type course struct {
	ID        int64   `db:"id,pk,auto"`
	Subject   string  `db:"subject" admin:"required"`
	TeacherID int64   `db:"teacher_id" admin:"relation=teacher"`
	Students  []int64 `db:"-" admin:"relation=student"`
}

func (c course) String() string { return c.Subject }

// newTestStore builds an in-memory store over the school models.
func newTestStore(t *testing.T) *datastore.Memory {
	t.Helper()
	reg := metadata.NewRegistry(teacher{}, student{}, course{})
	store := datastore.NewMemory(reg)
	t.Cleanup(func() { store.Close() })
	return store
}

// newTestAdmin mounts an admin over the store on a fresh mux.
func newTestAdmin(t *testing.T, store datastore.Datastore, opts Options) (*Admin, *http.ServeMux) {
	t.Helper()
	a, err := New(store, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	return a, mux
}

// seed saves one instance directly through the store and returns its key.
func seed(t *testing.T, store datastore.Datastore, model string, v any) string {
	t.Helper()
	m, ok := store.Registry().Lookup(model)
	if !ok {
		t.Fatalf("model %s not registered", model)
	}
	inst, err := m.Wrap(v)
	if err != nil {
		t.Fatalf("wrap %s: %v", model, err)
	}
	if err := store.Save(context.Background(), model, inst); err != nil {
		t.Fatalf("save %s: %v", model, err)
	}
	return inst.Key()
}

func doGet(mux *http.ServeMux, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func doPost(mux *http.ServeMux, path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

// --- index ---

func TestIndex_ListsModelsSorted(t *testing.T) {
	store := newTestStore(t)
	_, mux := newTestAdmin(t, store, Options{})

	rec := doGet(mux, "/admin/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, name := range []string{"course", "student", "teacher"} {
		if !strings.Contains(body, `href="/admin/list/`+name+`/"`) {
			t.Errorf("index missing link for %s", name)
		}
	}
	if strings.Index(body, "/list/course/") > strings.Index(body, "/list/student/") {
		t.Error("models not listed in sorted order")
	}
	if strings.Index(body, "/list/student/") > strings.Index(body, "/list/teacher/") {
		t.Error("models not listed in sorted order")
	}
}

func TestIndex_RendersIntroMarkdown(t *testing.T) {
	store := newTestStore(t)
	_, mux := newTestAdmin(t, store, Options{Intro: "Welcome to **the** console"})

	rec := doGet(mux, "/admin/", nil)
	if !strings.Contains(rec.Body.String(), "<strong>the</strong>") {
		t.Errorf("intro markdown not rendered, body: %s", rec.Body.String())
	}
}

func TestIndex_ShowsRecentActions(t *testing.T) {
	store := newTestStore(t)
	_, mux := newTestAdmin(t, store, Options{})

	rec := doPost(mux, "/admin/add/teacher/", url.Values{"Name": {"Ada"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", rec.Code)
	}

	body := doGet(mux, "/admin/", nil).Body.String()
	if !strings.Contains(body, "Recent actions") {
		t.Fatal("index missing recent actions section")
	}
	if !strings.Contains(body, "add") || !strings.Contains(body, "Ada") {
		t.Errorf("recent actions missing the add entry, body: %s", body)
	}
}

func TestTrailingSlashRedirect(t *testing.T) {
	store := newTestStore(t)
	_, mux := newTestAdmin(t, store, Options{})

	rec := doGet(mux, "/admin", nil)
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("expected status 301, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/" {
		t.Errorf("Location = %q, want %q", loc, "/admin/")
	}
}

// --- unknown models ---

func TestUnknownModel_PlainBodyOnEveryView(t *testing.T) {
	store := newTestStore(t)
	_, mux := newTestAdmin(t, store, Options{})

	want := "ghost cannot be accessed through this admin page"
	paths := []string{
		"/admin/list/ghost/",
		"/admin/add/ghost/",
		"/admin/edit/ghost/1/",
		"/admin/delete/ghost/1/",
	}
	for _, path := range paths {
		rec := doGet(mux, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, rec.Code)
		}
		if rec.Body.String() != want {
			t.Errorf("%s: body = %q, want %q", path, rec.Body.String(), want)
		}
	}

	rec := doPost(mux, "/admin/add/ghost/", url.Values{"Name": {"x"}})
	if rec.Body.String() != want {
		t.Errorf("POST add: body = %q, want %q", rec.Body.String(), want)
	}
}

// --- list ---

func TestList_ShowsRowsAndActions(t *testing.T) {
	store := newTestStore(t)
	_, mux := newTestAdmin(t, store, Options{})
	key := seed(t, store, "teacher", &teacher{Name: "Ada"})

	rec := doGet(mux, "/admin/list/teacher/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Ada") {
		t.Error("list missing instance cell")
	}
	if !strings.Contains(body, `href="/admin/edit/teacher/`+key+`/"`) {
		t.Error("list missing edit link")
	}
	if !strings.Contains(body, `href="/admin/delete/teacher/`+key+`/"`) {
		t.Error("list missing delete link")
	}
	if !strings.Contains(body, `href="/admin/add/teacher/"`) {
		t.Error("list missing add link")
	}
}

func TestList_PageBeyondRangeIsEmpty(t *testing.T) {
	store := newTestStore(t)
	_, mux := newTestAdmin(t, store, Options{})
	seed(t, store, "teacher", &teacher{Name: "Ada"})

	rec := doGet(mux, "/admin/list/teacher/?page=99", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), `href="/admin/edit/`) {
		t.Error("page beyond range should render no rows")
	}
}

func TestList_PaginationLinks(t *testing.T) {
	store := newTestStore(t)
	_, mux := newTestAdmin(t, store, Options{PageSize: 2})
	for _, name := range []string{"Ada", "Grace", "Edsger", "Barbara", "Donald"} {
		seed(t, store, "teacher", &teacher{Name: name})
	}

	body := doGet(mux, "/admin/list/teacher/?page=2", nil).Body.String()
	if !strings.Contains(body, `href="/admin/list/teacher/?page=1"`) {
		t.Error("missing link to page 1")
	}
	if !strings.Contains(body, `href="/admin/list/teacher/?page=3"`) {
		t.Error("missing link to page 3")
	}
	if !strings.Contains(body, `<span class="current">2</span>`) {
		t.Error("current page not marked")
	}
}

func TestParsePage(t *testing.T) {
	cases := map[string]int{
		"":    1,
		"abc": 1,
		"0":   1,
		"-3":  1,
		"2":   2,
		"17":  17,
	}
	for raw, want := range cases {
		if got := parsePage(raw); got != want {
			t.Errorf("parsePage(%q) = %d, want %d", raw, got, want)
		}
	}
}

// --- add ---

func TestAdd_SavesFlashesAndRedirects(t *testing.T) {
	store := newTestStore(t)
	_, mux := newTestAdmin(t, store, Options{})

	rec := doPost(mux, "/admin/add/teacher/", url.Values{"Name": {"Ada"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/list/teacher/" {
		t.Errorf("Location = %q, want %q", loc, "/admin/list/teacher/")
	}

	pg, err := store.FindPage(context.Background(), "teacher", 1, 10)
	if err != nil {
		t.Fatalf("FindPage() error = %v", err)
	}
	if pg.Total != 1 {
		t.Fatalf("Total = %d, want 1", pg.Total)
	}

	// The flash follows the redirect through its cookie.
	list := doGet(mux, "/admin/list/teacher/", rec.Result().Cookies())
	if !strings.Contains(list.Body.String(), "teacher added: Ada") {
		t.Errorf("list missing add flash, body: %s", list.Body.String())
	}
}

func TestAdd_ValidationFailureSavesNothing(t *testing.T) {
	store := newTestStore(t)
	_, mux := newTestAdmin(t, store, Options{})

	rec := doPost(mux, "/admin/add/teacher/", url.Values{"Name": {""}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "There was an error processing your form. This teacher has not been saved.") {
		t.Error("missing form error message")
	}
	if !strings.Contains(body, "This field is required.") {
		t.Error("missing field error message")
	}

	pg, err := store.FindPage(context.Background(), "teacher", 1, 10)
	if err != nil {
		t.Fatalf("FindPage() error = %v", err)
	}
	if pg.Total != 0 {
		t.Errorf("Total = %d, want 0 after failed submit", pg.Total)
	}
}

func TestAdd_FormShowsRelationChoices(t *testing.T) {
	store := newTestStore(t)
	_, mux := newTestAdmin(t, store, Options{})
	key := seed(t, store, "teacher", &teacher{Name: "Ada"})

	body := doGet(mux, "/admin/add/course/", nil).Body.String()
	if !strings.Contains(body, `<option value="`+key+`"`) {
		t.Error("relation select missing teacher option")
	}
	if !strings.Contains(body, "Ada") {
		t.Error("relation option missing its label")
	}
}

// --- edit ---

func TestEdit_FormPrefilled(t *testing.T) {
	store := newTestStore(t)
	_, mux := newTestAdmin(t, store, Options{})
	key := seed(t, store, "teacher", &teacher{Name: "Ada"})

	body := doGet(mux, "/admin/edit/teacher/"+key+"/", nil).Body.String()
	if !strings.Contains(body, `value="Ada"`) {
		t.Errorf("edit form not prefilled, body: %s", body)
	}
}

func TestEdit_UpdatesAndFlashes(t *testing.T) {
	store := newTestStore(t)
	_, mux := newTestAdmin(t, store, Options{})
	key := seed(t, store, "teacher", &teacher{Name: "Ada"})

	rec := doPost(mux, "/admin/edit/teacher/"+key+"/", url.Values{"Name": {"Grace"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", rec.Code)
	}

	inst, err := store.Find(context.Background(), "teacher", key)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if inst.Display() != "Grace" {
		t.Errorf("Display() = %q, want %q", inst.Display(), "Grace")
	}

	list := doGet(mux, "/admin/list/teacher/", rec.Result().Cookies())
	if !strings.Contains(list.Body.String(), "teacher updated: Grace") {
		t.Error("list missing update flash")
	}
}

func TestEdit_MissingInstance(t *testing.T) {
	store := newTestStore(t)
	_, mux := newTestAdmin(t, store, Options{})

	rec := doGet(mux, "/admin/edit/teacher/42/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "teacher not found: 42" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "teacher not found: 42")
	}

	rec = doPost(mux, "/admin/edit/teacher/42/", url.Values{"Name": {"Grace"}})
	if rec.Body.String() != "teacher not found: 42" {
		t.Errorf("POST body = %q, want %q", rec.Body.String(), "teacher not found: 42")
	}
}

func TestEdit_ManyRelationVisibleFromBothSides(t *testing.T) {
	store := newTestStore(t)
	_, mux := newTestAdmin(t, store, Options{})
	s1 := seed(t, store, "student", &student{Name: "Ada"})
	s2 := seed(t, store, "student", &student{Name: "Grace"})
	cKey := seed(t, store, "course", &course{Subject: "Algorithms"})

	rec := doPost(mux, "/admin/edit/course/"+cKey+"/", url.Values{
		"Subject":  {"Algorithms"},
		"Students": {s1, s2},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d, body: %s", rec.Code, rec.Body.String())
	}

	sm, _ := store.Registry().Lookup("student")
	cf, _ := sm.Field("Courses")
	inst, err := store.Find(context.Background(), "student", s1)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	keys, ok := inst.Get(cf).([]int64)
	if !ok || len(keys) != 1 {
		t.Fatalf("student Courses = %v, want one element", inst.Get(cf))
	}
	if strconv.FormatInt(keys[0], 10) != cKey {
		t.Errorf("student Courses[0] = %d, want %s", keys[0], cKey)
	}
}

// --- delete ---

func TestDelete_RemovesFlashesAndRedirects(t *testing.T) {
	store := newTestStore(t)
	_, mux := newTestAdmin(t, store, Options{})
	key := seed(t, store, "teacher", &teacher{Name: "Ada"})

	rec := doGet(mux, "/admin/delete/teacher/"+key+"/", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/list/teacher/" {
		t.Errorf("Location = %q, want %q", loc, "/admin/list/teacher/")
	}

	if _, err := store.Find(context.Background(), "teacher", key); err == nil {
		t.Error("instance still present after delete")
	}

	list := doGet(mux, "/admin/list/teacher/", rec.Result().Cookies())
	if !strings.Contains(list.Body.String(), "teacher deleted: Ada") {
		t.Error("list missing delete flash")
	}

	again := doGet(mux, "/admin/delete/teacher/"+key+"/", nil)
	if again.Body.String() != "teacher not found: "+key {
		t.Errorf("repeat delete body = %q, want %q", again.Body.String(), "teacher not found: "+key)
	}
}

// --- flashes ---

func TestFlash_ConsumedOnce(t *testing.T) {
	store := newTestStore(t)
	a, mux := newTestAdmin(t, store, Options{})

	rec := doPost(mux, "/admin/add/teacher/", url.Values{"Name": {"Ada"}})
	list := doGet(mux, "/admin/list/teacher/", rec.Result().Cookies())
	if !strings.Contains(list.Body.String(), "teacher added: Ada") {
		t.Fatal("flash not shown on first render")
	}

	var cleared bool
	for _, c := range list.Result().Cookies() {
		if c.Name == a.flashCookieName() && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("flash cookie not cleared after render")
	}

	plain := doGet(mux, "/admin/list/teacher/", nil)
	if strings.Contains(plain.Body.String(), "teacher added: Ada") {
		t.Error("flash shown again without its cookie")
	}
}

// --- options ---

func TestNew_ValidatesNameAndBasePath(t *testing.T) {
	store := newTestStore(t)

	if _, err := New(store, Options{Name: "bad name"}); err == nil {
		t.Error("expected error for name with a space")
	}
	if _, err := New(store, Options{Name: "1admin"}); err == nil {
		t.Error("expected error for name starting with a digit")
	}
	if _, err := New(store, Options{BasePath: "nope"}); err == nil {
		t.Error("expected error for base path without leading slash")
	}
	if _, err := New(store, Options{BasePath: "/ops/"}); err == nil {
		t.Error("expected error for base path with trailing slash")
	}
}

func TestBasePathOption(t *testing.T) {
	store := newTestStore(t)
	_, mux := newTestAdmin(t, store, Options{BasePath: "/ops"})

	rec := doGet(mux, "/ops/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `href="/ops/list/teacher/"`) {
		t.Error("index links not rooted at the base path")
	}
}

func TestTwoAdminsShareOneMux(t *testing.T) {
	store := newTestStore(t)
	a1, err := New(store, Options{Name: "admin1"})
	if err != nil {
		t.Fatalf("New(admin1) error = %v", err)
	}
	a2, err := New(store, Options{Name: "admin2"})
	if err != nil {
		t.Fatalf("New(admin2) error = %v", err)
	}
	mux := http.NewServeMux()
	a1.RegisterRoutes(mux)
	a2.RegisterRoutes(mux)

	rec := doGet(mux, "/admin1/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin1 index: expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "admin1") {
		t.Error("admin1 index missing its name")
	}

	rec = doGet(mux, "/admin2/list/teacher/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin2 list: expected status 200, got %d", rec.Code)
	}
}

func TestIncludePK_RendersDisabledKeyField(t *testing.T) {
	store := newTestStore(t)
	_, mux := newTestAdmin(t, store, Options{IncludePK: true})
	key := seed(t, store, "teacher", &teacher{Name: "Ada"})

	body := doGet(mux, "/admin/edit/teacher/"+key+"/", nil).Body.String()
	if !strings.Contains(body, "disabled") {
		t.Error("primary key field not rendered disabled")
	}
	if !strings.Contains(body, `value="`+key+`"`) {
		t.Error("primary key field missing its value")
	}
}

func TestFormsOverride(t *testing.T) {
	store := newTestStore(t)
	m, _ := store.Registry().Lookup("teacher")
	custom := form.ForModel(m, nil, true)
	_, mux := newTestAdmin(t, store, Options{
		Forms: map[string]*form.Schema{"teacher": custom},
	})
	key := seed(t, store, "teacher", &teacher{Name: "Ada"})

	// The override includes the primary key; the default schema would not.
	body := doGet(mux, "/admin/edit/teacher/"+key+"/", nil).Body.String()
	if !strings.Contains(body, "disabled") {
		t.Error("override schema not used for the edit form")
	}
}

func TestDecorator_WrapsEveryView(t *testing.T) {
	store := newTestStore(t)
	var hits int
	decorator := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			hits++
			next(w, r)
		}
	}
	_, mux := newTestAdmin(t, store, Options{Decorator: decorator})

	doGet(mux, "/admin/", nil)
	doGet(mux, "/admin/list/teacher/", nil)
	doGet(mux, "/admin/add/teacher/", nil)
	if hits != 3 {
		t.Errorf("decorator hits = %d, want 3", hits)
	}
}

func TestDisplayValue(t *testing.T) {
	if got := displayValue(true); got != "yes" {
		t.Errorf("displayValue(true) = %q, want %q", got, "yes")
	}
	if got := displayValue(false); got != "no" {
		t.Errorf("displayValue(false) = %q, want %q", got, "no")
	}
	if got := displayValue(int64(7)); got != "7" {
		t.Errorf("displayValue(7) = %q, want %q", got, "7")
	}
}
