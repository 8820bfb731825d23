// ABOUTME: Tests for model description, tag parsing, and naming rules
// ABOUTME: Covers field mapping, silent skips, and join table derivation

package metadata

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type author struct {
	ID      int64  `db:"id,pk,auto"`
	Name    string `db:"name" admin:"required,maxlen=120"`
	Penname string `admin:"label=Pen Name"`
}

type book struct {
	ID          int64           `db:"id,pk,auto"`
	Title       string          `db:"title" admin:"required,minlen=1,maxlen=200"`
	Summary     string          `db:"summary" admin:"widget=textarea"`
	Pages       int             `db:"pages" admin:"min=1"`
	Price       decimal.Decimal `db:"price"`
	PublishedAt time.Time       `db:"published_at"`
	InPrint     bool            `db:"in_print"`
	AuthorID    int64           `db:"author_id" admin:"relation=author"`
	Readers     []int64         `db:"-" bson:"readers" admin:"relation=reader"`
}

type reader struct {
	ID    int64   `db:"id,pk,auto"`
	Name  string  `db:"name" admin:"required"`
	Books []int64 `db:"-" admin:"relation=book"`
}

type namedTable struct {
	ID   int64  `db:"id,pk,auto"`
	Name string `db:"name"`
}

func (namedTable) TableName() string { return "legacy_names" }

func TestDescribe_Basic(t *testing.T) {
	m, err := Describe(&author{})
	require.NoError(t, err)

	assert.Equal(t, "author", m.Name)
	assert.Equal(t, "authors", m.Table)
	assert.Equal(t, "authors", m.Collection)
	require.NotNil(t, m.Key)
	assert.Equal(t, "ID", m.Key.Name)
	assert.True(t, m.Key.PrimaryKey)
	assert.True(t, m.Key.Auto)
	assert.Len(t, m.Fields, 3)

	name, ok := m.Field("Name")
	require.True(t, ok)
	assert.Equal(t, "name", name.Column)
	assert.True(t, name.Required)
	assert.Equal(t, 120, name.MaxLen)
	assert.Equal(t, "string", name.TypeName)

	pen, ok := m.Field("Penname")
	require.True(t, ok)
	assert.Equal(t, "penname", pen.Column, "column defaults to the snake-cased field name")
	assert.Equal(t, "Pen Name", pen.Label)
}

func TestDescribe_FieldTypes(t *testing.T) {
	m, err := Describe(&book{})
	require.NoError(t, err)

	cases := map[string]string{
		"Title":       "string",
		"Pages":       "int64",
		"Price":       "decimal.Decimal",
		"PublishedAt": "time.Time",
		"InPrint":     "bool",
	}
	for fieldName, want := range cases {
		f, ok := m.Field(fieldName)
		require.True(t, ok, fieldName)
		assert.Equal(t, want, f.TypeName, fieldName)
	}

	summary, _ := m.Field("Summary")
	assert.Equal(t, "textarea", summary.Widget)

	pages, _ := m.Field("Pages")
	require.NotNil(t, pages.Min)
	assert.Equal(t, 1.0, *pages.Min)
}

func TestDescribe_Relations(t *testing.T) {
	m, err := Describe(&book{})
	require.NoError(t, err)

	single, ok := m.Field("AuthorID")
	require.True(t, ok)
	assert.Equal(t, "author", single.Relation)
	assert.False(t, single.Many)
	assert.Equal(t, "author_id", single.Column)

	many, ok := m.Field("Readers")
	require.True(t, ok)
	assert.Equal(t, "reader", many.Relation)
	assert.True(t, many.Many)
	assert.Empty(t, many.Column, "many-relations have no row column")
	assert.Equal(t, "readers", many.BSONKey)
	assert.Equal(t, "int64", many.TypeName)

	assert.Len(t, m.ManyFields(), 1)
}

func TestDescribe_SkipsUnmappable(t *testing.T) {
	type odd struct {
		ID     int64 `db:"id,pk"`
		Name   string
		Extras map[string]string
		Point  struct{ X, Y int }
		hidden string
	}
	m, err := Describe(&odd{})
	require.NoError(t, err)

	assert.Len(t, m.Fields, 2)
	_, ok := m.Field("Extras")
	assert.False(t, ok)
	_, ok = m.Field("Point")
	assert.False(t, ok)
	_, ok = m.Field("hidden")
	assert.False(t, ok)
}

func TestDescribe_Errors(t *testing.T) {
	type noKey struct {
		Name string `db:"name"`
	}
	_, err := Describe(&noKey{})
	assert.Error(t, err)

	type twoKeys struct {
		A int64 `db:"a,pk"`
		B int64 `db:"b,pk"`
	}
	_, err = Describe(&twoKeys{})
	assert.Error(t, err)

	type badTag struct {
		ID   int64  `db:"id,pk"`
		Name string `admin:"maxlen=lots"`
	}
	_, err = Describe(&badTag{})
	assert.Error(t, err)

	type floatKey struct {
		ID   float64 `db:"id,pk"`
		Name string  `db:"name"`
	}
	_, err = Describe(&floatKey{})
	assert.Error(t, err)

	_, err = Describe(42)
	assert.Error(t, err)

	_, err = Describe(&struct {
		ID int64 `db:"id,pk"`
		N  string
	}{})
	assert.Error(t, err, "anonymous structs have no model name")
}

func TestDescribe_TableNameOverride(t *testing.T) {
	m, err := Describe(&namedTable{})
	require.NoError(t, err)
	assert.Equal(t, "legacy_names", m.Table)
}

func TestTypeName_NamedTypeAndKindFallback(t *testing.T) {
	type level int
	type badge struct {
		ID    int64 `db:"id,pk"`
		Level level `db:"level"`
	}
	m, err := Describe(&badge{})
	require.NoError(t, err)

	f, ok := m.Field("Level")
	require.True(t, ok)
	assert.Equal(t, "metadata.level", f.TypeName)
	assert.Equal(t, "int64", KindName(f.GoType()), "kind fallback for unknown named types")
}

func TestJoinTableName_SameFromBothSides(t *testing.T) {
	assert.Equal(t, "book_reader", JoinTableName("book", "reader"))
	assert.Equal(t, "book_reader", JoinTableName("reader", "book"))
	assert.Equal(t, "course_student", JoinTableName("Student", "Course"))
	assert.Equal(t, "book_id", RefColumnName("Book"))
}

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"Name":      "name",
		"TeacherID": "teacher_id",
		"HTMLBody":  "html_body",
		"CreatedAt": "created_at",
	}
	for in, want := range cases {
		assert.Equal(t, want, snakeCase(in), in)
	}
}

func TestLabelFor(t *testing.T) {
	assert.Equal(t, "Enrolled At", labelFor("EnrolledAt"))
	assert.Equal(t, "Teacher ID", labelFor("TeacherID"))
	assert.Equal(t, "Name", labelFor("Name"))
}
