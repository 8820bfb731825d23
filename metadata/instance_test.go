// ABOUTME: Tests for instance value access, key handling, and the registry
// ABOUTME: Covers conversions, cloning, display strings, and reverse lookup

package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type titled struct {
	ID   int64  `db:"id,pk,auto"`
	Name string `db:"name"`
}

func (x titled) String() string { return "Sir " + x.Name }

func TestInstance_GetSet(t *testing.T) {
	m, err := Describe(&book{})
	require.NoError(t, err)

	inst := m.New()
	title, _ := m.Field("Title")
	pages, _ := m.Field("Pages")
	readers, _ := m.Field("Readers")

	require.NoError(t, inst.Set(title, "Dune"))
	assert.Equal(t, "Dune", inst.Get(title))

	// int64 converts into the int field
	require.NoError(t, inst.Set(pages, int64(412)))
	assert.Equal(t, 412, inst.Get(pages))

	require.NoError(t, inst.Set(readers, []int64{1, 2, 3}))
	assert.Equal(t, []int64{1, 2, 3}, inst.Get(readers))

	assert.Error(t, inst.Set(title, []string{"nope"}))
}

func TestInstance_SetNilZeroes(t *testing.T) {
	m, err := Describe(&book{})
	require.NoError(t, err)

	inst := m.New()
	title, _ := m.Field("Title")
	require.NoError(t, inst.Set(title, "Dune"))
	require.NoError(t, inst.Set(title, nil))
	assert.Equal(t, "", inst.Get(title))
}

func TestInstance_Keys(t *testing.T) {
	m, err := Describe(&author{})
	require.NoError(t, err)

	inst := m.New()
	assert.True(t, inst.KeyIsZero())
	assert.Equal(t, "0", inst.Key())

	require.NoError(t, inst.SetKey("42"))
	assert.False(t, inst.KeyIsZero())
	assert.Equal(t, "42", inst.Key())

	assert.Error(t, inst.SetKey("not-a-number"))
}

func TestInstance_Display(t *testing.T) {
	m, err := Describe(&titled{})
	require.NoError(t, err)
	inst := m.New()
	name, _ := m.Field("Name")
	require.NoError(t, inst.Set(name, "Robin"))
	assert.Equal(t, "Sir Robin", inst.Display())

	plain, err := Describe(&author{})
	require.NoError(t, err)
	p := plain.New()
	require.NoError(t, p.SetKey("7"))
	assert.Equal(t, "author 7", p.Display())
}

func TestInstance_CloneIsIndependent(t *testing.T) {
	m, err := Describe(&book{})
	require.NoError(t, err)

	inst := m.New()
	readers, _ := m.Field("Readers")
	title, _ := m.Field("Title")
	require.NoError(t, inst.Set(readers, []int64{1, 2}))
	require.NoError(t, inst.Set(title, "Original"))

	cp := inst.Clone()
	require.NoError(t, cp.Set(title, "Changed"))
	cp.Get(readers).([]int64)[0] = 99

	assert.Equal(t, "Original", inst.Get(title))
	assert.Equal(t, []int64{1, 2}, inst.Get(readers), "clone must not share slice backing arrays")
}

func TestInstance_Wrap(t *testing.T) {
	m, err := Describe(&author{})
	require.NoError(t, err)

	a := &author{ID: 3, Name: "Ursula"}
	inst, err := m.Wrap(a)
	require.NoError(t, err)
	assert.Equal(t, "3", inst.Key())
	assert.Same(t, a, inst.Interface())

	_, err = m.Wrap(author{})
	assert.Error(t, err, "wrap requires a pointer")
	_, err = m.Wrap(&book{})
	assert.Error(t, err, "wrap checks the struct type")
}

func TestRegistry_DiscoveryAndLookup(t *testing.T) {
	type junk struct{ X int }
	reg := NewRegistry(&author{}, &book{}, &reader{}, &junk{}, "not a model")

	assert.Equal(t, 3, reg.Len(), "unmappable values are skipped silently")
	assert.Equal(t, []string{"author", "book", "reader"}, reg.Names())

	m, ok := reg.Lookup("book")
	require.True(t, ok)
	assert.Equal(t, "books", m.Table)

	_, ok = reg.Lookup("junk")
	assert.False(t, ok)

	inst, ok := reg.New("author")
	require.True(t, ok)
	assert.Equal(t, "author", inst.Model().Name)

	_, ok = reg.New("junk")
	assert.False(t, ok)
}

func TestRegistry_RegisterStrict(t *testing.T) {
	reg := &Registry{}
	require.NoError(t, reg.Register(&author{}))
	assert.Error(t, reg.Register(&author{}), "duplicate registration fails")
	assert.Error(t, reg.Register(42))
}

func TestRegistry_ReverseOf(t *testing.T) {
	reg := NewRegistry(&book{}, &reader{}, &author{})
	bookModel, _ := reg.Lookup("book")
	readersField, _ := bookModel.Field("Readers")

	target, reverse, ok := reg.ReverseOf(bookModel, readersField)
	require.True(t, ok)
	assert.Equal(t, "reader", target.Name)
	require.NotNil(t, reverse)
	assert.Equal(t, "Books", reverse.Name)

	// Single relations have no reverse pair.
	authorField, _ := bookModel.Field("AuthorID")
	_, _, ok = reg.ReverseOf(bookModel, authorField)
	assert.False(t, ok)
}
