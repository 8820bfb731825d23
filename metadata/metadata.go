// ABOUTME: Model and Field descriptors derived from struct tags via reflection
// ABOUTME: Defines the tag grammar and naming rules shared by all datastore backends

package metadata

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Tag names recognized on model struct fields.
const (
	dbTag    = "db"
	adminTag = "admin"
	bsonTag  = "bson"
)

// Tabler lets a model override its derived table name.
type Tabler interface {
	TableName() string
}

// Model describes one registered model struct.
type Model struct {
	// Name is the registry key, the struct type's name.
	Name string
	// Table is the SQL table name. Defaults to the lowercased
	// name plus "s" unless the model implements Tabler.
	Table string
	// Collection is the document collection name, same default as Table.
	Collection string
	// Type is the underlying struct type (not a pointer).
	Type reflect.Type
	// Fields holds the mapped fields in declaration order, key included.
	Fields []*Field
	// Key is the primary key field.
	Key *Field

	byName map[string]*Field
}

// Field describes one mapped struct field.
type Field struct {
	// Name is the Go struct field name.
	Name string
	// Column is the SQL column name, empty for fields persisted
	// outside the row (many-relations).
	Column string
	// BSONKey is the document key for the mongo backend.
	BSONKey string
	// Label is the human-readable form label.
	Label string
	// TypeName is the converter dispatch key: the named type as
	// "pkg.Type" when the field has one, else the normalized kind.
	TypeName string
	// Index is the field's index within the struct.
	Index int

	PrimaryKey bool
	// Auto marks keys assigned by the store on insert.
	Auto bool
	// Required injects a required validator and a NOT NULL column.
	Required bool
	// MinLen and MaxLen bound string lengths when > 0.
	MinLen int
	MaxLen int
	// Min and Max bound numeric fields when set.
	Min *float64
	Max *float64
	// Widget hints the form widget ("textarea" is the only hint today).
	Widget string
	// Relation names the target model for reference fields.
	Relation string
	// Many marks slice-typed relations persisted through a join table.
	Many bool

	goType reflect.Type
}

// GoType returns the field's reflect type.
func (f *Field) GoType() reflect.Type {
	return f.goType
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalName = "decimal.Decimal"
)

// Describe builds a Model from a struct value or pointer to struct.
// It returns an error when the value is not a struct or when no
// primary key field is declared.
func Describe(model any) (*Model, error) {
	t := reflect.TypeOf(model)
	if t == nil {
		return nil, fmt.Errorf("describe: nil model")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("describe %s: not a struct", t)
	}
	if t.Name() == "" {
		return nil, fmt.Errorf("describe: anonymous struct has no model name")
	}

	m := &Model{
		Name:   t.Name(),
		Type:   t,
		byName: make(map[string]*Field),
	}
	m.Table = defaultTableName(model, t)
	m.Collection = m.Table

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		f, err := describeField(sf, i)
		if err != nil {
			return nil, fmt.Errorf("describe %s.%s: %w", m.Name, sf.Name, err)
		}
		if f == nil {
			// Unmappable field types are skipped, same as the
			// form layer skips types its converter cannot place.
			continue
		}
		m.Fields = append(m.Fields, f)
		m.byName[f.Name] = f
		if f.PrimaryKey {
			if m.Key != nil {
				return nil, fmt.Errorf("describe %s: multiple primary key fields (%s, %s)", m.Name, m.Key.Name, f.Name)
			}
			m.Key = f
		}
	}

	if m.Key == nil {
		return nil, fmt.Errorf("describe %s: no primary key field (tag one with db:\"...,pk\")", m.Name)
	}
	if len(m.Fields) < 2 {
		return nil, fmt.Errorf("describe %s: no mapped fields besides the key", m.Name)
	}
	return m, nil
}

// Field returns the named field.
func (m *Model) Field(name string) (*Field, bool) {
	f, ok := m.byName[name]
	return f, ok
}

// ManyFields returns the many-relation fields in declaration order.
func (m *Model) ManyFields() []*Field {
	var out []*Field
	for _, f := range m.Fields {
		if f.Many {
			out = append(out, f)
		}
	}
	return out
}

func describeField(sf reflect.StructField, index int) (*Field, error) {
	f := &Field{
		Name:   sf.Name,
		Index:  index,
		goType: sf.Type,
	}

	dbVal, hasDB := sf.Tag.Lookup(dbTag)
	parts := strings.Split(dbVal, ",")
	column := ""
	if hasDB {
		column = parts[0]
		for _, opt := range parts[1:] {
			switch opt {
			case "pk":
				f.PrimaryKey = true
			case "auto":
				f.Auto = true
			}
		}
	}
	switch column {
	case "":
		column = snakeCase(sf.Name)
	case "-":
		column = ""
	}
	f.Column = column

	if err := parseAdminTag(f, sf.Tag.Get(adminTag)); err != nil {
		return nil, err
	}

	bsonKey := strings.Split(sf.Tag.Get(bsonTag), ",")[0]
	if bsonKey == "" {
		bsonKey = strings.ToLower(sf.Name)
	}
	f.BSONKey = bsonKey

	if f.Label == "" {
		f.Label = labelFor(sf.Name)
	}

	t := sf.Type
	if f.Relation != "" && t.Kind() == reflect.Slice {
		f.Many = true
		// Join-table persistence, never a row column.
		f.Column = ""
		if !isKeyKind(t.Elem().Kind()) {
			return nil, nil
		}
		f.TypeName = TypeName(t.Elem())
		return f, nil
	}

	if !persistable(t) {
		return nil, nil
	}
	f.TypeName = TypeName(t)
	if f.PrimaryKey && !isKeyType(t) {
		return nil, fmt.Errorf("primary key type %s is not a key type", t)
	}
	return f, nil
}

// persistable reports whether the backends can store the type: any
// normalized kind, or one of the named types every backend has a codec
// for.
func persistable(t reflect.Type) bool {
	if kindName(t.Kind()) != "" {
		return true
	}
	switch TypeName(t) {
	case "time.Time", "decimal.Decimal", "primitive.ObjectID":
		return true
	}
	return false
}

func isKeyType(t reflect.Type) bool {
	return isKeyKind(t.Kind()) || TypeName(t) == "primitive.ObjectID"
}

// TypeName returns the converter dispatch key for a type: the named
// type as "pkg.Type" when defined outside the universe block, else the
// normalized kind name. Types that cannot be persisted map to "".
func TypeName(t reflect.Type) string {
	if t == timeType {
		return "time.Time"
	}
	if t.PkgPath() != "" && t.Name() != "" {
		return pkgBase(t.PkgPath()) + "." + t.Name()
	}
	return kindName(t.Kind())
}

// KindName returns the normalized kind key a named type falls back to
// when the converter table has no entry for it.
func KindName(t reflect.Type) string {
	if t == timeType {
		return "time.Time"
	}
	return kindName(t.Kind())
}

func kindName(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int64"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "uint64"
	case reflect.Float32, reflect.Float64:
		return "float64"
	case reflect.Bool:
		return "bool"
	default:
		return ""
	}
}

func isKeyKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.String:
		return true
	}
	return false
}

func parseAdminTag(f *Field, tag string) error {
	if tag == "" {
		return nil
	}
	for _, item := range strings.Split(tag, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key, val, _ := strings.Cut(item, "=")
		switch key {
		case "required":
			f.Required = true
		case "minlen":
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("minlen: %w", err)
			}
			f.MinLen = n
		case "maxlen":
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("maxlen: %w", err)
			}
			f.MaxLen = n
		case "min":
			v, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("min: %w", err)
			}
			f.Min = &v
		case "max":
			v, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("max: %w", err)
			}
			f.Max = &v
		case "label":
			f.Label = val
		case "widget":
			f.Widget = val
		case "relation":
			f.Relation = val
		}
	}
	return nil
}

func defaultTableName(model any, t reflect.Type) string {
	if tb, ok := model.(Tabler); ok {
		return tb.TableName()
	}
	// Also honor the method on the value when a pointer was passed.
	v := reflect.New(t)
	if tb, ok := v.Interface().(Tabler); ok {
		return tb.TableName()
	}
	return strings.ToLower(t.Name()) + "s"
}

// JoinTableName derives the shared join table for a many-to-many pair.
// Both sides produce the same name: the lowercased singular model
// names, sorted, joined with an underscore.
func JoinTableName(a, b string) string {
	names := []string{strings.ToLower(a), strings.ToLower(b)}
	sort.Strings(names)
	return names[0] + "_" + names[1]
}

// RefColumnName derives a join-table column for one side of a pair.
func RefColumnName(model string) string {
	return strings.ToLower(model) + "_id"
}

func pkgBase(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

func snakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func labelFor(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
