// ABOUTME: Schema (per-model form blueprint) and Form (per-request state)
// ABOUTME: Process/Validate/FillFrom/Apply with primary keys never applied back

// Package form generates input forms from model metadata. A Schema is
// built once per model through a Converter's dispatch table; each
// request instantiates a Form from it, binds submitted values,
// validates, and applies the result onto a model instance.
package form

import (
	"fmt"
	"net/url"
	"reflect"

	"github.com/2389/modeladmin/metadata"
)

// Schema is the generated blueprint for one model's form. Build it
// once at startup; it is read-only afterwards.
type Schema struct {
	model *metadata.Model
	specs []fieldSpec
}

type fieldSpec struct {
	meta  *metadata.Field
	build BuildFunc
}

// ForModel generates a schema from the model's fields. Fields the
// converter cannot place are skipped silently. The primary key is
// included as a read-only field only when includePK is set.
func ForModel(m *metadata.Model, conv *Converter, includePK bool) *Schema {
	if conv == nil {
		conv = NewConverter()
	}
	s := &Schema{model: m}
	for _, f := range m.Fields {
		if f.PrimaryKey && !includePK {
			continue
		}
		build, ok := conv.Convert(f)
		if !ok {
			continue
		}
		s.specs = append(s.specs, fieldSpec{meta: f, build: build})
	}
	return s
}

// Model returns the schema's model.
func (s *Schema) Model() *metadata.Model {
	return s.model
}

// FieldNames returns the schema's field names in render order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.specs))
	for i, spec := range s.specs {
		names[i] = spec.meta.Name
	}
	return names
}

// New instantiates a fresh form carrying per-request state.
func (s *Schema) New() *Form {
	f := &Form{
		model:  s.model,
		byName: make(map[string]*BoundField, len(s.specs)),
	}
	for _, spec := range s.specs {
		bf := &BoundField{Meta: spec.meta, Field: spec.build(spec.meta)}
		f.fields = append(f.fields, bf)
		f.byName[spec.meta.Name] = bf
	}
	return f
}

// BoundField pairs a form field with the model field it was generated
// from.
type BoundField struct {
	Meta  *metadata.Field
	Field Field
}

// Form is one request's worth of form state: raw input, parsed data,
// and validation errors.
type Form struct {
	model  *metadata.Model
	fields []*BoundField
	byName map[string]*BoundField
}

// Fields returns the bound fields in render order.
func (f *Form) Fields() []*BoundField {
	return f.fields
}

// Lookup returns the bound field with the given model field name.
func (f *Form) Lookup(name string) (*BoundField, bool) {
	bf, ok := f.byName[name]
	return bf, ok
}

// Process binds submitted values to every field.
func (f *Form) Process(values url.Values) {
	for _, bf := range f.fields {
		bf.Field.Process(values)
	}
}

// Validate runs every field's validation and reports whether the whole
// form is acceptable. Field errors accumulate for re-rendering.
func (f *Form) Validate() bool {
	ok := true
	for _, bf := range f.fields {
		if !bf.Field.Validate() {
			ok = false
		}
	}
	return ok
}

// FillFrom loads display values from an instance.
func (f *Form) FillFrom(inst *metadata.Instance) {
	for _, bf := range f.fields {
		meta := bf.Meta
		switch {
		case meta.PrimaryKey:
			bf.Field.SetData(inst.Key())
		case meta.Many:
			keys := refKeys(inst.Get(meta))
			bf.Field.SetData(keys)
		case meta.Relation != "":
			v := inst.Get(meta)
			if reflect.ValueOf(v).IsZero() {
				bf.Field.SetData("")
			} else {
				bf.Field.SetData(metadata.KeyString(v))
			}
		default:
			bf.Field.SetData(inst.Get(meta))
		}
	}
}

// Apply writes validated data onto the instance. Primary keys and
// read-only fields are never applied, whatever the submission carried.
func (f *Form) Apply(inst *metadata.Instance) error {
	for _, bf := range f.fields {
		meta := bf.Meta
		if meta.PrimaryKey || bf.Field.ReadOnly() {
			continue
		}
		switch {
		case meta.Many:
			keys, _ := bf.Field.Data().([]string)
			vals, err := metadata.ParseKeys(meta, keys)
			if err != nil {
				return fmt.Errorf("apply %s: %w", meta.Name, err)
			}
			if err := inst.Set(meta, vals); err != nil {
				return err
			}
		case meta.Relation != "":
			key, _ := bf.Field.Data().(string)
			if key == "" {
				if err := inst.Set(meta, nil); err != nil {
					return err
				}
				continue
			}
			v, err := metadata.ParseKey(meta, key)
			if err != nil {
				return fmt.Errorf("apply %s: %w", meta.Name, err)
			}
			if err := inst.Set(meta, v); err != nil {
				return err
			}
		default:
			if err := inst.Set(meta, bf.Field.Data()); err != nil {
				return err
			}
		}
	}
	return nil
}

// refKeys renders a slice of key values as strings for a multi select.
func refKeys(v any) []string {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil
	}
	out := make([]string, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = metadata.KeyString(rv.Index(i).Interface())
	}
	return out
}
