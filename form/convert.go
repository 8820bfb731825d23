// ABOUTME: Converter dispatch table mapping model field types to form fields
// ABOUTME: Named-type lookup with kind fallback; unmapped types are skipped

package form

import (
	"github.com/2389/modeladmin/metadata"
)

// BuildFunc constructs a fresh form field for a model field. Forms are
// per-request, so converters hand back builders rather than fields.
type BuildFunc func(f *metadata.Field) Field

// Converter dispatches model fields to form field builders by type
// name. The default table covers the scalar types every backend
// persists; backends and hosts can Register additional entries
// (the document backend registers one for its object ids).
type Converter struct {
	byType map[string]BuildFunc
}

// NewConverter returns a converter with the default dispatch table.
func NewConverter() *Converter {
	c := &Converter{byType: make(map[string]BuildFunc)}

	c.Register("string", func(f *metadata.Field) Field {
		if f.Widget == "textarea" {
			return NewTextAreaField(f.Name, f.Label, f.Required, stringValidators(f)...)
		}
		return NewTextField(f.Name, f.Label, f.Required, stringValidators(f)...)
	})
	c.Register("int64", func(f *metadata.Field) Field {
		return NewIntegerField(f.Name, f.Label, f.Required, numberValidators(f)...)
	})
	c.Register("uint64", func(f *metadata.Field) Field {
		// Unsigned fields always get a floor of zero.
		zero := 0.0
		min := &zero
		if f.Min != nil && *f.Min > 0 {
			min = f.Min
		}
		return NewIntegerField(f.Name, f.Label, f.Required, NumberRange(min, f.Max))
	})
	c.Register("float64", func(f *metadata.Field) Field {
		return NewFloatField(f.Name, f.Label, f.Required, numberValidators(f)...)
	})
	c.Register("decimal.Decimal", func(f *metadata.Field) Field {
		return NewDecimalField(f.Name, f.Label, f.Required, numberValidators(f)...)
	})
	c.Register("bool", func(f *metadata.Field) Field {
		return NewBooleanField(f.Name, f.Label)
	})
	c.Register("time.Time", func(f *metadata.Field) Field {
		return NewDateTimeField(f.Name, f.Label, f.Required)
	})

	return c
}

// Register adds or replaces the builder for a type name.
func (c *Converter) Register(typeName string, build BuildFunc) {
	c.byType[typeName] = build
}

// Remove deletes the builder for a type name.
func (c *Converter) Remove(typeName string) {
	delete(c.byType, typeName)
}

// Convert resolves the builder for a model field. Relation fields
// dispatch to selects, primary keys to a read-only input. Everything
// else looks up the field's type name, then falls back to its
// normalized kind; a miss on both means the field is skipped.
func (c *Converter) Convert(f *metadata.Field) (BuildFunc, bool) {
	if f.PrimaryKey {
		return func(f *metadata.Field) Field {
			return NewReadOnlyField(f.Name, f.Label)
		}, true
	}
	if f.Relation != "" {
		if f.Many {
			return func(f *metadata.Field) Field {
				return NewMultiSelectField(f.Name, f.Label)
			}, true
		}
		return func(f *metadata.Field) Field {
			return NewSelectField(f.Name, f.Label, f.Required)
		}, true
	}
	if build, ok := c.byType[f.TypeName]; ok {
		return build, true
	}
	if build, ok := c.byType[metadata.KindName(f.GoType())]; ok {
		return build, true
	}
	return nil, false
}

func stringValidators(f *metadata.Field) []Validator {
	if f.MinLen > 0 || f.MaxLen > 0 {
		return []Validator{Length(f.MinLen, f.MaxLen)}
	}
	return nil
}

func numberValidators(f *metadata.Field) []Validator {
	if f.Min != nil || f.Max != nil {
		return []Validator{NumberRange(f.Min, f.Max)}
	}
	return nil
}
