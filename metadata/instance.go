// ABOUTME: Instance wraps one model struct value with typed field access
// ABOUTME: Handles key string conversion, display strings, and value copies

package metadata

import (
	"fmt"
	"reflect"
	"strconv"
)

// Instance is a handle on a single *struct value of a registered model.
type Instance struct {
	model *Model
	val   reflect.Value // pointer to struct
}

// New constructs a zero instance of the model.
func (m *Model) New() *Instance {
	return &Instance{model: m, val: reflect.New(m.Type)}
}

// Wrap adopts an existing pointer to a struct of the model's type.
func (m *Model) Wrap(v any) (*Instance, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Type() != m.Type {
		return nil, fmt.Errorf("wrap %s: want *%s, got %T", m.Name, m.Type.Name(), v)
	}
	return &Instance{model: m, val: rv}, nil
}

// Model returns the instance's model.
func (i *Instance) Model() *Model {
	return i.model
}

// Interface returns the wrapped pointer for callers that know the
// concrete type.
func (i *Instance) Interface() any {
	return i.val.Interface()
}

// Get returns the field's current value.
func (i *Instance) Get(f *Field) any {
	return i.val.Elem().Field(f.Index).Interface()
}

// Set assigns a value to the field, converting between compatible
// types (all integer widths, string aliases, slice element kinds).
func (i *Instance) Set(f *Field, v any) error {
	target := i.val.Elem().Field(f.Index)
	if v == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == target.Type() {
		target.Set(rv)
		return nil
	}
	if rv.Type().ConvertibleTo(target.Type()) && rv.Kind() != reflect.Slice {
		target.Set(rv.Convert(target.Type()))
		return nil
	}
	if rv.Kind() == reflect.Slice && target.Kind() == reflect.Slice {
		out := reflect.MakeSlice(target.Type(), rv.Len(), rv.Len())
		for n := 0; n < rv.Len(); n++ {
			ev := rv.Index(n)
			if !ev.Type().ConvertibleTo(target.Type().Elem()) {
				return fmt.Errorf("set %s.%s: cannot convert element %s to %s", i.model.Name, f.Name, ev.Type(), target.Type().Elem())
			}
			out.Index(n).Set(ev.Convert(target.Type().Elem()))
		}
		target.Set(out)
		return nil
	}
	return fmt.Errorf("set %s.%s: cannot assign %T", i.model.Name, f.Name, v)
}

// Key returns the primary key as a string.
func (i *Instance) Key() string {
	return KeyString(i.Get(i.model.Key))
}

// KeyIsZero reports whether the primary key still holds its zero value.
func (i *Instance) KeyIsZero() bool {
	return i.val.Elem().Field(i.model.Key.Index).IsZero()
}

// SetKey parses a key string into the primary key field.
func (i *Instance) SetKey(key string) error {
	v, err := ParseKey(i.model.Key, key)
	if err != nil {
		return err
	}
	return i.Set(i.model.Key, v)
}

// Display returns the instance's human-readable string: the model's
// fmt.Stringer when it has one, else "Name key".
func (i *Instance) Display() string {
	if s, ok := i.val.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return i.model.Name + " " + i.Key()
}

// Clone returns an independent copy of the instance's value.
func (i *Instance) Clone() *Instance {
	cp := reflect.New(i.model.Type)
	cp.Elem().Set(i.val.Elem())
	// Slices still share backing arrays after the struct copy.
	for _, f := range i.model.Fields {
		if !f.Many {
			continue
		}
		src := cp.Elem().Field(f.Index)
		if src.IsNil() {
			continue
		}
		dst := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
		reflect.Copy(dst, src)
		cp.Elem().Field(f.Index).Set(dst)
	}
	return &Instance{model: i.model, val: cp}
}

// KeyString renders any key-kind value as its canonical string.
// Document object ids satisfy the Hex method and render as hex.
func KeyString(v any) string {
	if h, ok := v.(interface{ Hex() string }); ok {
		return h.Hex()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ParseKeys converts key strings into a slice directly assignable to
// the many-relation field.
func ParseKeys(f *Field, keys []string) (any, error) {
	t := f.goType
	if t.Kind() != reflect.Slice {
		return nil, fmt.Errorf("parse keys %s: not a many field", f.Name)
	}
	out := reflect.MakeSlice(t, len(keys), len(keys))
	for i, k := range keys {
		v, err := ParseKey(f, k)
		if err != nil {
			return nil, err
		}
		rv := reflect.ValueOf(v)
		if !rv.Type().ConvertibleTo(t.Elem()) {
			return nil, fmt.Errorf("parse keys %s: cannot convert %s to %s", f.Name, rv.Type(), t.Elem())
		}
		out.Index(i).Set(rv.Convert(t.Elem()))
	}
	return out.Interface(), nil
}

// ParseKey converts a key string into the value kind of the field.
func ParseKey(f *Field, key string) (any, error) {
	t := f.goType
	if f.Many {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return key, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse key %q: %w", key, err)
		}
		return n, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse key %q: %w", key, err)
		}
		return n, nil
	default:
		return key, nil
	}
}
