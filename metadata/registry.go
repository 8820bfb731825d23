// ABOUTME: Registry maps model names to their descriptors
// ABOUTME: Built once at admin initialization from the host's model structs

package metadata

import (
	"fmt"
	"sort"
)

// Registry holds the discovered models by name. It is built once at
// startup and read-only afterwards, so it needs no locking.
type Registry struct {
	models map[string]*Model
}

// NewRegistry describes every given model and registers the mappable
// ones, silently skipping values that do not describe (discovery
// semantics: handing it a mixed bag of types is fine).
func NewRegistry(models ...any) *Registry {
	r := &Registry{models: make(map[string]*Model)}
	for _, m := range models {
		if err := r.Register(m); err != nil {
			continue
		}
	}
	return r
}

// Register describes and adds a single model. Unlike NewRegistry it is
// strict: unmappable models and duplicate names return errors.
func (r *Registry) Register(model any) error {
	if r.models == nil {
		r.models = make(map[string]*Model)
	}
	m, err := Describe(model)
	if err != nil {
		return err
	}
	if _, exists := r.models[m.Name]; exists {
		return fmt.Errorf("register %s: already registered", m.Name)
	}
	r.models[m.Name] = m
	return nil
}

// MustRegister registers each model and panics on failure. Meant for
// package-level wiring where a bad model is a programming error.
func (r *Registry) MustRegister(models ...any) {
	for _, m := range models {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the named model.
func (r *Registry) Lookup(name string) (*Model, bool) {
	m, ok := r.models[name]
	return m, ok
}

// Names returns the registered model names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Models returns the registered models sorted by name.
func (r *Registry) Models() []*Model {
	out := make([]*Model, 0, len(r.models))
	for _, name := range r.Names() {
		out = append(out, r.models[name])
	}
	return out
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	return len(r.models)
}

// New constructs a zero instance of the named model.
func (r *Registry) New(name string) (*Instance, bool) {
	m, ok := r.Lookup(name)
	if !ok {
		return nil, false
	}
	return m.New(), true
}

// ReverseOf finds the many-relation field on the target model that
// points back at the owner, if the target declares one. Both sides of
// such a pair persist through the same join table.
func (r *Registry) ReverseOf(owner *Model, f *Field) (*Model, *Field, bool) {
	if !f.Many {
		return nil, nil, false
	}
	target, ok := r.Lookup(f.Relation)
	if !ok {
		return nil, nil, false
	}
	for _, tf := range target.ManyFields() {
		if tf.Relation == owner.Name {
			return target, tf, true
		}
	}
	return target, nil, false
}
