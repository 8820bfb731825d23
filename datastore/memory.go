// ABOUTME: In-memory Datastore implementation for tests and prototyping
// ABOUTME: Mutex-guarded maps with value copies and reverse relation sync

package datastore

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/modeladmin/metadata"
)

// Memory is a Datastore over process memory. It keeps value copies so
// callers cannot mutate stored state through returned instances, and
// it synchronizes declared reverse many-to-many fields the way the SQL
// backend's shared join table does.
type Memory struct {
	mu      sync.RWMutex
	reg     *metadata.Registry
	items   map[string]map[string]*metadata.Instance
	order   map[string][]string
	seq     map[string]int64
	actions []*Action
}

var (
	_ Datastore = (*Memory)(nil)
	_ Auditor   = (*Memory)(nil)
)

// NewMemory builds an empty in-memory store over the registry.
func NewMemory(reg *metadata.Registry) *Memory {
	return &Memory{
		reg:   reg,
		items: make(map[string]map[string]*metadata.Instance),
		order: make(map[string][]string),
		seq:   make(map[string]int64),
	}
}

// Registry returns the model registry.
func (m *Memory) Registry() *metadata.Registry {
	return m.reg
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error {
	return nil
}

func (m *Memory) model(name string) (*metadata.Model, error) {
	model, ok := m.reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotRegistered)
	}
	return model, nil
}

// FindPage returns one page of instances in insertion order.
func (m *Memory) FindPage(ctx context.Context, modelName string, page, perPage int) (*Pagination, error) {
	if _, err := m.model(modelName); err != nil {
		return nil, err
	}
	page, perPage = NormalizePage(page, perPage)

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := m.order[modelName]
	p := &Pagination{Page: page, PerPage: perPage, Total: len(keys)}

	start := (page - 1) * perPage
	if start >= len(keys) {
		return p, nil
	}
	end := start + perPage
	if end > len(keys) {
		end = len(keys)
	}
	for _, key := range keys[start:end] {
		p.Items = append(p.Items, m.items[modelName][key].Clone())
	}
	return p, nil
}

// Find returns a copy of the stored instance.
func (m *Memory) Find(ctx context.Context, modelName, key string) (*metadata.Instance, error) {
	if _, err := m.model(modelName); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, ok := m.items[modelName][key]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", modelName, key, ErrNotFound)
	}
	return inst.Clone(), nil
}

// Save inserts or updates the instance and keeps declared reverse
// many-relation fields on related models in sync.
func (m *Memory) Save(ctx context.Context, modelName string, inst *metadata.Instance) error {
	model, err := m.model(modelName)
	if err != nil {
		return err
	}
	if inst.Model() != model {
		return fmt.Errorf("save %s: instance is a %s", modelName, inst.Model().Name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.items[modelName] == nil {
		m.items[modelName] = make(map[string]*metadata.Instance)
	}

	if inst.KeyIsZero() {
		if !model.Key.Auto {
			return fmt.Errorf("save %s: key required", modelName)
		}
		if err := m.assignKey(model, inst); err != nil {
			return err
		}
	}

	key := inst.Key()
	prev := m.items[modelName][key]

	stored := inst.Clone()
	m.items[modelName][key] = stored
	if prev == nil {
		m.order[modelName] = append(m.order[modelName], key)
	}

	for _, f := range model.ManyFields() {
		var before []string
		if prev != nil {
			before = keyStrings(prev.Get(f))
		}
		after := keyStrings(stored.Get(f))
		m.syncReverse(model, f, key, diff(before, after), diff(after, before))
	}
	return nil
}

func (m *Memory) assignKey(model *metadata.Model, inst *metadata.Instance) error {
	switch model.Key.GoType().Kind() {
	case reflect.String:
		return inst.SetKey(uuid.NewString())
	default:
		m.seq[model.Name]++
		return inst.SetKey(metadata.KeyString(m.seq[model.Name]))
	}
}

// syncReverse mirrors membership changes onto the related model's
// declared reverse field. added and removed hold keys of related
// instances; ownKey joins or leaves their reverse slices.
func (m *Memory) syncReverse(model *metadata.Model, f *metadata.Field, ownKey string, added, removed []string) {
	target, reverse, ok := m.reg.ReverseOf(model, f)
	if !ok || reverse == nil {
		return
	}
	for _, relKey := range added {
		rel := m.items[target.Name][relKey]
		if rel == nil {
			continue
		}
		keys := keyStrings(rel.Get(reverse))
		if contains(keys, ownKey) {
			continue
		}
		m.setKeys(rel, reverse, append(keys, ownKey))
	}
	for _, relKey := range removed {
		rel := m.items[target.Name][relKey]
		if rel == nil {
			continue
		}
		keys := keyStrings(rel.Get(reverse))
		m.setKeys(rel, reverse, remove(keys, ownKey))
	}
}

func (m *Memory) setKeys(inst *metadata.Instance, f *metadata.Field, keys []string) {
	vals, err := metadata.ParseKeys(f, keys)
	if err != nil {
		return
	}
	_ = inst.Set(f, vals)
}

// Delete removes the instance and scrubs its key from reverse slices.
func (m *Memory) Delete(ctx context.Context, modelName, key string) error {
	model, err := m.model(modelName)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.items[modelName][key]
	if !ok {
		return fmt.Errorf("%s %s: %w", modelName, key, ErrNotFound)
	}

	for _, f := range model.ManyFields() {
		m.syncReverse(model, f, key, nil, keyStrings(inst.Get(f)))
	}
	// Other models' many fields pointing here lose the key too.
	for _, other := range m.reg.Models() {
		for _, f := range other.ManyFields() {
			if f.Relation != model.Name {
				continue
			}
			for _, otherInst := range m.items[other.Name] {
				keys := keyStrings(otherInst.Get(f))
				if contains(keys, key) {
					m.setKeys(otherInst, f, remove(keys, key))
				}
			}
		}
	}

	delete(m.items[modelName], key)
	m.order[modelName] = remove(m.order[modelName], key)
	return nil
}

// ListRefs returns key/label pairs in insertion order.
func (m *Memory) ListRefs(ctx context.Context, modelName string) ([]Ref, error) {
	if _, err := m.model(modelName); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	refs := make([]Ref, 0, len(m.order[modelName]))
	for _, key := range m.order[modelName] {
		refs = append(refs, Ref{Key: key, Label: m.items[modelName][key].Display()})
	}
	return refs, nil
}

// RecordAction appends to the in-memory audit trail.
func (m *Memory) RecordAction(ctx context.Context, a *Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *a
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	m.actions = append(m.actions, &cp)
	return nil
}

// RecentActions returns up to limit actions, newest first.
func (m *Memory) RecentActions(ctx context.Context, limit int) ([]*Action, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.actions) {
		limit = len(m.actions)
	}
	out := make([]*Action, 0, limit)
	for i := len(m.actions) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *m.actions[i]
		out = append(out, &cp)
	}
	return out, nil
}

func keyStrings(v any) []string {
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

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func remove(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// diff returns the members of b missing from a.
func diff(a, b []string) []string {
	var out []string
	for _, v := range b {
		if !contains(a, v) {
			out = append(out, v)
		}
	}
	return out
}
