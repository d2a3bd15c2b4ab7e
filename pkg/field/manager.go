package field

import (
	"fmt"
	"sort"

	"github.com/chazu/fieldviz/pkg/domain"
)

// DefinitionRecorder is notified when a field is redefined.
type DefinitionRecorder interface {
	FieldDefinitionChanged(name string)
}

// ValueRecorder is notified when a registered field changes value at a
// single node. A DefinitionRecorder that also implements it receives
// these notifications.
type ValueRecorder interface {
	FieldValueChanged(name string, node domain.ID)
}

// valueNotifier is implemented by fields that report per-node changes.
type valueNotifier interface {
	notifyValues(fn func(name string, node domain.ID))
}

// Manager is the named registry of fields of one region.
type Manager struct {
	fields   map[string]Field
	recorder DefinitionRecorder
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{fields: make(map[string]Field)}
}

// SetRecorder attaches the recorder notified by Touch and, when it is a
// ValueRecorder, by per-node value changes of registered fields.
func (m *Manager) SetRecorder(r DefinitionRecorder) {
	m.recorder = r
}

// Add registers f under its name.
func (m *Manager) Add(f Field) error {
	if f.Name() == "" {
		return fmt.Errorf("field: cannot register an unnamed field")
	}
	if _, ok := m.fields[f.Name()]; ok {
		return fmt.Errorf("field: %q already defined", f.Name())
	}
	m.fields[f.Name()] = f
	if n, ok := f.(valueNotifier); ok {
		n.notifyValues(m.valueChanged)
	}
	return nil
}

func (m *Manager) valueChanged(name string, node domain.ID) {
	if r, ok := m.recorder.(ValueRecorder); ok {
		r.FieldValueChanged(name, node)
	}
}

// Get returns the named field.
func (m *Manager) Get(name string) (Field, bool) {
	f, ok := m.fields[name]
	return f, ok
}

// Lookup returns the named field or an error wrapping ErrNotFound.
func (m *Manager) Lookup(name string) (Field, error) {
	f, ok := m.fields[name]
	if !ok {
		return nil, fmt.Errorf("field: %q: %w", name, ErrNotFound)
	}
	return f, nil
}

// Touch records that the named field was redefined in place.
func (m *Manager) Touch(name string) error {
	if _, ok := m.fields[name]; !ok {
		return fmt.Errorf("field: %q: %w", name, ErrNotFound)
	}
	if m.recorder != nil {
		m.recorder.FieldDefinitionChanged(name)
	}
	return nil
}

// Remove unregisters a field. It fails with ErrFieldInUse while any
// specification still references it.
func (m *Manager) Remove(name string) error {
	f, ok := m.fields[name]
	if !ok {
		return fmt.Errorf("field: %q: %w", name, ErrNotFound)
	}
	if n := f.AccessCount(); n > 0 {
		return fmt.Errorf("field: %q has %d references: %w", name, n, ErrFieldInUse)
	}
	if n, ok := f.(valueNotifier); ok {
		n.notifyValues(nil)
	}
	delete(m.fields, name)
	return nil
}

// Names returns the registered names in sorted order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.fields))
	for name := range m.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
