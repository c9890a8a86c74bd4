package bind

// Source is anything a View can bind to: it emits change/reset events and
// knows how to turn itself into render-ready data.
type Source interface {
	On(event string, fn Handler) (off func())
	ToViewModel() any
}

// setOptions controls a single Set call.
type setOptions struct {
	silent bool
}

// SetOption modifies how Set behaves.
type SetOption func(*setOptions)

// Silent suppresses the change event for a Set call.
func Silent() SetOption {
	return func(o *setOptions) { o.silent = true }
}

// Model is a mutable attribute bag with copy-on-read semantics. Values are
// copied on the way in and on the way out, so the only way to change the
// stored state is Set.
type Model struct {
	Emitter
	attrs map[string]any
}

// NewModel creates a model seeded with a copy of defaults.
func NewModel(defaults map[string]any) *Model {
	m := &Model{attrs: make(map[string]any, len(defaults))}
	for k, v := range defaults {
		m.attrs[k] = Clone(v)
	}
	return m
}

// Get returns a copy of the named attribute, or nil if it is not set.
func (m *Model) Get(name string) any {
	v, ok := m.attrs[name]
	if !ok {
		return nil
	}
	return Clone(v)
}

// Has reports whether the attribute is present.
func (m *Model) Has(name string) bool {
	_, ok := m.attrs[name]
	return ok
}

// Set stores a copy of value under name and emits change unless Silent is
// given. There is no validation layer.
func (m *Model) Set(name string, value any, opts ...SetOption) {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}

	if m.attrs == nil {
		m.attrs = make(map[string]any)
	}
	m.attrs[name] = Clone(value)

	if !o.silent {
		m.Trigger(EventChange)
	}
}

// Attributes returns a copy of every attribute.
func (m *Model) Attributes() map[string]any {
	out := make(map[string]any, len(m.attrs))
	for k, v := range m.attrs {
		out[k] = Clone(v)
	}
	return out
}

// ToViewModel returns the full attribute dump.
func (m *Model) ToViewModel() any {
	return m.Attributes()
}

// GetString returns the named attribute as a string, or "" if it is absent
// or of another type.
func (m *Model) GetString(name string) string {
	s, _ := m.attrs[name].(string)
	return s
}
