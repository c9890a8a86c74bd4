package bind

// ModelFactory builds a collection member from a raw record.
type ModelFactory func(attrs map[string]any) *Model

// CollectionOption configures a Collection.
type CollectionOption func(*Collection)

// WithModelFactory overrides how members are built from records.
func WithModelFactory(f ModelFactory) CollectionOption {
	return func(c *Collection) { c.factory = f }
}

// Collection is an ordered, notifying list of models.
type Collection struct {
	Emitter
	models  []*Model
	offs    []func()
	factory ModelFactory
}

// NewCollection creates an empty collection.
func NewCollection(opts ...CollectionOption) *Collection {
	c := &Collection{factory: NewModel}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reset replaces every member with models built from records and emits a
// single reset event. Members are not sent change events.
func (c *Collection) Reset(records []map[string]any) {
	for _, off := range c.offs {
		off()
	}
	c.models = make([]*Model, 0, len(records))
	c.offs = make([]func(), 0, len(records))
	for _, r := range records {
		c.adopt(c.factory(r))
	}
	c.Trigger(EventReset)
}

// Add appends models built from records and emits add once.
func (c *Collection) Add(records ...map[string]any) {
	if len(records) == 0 {
		return
	}
	for _, r := range records {
		c.adopt(c.factory(r))
	}
	c.Trigger(EventAdd)
}

func (c *Collection) adopt(m *Model) {
	c.models = append(c.models, m)
	// Member changes bubble up so bound views re-render.
	c.offs = append(c.offs, m.On(EventChange, func() { c.Trigger(EventChange) }))
}

// Len returns the number of members.
func (c *Collection) Len() int { return len(c.models) }

// At returns the i-th member.
func (c *Collection) At(i int) *Model { return c.models[i] }

// Models returns the members in order. The slice is a copy; the models are
// the live members.
func (c *Collection) Models() []*Model {
	out := make([]*Model, len(c.models))
	copy(out, c.models)
	return out
}

// ToViewModel returns each member's view-model in order.
func (c *Collection) ToViewModel() any {
	return c.ViewModels()
}

// ViewModels is the typed form of ToViewModel.
func (c *Collection) ViewModels() []any {
	out := make([]any, 0, len(c.models))
	for _, m := range c.models {
		out = append(out, m.ToViewModel())
	}
	return out
}
