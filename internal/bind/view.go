package bind

import (
	"fmt"
	"sort"
	"time"
)

// Template renders a merged view-model into markup.
type Template func(vm map[string]any) (string, error)

// Element is the DOM subtree a view owns. SetHTML replaces its content.
type Element interface {
	SetHTML(markup string)
}

// ComposeFunc derives extra fields from the merged view-model before it is
// handed to the template.
type ComposeFunc func(vm map[string]any) map[string]any

// RenderObserver is told about every render attempt.
type RenderObserver func(view string, d time.Duration, err error)

// RenderError wraps a template failure.
type RenderError struct {
	View string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering view %q: %v", e.View, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// ViewOption configures a View.
type ViewOption func(*View)

// WithCompose installs a derivation step that runs on every render.
func WithCompose(fn ComposeFunc) ViewOption {
	return func(v *View) { v.compose = fn }
}

// WithRenderObserver installs a hook called after each render.
func WithRenderObserver(fn RenderObserver) ViewOption {
	return func(v *View) { v.observe = fn }
}

// View binds named sources to a template and an element. Any change or
// reset on a bound source re-renders the whole view immediately; there is
// no batching.
type View struct {
	name     string
	sources  map[string]Source
	template Template
	el       Element
	compose  ComposeFunc
	observe  RenderObserver
	offs     []func()
	now      func() time.Time
}

// NewView binds sources and subscribes to their change and reset events.
// It does not render; call Render for the first paint.
func NewView(name string, sources map[string]Source, tmpl Template, el Element, opts ...ViewOption) *View {
	v := &View{
		name:     name,
		sources:  sources,
		template: tmpl,
		el:       el,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}

	// Subscribe in a stable order so handler order does not depend on map
	// iteration.
	keys := make([]string, 0, len(sources))
	for k := range sources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		src := sources[k]
		v.offs = append(v.offs,
			src.On(EventChange, v.renderOnEvent),
			src.On(EventReset, v.renderOnEvent),
		)
	}
	return v
}

// Name returns the view's name.
func (v *View) Name() string { return v.name }

// Source returns the source bound under key.
func (v *View) Source(key string) Source { return v.sources[key] }

// ViewModel builds the merged view-model: every source's ToViewModel keyed
// by its bind name, passed through the compose step if one is set.
func (v *View) ViewModel() map[string]any {
	vm := make(map[string]any, len(v.sources))
	for k, src := range v.sources {
		vm[k] = src.ToViewModel()
	}
	if v.compose != nil {
		vm = v.compose(vm)
	}
	return vm
}

// Render executes the template and replaces the element's content.
func (v *View) Render() (*View, error) {
	start := v.now()
	markup, err := v.template(v.ViewModel())
	if err != nil {
		err = &RenderError{View: v.name, Err: err}
	} else {
		v.el.SetHTML(markup)
	}
	if v.observe != nil {
		v.observe(v.name, v.now().Sub(start), err)
	}
	if err != nil {
		return v, err
	}
	return v, nil
}

// renderOnEvent is the event-driven path. A broken template is a
// programming error, so the failure propagates as a panic to whoever
// triggered the event.
func (v *View) renderOnEvent() {
	if _, err := v.Render(); err != nil {
		panic(err)
	}
}

// Close unsubscribes the view from every source.
func (v *View) Close() {
	for _, off := range v.offs {
		off()
	}
	v.offs = nil
}
