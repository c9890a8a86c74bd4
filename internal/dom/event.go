// Package dom is the boundary between views and whatever displays them. An
// Element receives rendered markup; an Event describes a user interaction
// routed back by the display (browser, terminal or test).
package dom

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoHandler is returned when no binding matches an event.
var ErrNoHandler = errors.New("no handler bound for event")

// KeyEnter is the key code of the Enter key.
const KeyEnter = 13

// Event is a UI interaction. Target is the selector of the bound control,
// for example "#shareSearchButton" or ".searchResultRecord a".
type Event struct {
	Type   string            `json:"type"`
	Target string            `json:"target"`
	Which  int               `json:"which,omitempty"`
	Form   map[string]string `json:"form,omitempty"`
	Data   map[string]string `json:"data,omitempty"`
}

// Key returns the delegation key "type target".
func (e Event) Key() string {
	return e.Type + " " + strings.TrimSpace(e.Target)
}

// FormValue returns a form field, "" if absent.
func (e Event) FormValue(name string) string {
	return e.Form[name]
}

// DataValue returns a data-* attribute of the target, "" if absent.
func (e Event) DataValue(name string) string {
	return e.Data[name]
}

// EventHandler handles one kind of event.
type EventHandler func(Event) error

// Delegator routes events to handlers by "type selector" key.
type Delegator struct {
	bindings map[string]EventHandler
	order    []string
}

// NewDelegator creates a delegator from a binding table.
func NewDelegator(bindings map[string]EventHandler) *Delegator {
	d := &Delegator{bindings: make(map[string]EventHandler, len(bindings))}
	for k, h := range bindings {
		d.Bind(k, h)
	}
	return d
}

// Bind adds or replaces the handler for key.
func (d *Delegator) Bind(key string, h EventHandler) {
	key = normalizeKey(key)
	if _, ok := d.bindings[key]; !ok {
		d.order = append(d.order, key)
	}
	d.bindings[key] = h
}

// Keys lists the bound keys in binding order.
func (d *Delegator) Keys() []string {
	return append([]string(nil), d.order...)
}

// Match returns the bound key evt resolves to, if any.
func (d *Delegator) Match(evt Event) (string, bool) {
	key := normalizeKey(evt.Key())
	_, ok := d.bindings[key]
	return key, ok
}

// Dispatch runs the handler bound to evt.
func (d *Delegator) Dispatch(evt Event) error {
	h, ok := d.bindings[normalizeKey(evt.Key())]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoHandler, evt.Key())
	}
	return h(evt)
}

func normalizeKey(k string) string {
	return strings.Join(strings.Fields(k), " ")
}
