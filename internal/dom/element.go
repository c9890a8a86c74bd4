package dom

import (
	"sync"
)

// Fragment is an element whose content is kept in memory and fanned out to
// subscribers, such as websocket connections showing the same session.
type Fragment struct {
	mu      sync.Mutex
	html    string
	version uint64
	subs    map[int]chan string
	nextSub int
}

// NewFragment creates an empty fragment.
func NewFragment() *Fragment {
	return &Fragment{subs: make(map[int]chan string)}
}

// SetHTML replaces the content and notifies subscribers. A subscriber that
// has not consumed the previous update only sees the newest one.
func (f *Fragment) SetHTML(markup string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.html = markup
	f.version++
	for _, ch := range f.subs {
		select {
		case <-ch:
		default:
		}
		ch <- markup
	}
}

// HTML returns the current content and how many times it has been set.
func (f *Fragment) HTML() (string, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.html, f.version
}

// Subscribe returns a channel receiving every new content and a func that
// ends the subscription.
func (f *Fragment) Subscribe() (<-chan string, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextSub
	f.nextSub++
	ch := make(chan string, 1)
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (f *Fragment) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Buffer records every SetHTML call. Tests use it to count renders.
type Buffer struct {
	mu     sync.Mutex
	writes []string
}

// SetHTML records markup.
func (b *Buffer) SetHTML(markup string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes = append(b.writes, markup)
}

// Renders returns how many times content was set.
func (b *Buffer) Renders() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.writes)
}

// Last returns the latest content.
func (b *Buffer) Last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.writes) == 0 {
		return ""
	}
	return b.writes[len(b.writes)-1]
}
