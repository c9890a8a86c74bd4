// Package session owns the live share dialogs. A session is one dialog for
// one page: its own event loop, domain objects, view and rendered fragment.
// Sessions replace process-wide singletons; nothing is shared between them
// except the RPC transport.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/raveportal/pageshare/internal/dom"
	"github.com/raveportal/pageshare/internal/eventloop"
	"github.com/raveportal/pageshare/internal/ui"
)

// MemberInit is one membership entry handed over when the dialog is set up.
// User IDs may be 0; negative IDs mark unset values and are rejected.
type MemberInit struct {
	UserID int64 `json:"userId" validate:"min=0"`
	Editor bool  `json:"editor"`
}

// InitData is the page state a session starts from.
type InitData struct {
	PageID  int64        `json:"pageId" validate:"required"`
	OwnerID int64        `json:"ownerId" validate:"min=0"`
	Members []MemberInit `json:"members" validate:"dive"`
}

// Session is one live share dialog.
type Session struct {
	ID        string
	PageID    int64
	CreatedAt time.Time

	loop     *eventloop.Loop
	view     *ui.PageShareView
	fragment *dom.Fragment

	mu       sync.Mutex
	lastSeen time.Time
}

// Fragment returns the element the session renders into.
func (s *Session) Fragment() *dom.Fragment { return s.fragment }

// LastSeen returns the last time the session was used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// Do runs fn against the view on the session's loop and waits for it.
func (s *Session) Do(ctx context.Context, fn func(*ui.PageShareView) error) error {
	return s.loop.Do(ctx, func() error { return fn(s.view) })
}

// HandleEvent applies a UI event.
func (s *Session) HandleEvent(ctx context.Context, evt dom.Event) error {
	return s.Do(ctx, func(v *ui.PageShareView) error { return v.HandleEvent(evt) })
}

// Show opens the dialog, loading the first page of users.
func (s *Session) Show(ctx context.Context) error {
	return s.Do(ctx, func(v *ui.PageShareView) error {
		v.Show()
		return nil
	})
}

// CloneForUser asks the portal to copy the page for userID.
func (s *Session) CloneForUser(ctx context.Context, userID int64, pageName string) error {
	return s.Do(ctx, func(v *ui.PageShareView) error {
		v.Page().CloneForUser(userID, pageName)
		return nil
	})
}

// Done is closed once the session has been closed.
func (s *Session) Done() <-chan struct{} { return s.loop.Done() }

func (s *Session) close() {
	_ = s.loop.Do(context.Background(), func() error {
		s.view.Close()
		return nil
	})
	s.loop.Stop()
}
