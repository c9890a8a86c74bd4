package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raveportal/pageshare/internal/bind"
	"github.com/raveportal/pageshare/internal/dom"
	"github.com/raveportal/pageshare/internal/eventloop"
	"github.com/raveportal/pageshare/internal/page"
	"github.com/raveportal/pageshare/internal/rpc"
	"github.com/raveportal/pageshare/internal/ui"
	"github.com/raveportal/pageshare/internal/user"
)

var (
	// ErrNotFound is returned for unknown or expired session IDs.
	ErrNotFound = errors.New("session not found")
	// ErrLimitReached is returned when the session cap is reached.
	ErrLimitReached = errors.New("session limit reached")
	// ErrShutdown is returned by Create once the manager has shut down.
	ErrShutdown = errors.New("session manager shut down")
)

// ClientFactory hands out session-scoped RPC clients whose callbacks run on
// the session's loop. *rpc.Transport implements it.
type ClientFactory interface {
	Session(poster eventloop.Poster, key string) rpc.Client
}

// Forgetter drops per-session rate limit state. *ratelimit.Limiter
// implements it.
type Forgetter interface {
	Forget(sessionID string) int
}

// Observer receives session level measurements.
type Observer interface {
	SetActiveSessions(n int)
	ObserveRender(view string, d time.Duration, err error)
	IncUIEvent(binding, result string)
}

// Config bounds the sessions a Manager keeps.
type Config struct {
	TTL                   time.Duration
	SweepInterval         time.Duration
	MaxSessions           int
	DiscardStaleResponses bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithForgetter clears rate limit state of deleted sessions.
func WithForgetter(f Forgetter) Option {
	return func(m *Manager) { m.forgetter = f }
}

// WithObserver reports session metrics.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager creates, finds and expires sessions.
type Manager struct {
	clients   ClientFactory
	template  bind.Template
	cfg       Config
	forgetter Forgetter
	observer  Observer
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// NewManager creates a manager whose views render with tmpl.
func NewManager(clients ClientFactory, tmpl bind.Template, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		clients:  clients,
		template: tmpl,
		cfg:      cfg,
		logger:   slog.Default(),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a session for the given page state and renders it once.
// The session's loop runs until the session is deleted or ctx ends.
func (m *Manager) Create(ctx context.Context, init InitData) (*Session, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrShutdown
	}
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		return nil, ErrLimitReached
	}
	id := uuid.NewString()
	// Reserve the slot so concurrent creates respect the cap.
	m.sessions[id] = nil
	m.mu.Unlock()

	s, err := m.build(ctx, id, init)
	m.mu.Lock()
	closed := m.closed
	if err != nil || closed {
		delete(m.sessions, id)
	} else {
		m.sessions[id] = s
	}
	n := len(m.sessions)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if closed {
		// Shutdown ran while the session was being built.
		m.closeSession(s)
		return nil, ErrShutdown
	}

	m.reportActive(n)
	m.logger.Info("session created", "session", id, "page_id", init.PageID, "members", len(init.Members))
	return s, nil
}

func (m *Manager) build(ctx context.Context, id string, init InitData) (*Session, error) {
	logger := m.logger.With("session", id)
	loop := eventloop.New(eventloop.WithLogger(logger))
	go loop.Start(context.WithoutCancel(ctx))

	client := m.clients.Session(loop, id)
	p := page.New(client, init.PageID, init.OwnerID)
	for _, mem := range init.Members {
		p.AddInitData(mem.UserID, mem.Editor)
	}

	userOpts := []user.Option{user.WithLogger(logger)}
	if m.cfg.DiscardStaleResponses {
		userOpts = append(userOpts, user.WithStaleResponseGuard())
	}
	users := user.NewCollection(client, userOpts...)

	viewOpts := []ui.ShareOption{ui.WithShareLogger(logger)}
	if m.observer != nil {
		viewOpts = append(viewOpts,
			ui.WithShareRenderObserver(m.observer.ObserveRender),
			ui.WithEventObserver(m.observer.IncUIEvent),
		)
	}

	now := m.now()
	s := &Session{
		ID:        id,
		PageID:    init.PageID,
		CreatedAt: now,
		loop:      loop,
		fragment:  dom.NewFragment(),
		lastSeen:  now,
	}

	err := loop.Do(ctx, func() error {
		s.view = ui.NewPageShareView(p, users, m.template, s.fragment, viewOpts...)
		_, err := s.view.Render()
		return err
	})
	if err != nil {
		loop.Stop()
		return nil, fmt.Errorf("rendering session %s: %w", id, err)
	}
	return s, nil
}

// Get returns a live session and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s := m.sessions[id]
	m.mu.RUnlock()
	if s == nil {
		return nil, ErrNotFound
	}
	s.touch(m.now())
	return s, nil
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s := m.sessions[id]
	if s == nil {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	m.closeSession(s)
	m.reportActive(n)
	m.logger.Info("session deleted", "session", id)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.sessions {
		if s != nil {
			n++
		}
	}
	return n
}

// IDs lists live session IDs in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id, s := range m.sessions {
		if s != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Sweep closes every session idle for longer than the TTL and returns how
// many were removed.
func (m *Manager) Sweep() int {
	if m.cfg.TTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.cfg.TTL)

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s != nil && s.LastSeen().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range expired {
		m.closeSession(s)
		m.logger.Info("session expired", "session", s.ID, "last_seen", s.LastSeen())
	}
	if len(expired) > 0 {
		m.reportActive(n)
	}
	return len(expired)
}

// Start sweeps expired sessions every SweepInterval until ctx is cancelled,
// then closes all sessions.
func (m *Manager) Start(ctx context.Context) {
	interval := m.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-ctx.Done():
			m.Shutdown()
			return
		}
	}
}

// Shutdown closes every session. Later and in-flight Creates fail with
// ErrShutdown.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		if s != nil {
			m.closeSession(s)
		}
	}
	m.reportActive(0)
}

func (m *Manager) closeSession(s *Session) {
	s.close()
	if m.forgetter != nil {
		m.forgetter.Forget(s.ID)
	}
}

func (m *Manager) reportActive(n int) {
	if m.observer != nil {
		m.observer.SetActiveSessions(n)
	}
}
