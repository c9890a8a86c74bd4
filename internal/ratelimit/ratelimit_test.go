package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a controllable time source for deterministic tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(rate int, window time.Duration, clock *fakeClock) *Limiter {
	l := New(rate, window)
	l.now = clock.Now
	return l
}

func TestAllowBasic(t *testing.T) {
	clock := newFakeClock(time.Now())
	l := newTestLimiter(3, time.Minute, clock)

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow(SessionKey("s1", "searchUsers"), 0), "call %d should be allowed", i+1)
	}
	assert.False(t, l.Allow(SessionKey("s1", "searchUsers"), 0), "4th call should be denied")
}

func TestAllowKeysAreIndependent(t *testing.T) {
	clock := newFakeClock(time.Now())
	l := newTestLimiter(1, time.Minute, clock)

	assert.True(t, l.Allow(SessionKey("s1", "searchUsers"), 0))
	assert.False(t, l.Allow(SessionKey("s1", "searchUsers"), 0))
	assert.True(t, l.Allow(SessionKey("s1", "listUsers"), 0))
	assert.True(t, l.Allow(SessionKey("s2", "searchUsers"), 0))
}

func TestTokenRefill(t *testing.T) {
	clock := newFakeClock(time.Now())
	// 60 per minute = 1 per second.
	l := newTestLimiter(60, time.Minute, clock)

	for i := 0; i < 60; i++ {
		l.Allow("k:op", 0)
	}
	require.False(t, l.Allow("k:op", 0))

	clock.Advance(time.Second)
	assert.True(t, l.Allow("k:op", 0))
	assert.False(t, l.Allow("k:op", 0))

	clock.Advance(5 * time.Second)
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("k:op", 0), "call %d after 5s refill", i+1)
	}
	assert.False(t, l.Allow("k:op", 0))
}

func TestTokenRefillCap(t *testing.T) {
	clock := newFakeClock(time.Now())
	l := newTestLimiter(5, time.Minute, clock)

	l.Allow("k:op", 0)
	l.Allow("k:op", 0)
	clock.Advance(10 * time.Minute)

	_, remaining, _ := l.Status("k:op", 0)
	assert.Equal(t, 5, remaining)
}

func TestCustomRateOverride(t *testing.T) {
	tests := []struct {
		name      string
		defaultR  int
		customR   int
		wantAllow int
	}{
		{"custom higher than default", 2, 5, 5},
		{"custom lower than default", 10, 3, 3},
		{"zero custom uses default", 5, 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock(time.Now())
			l := newTestLimiter(tt.defaultR, time.Minute, clock)

			allowed := 0
			for i := 0; i < tt.wantAllow+2; i++ {
				if l.Allow("key:op", tt.customR) {
					allowed++
				}
			}
			assert.Equal(t, tt.wantAllow, allowed)
		})
	}
}

func TestConcurrentAccess(t *testing.T) {
	clock := newFakeClock(time.Now())
	l := newTestLimiter(100, time.Minute, clock)

	var wg sync.WaitGroup
	allowed := make(chan bool, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Allow("concurrent:op", 0)
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	assert.Equal(t, 100, count)
}

func TestStatus(t *testing.T) {
	clock := newFakeClock(time.Now())
	l := newTestLimiter(10, time.Minute, clock)

	limit, remaining, resetAt := l.Status("s:op", 0)
	assert.Equal(t, 10, limit)
	assert.Equal(t, 10, remaining)
	assert.Equal(t, clock.Now(), resetAt)

	l.Allow("s:op", 0)
	l.Allow("s:op", 0)
	l.Allow("s:op", 0)

	limit, remaining, resetAt = l.Status("s:op", 0)
	assert.Equal(t, 10, limit)
	assert.Equal(t, 7, remaining)
	assert.True(t, resetAt.After(clock.Now()))
}

func TestForget(t *testing.T) {
	l := New(5, time.Minute)
	l.Allow(SessionKey("s1", "listUsers"), 0)
	l.Allow(SessionKey("s1", "searchUsers"), 0)
	l.Allow(SessionKey("s10", "listUsers"), 0)
	l.Allow(SessionKey("s2", "listUsers"), 0)
	l.Allow(ClientKey("s1"), 0)

	assert.Equal(t, 2, l.Forget("s1"))
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, 0, l.Forget("s1"))
}

func TestKeysAreScoped(t *testing.T) {
	assert.Equal(t, "session:s1:listUsers", SessionKey("s1", "listUsers"))
	assert.Equal(t, "client:192.0.2.1", ClientKey("192.0.2.1"))
	assert.NotEqual(t, SessionKey("a", "b"), ClientKey("a:b"))
}
