package activity

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Tracker keeps a last-write-wins record of user interactions in memory.
// State is deliberately ephemeral: losing it on restart degrades notification
// routing for a while but never corrupts workflow state.
type Tracker struct {
	timeout  time.Duration
	sessions *xsync.MapOf[string, time.Time]
	now      func() time.Time
}

// NewTracker builds a tracker; zero timeout defaults to 2h.
func NewTracker(timeout time.Duration) *Tracker {
	if timeout <= 0 {
		timeout = 2 * time.Hour
	}
	return &Tracker{
		timeout:  timeout,
		sessions: xsync.NewMapOf[string, time.Time](),
		now:      time.Now,
	}
}

// Track records an interaction. The kind is logged by callers; only the
// timestamp matters for routing.
func (t *Tracker) Track(userID, kind string) {
	t.sessions.Store(userID, t.now())
}

// IsActive reports whether the user interacted within the timeout window.
// Users never observed are not active; no realtime alerts go to strangers.
func (t *Tracker) IsActive(userID string) bool {
	last, ok := t.sessions.Load(userID)
	if !ok {
		return false
	}
	return t.now().Sub(last) < t.timeout
}

// LastActivity exposes the raw timestamp for diagnostics; the boolean is
// false for unknown users.
func (t *Tracker) LastActivity(userID string) (time.Time, bool) {
	return t.sessions.Load(userID)
}
