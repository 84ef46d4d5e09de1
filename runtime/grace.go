package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
)

// DefaultGraceWindow is how long a disconnected nickname may be reclaimed
// silently before its departure is announced.
const DefaultGraceWindow = 3 * time.Second

type graceState int

const (
	gracePending graceState = iota
	graceCancelled
	graceFired
)

type graceEntry struct {
	name     domain.Nickname
	deadline time.Time
	timer    clockwork.Timer
	state    graceState
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// GraceTracker holds one deferred-eviction timer per disconnected nickname.
//
// Each entry leaves the pending state exactly once: either Disarm cancels it,
// or the deadline fires and the expiry callback runs. Both transitions happen
// under the tracker lock, so a fired entry is never reported as cancelled and a
// cancelled entry never runs its callback.
//
// When a guard is configured, the expiry path holds it for the whole
// transition + callback. Callers that already serialize Disarm behind the same
// lock get mutual exclusion between their own critical sections and expiry.
type GraceTracker struct {
	mu      sync.Mutex
	log     *slog.Logger
	window  time.Duration
	clock   clockwork.Clock
	guard   sync.Locker
	entries map[domain.Nickname]*graceEntry
}

type GraceOption func(*GraceTracker)

func WithClock(clock clockwork.Clock) GraceOption {
	return func(t *GraceTracker) { t.clock = clock }
}

// WithGuard makes every expiry callback run while holding l.
func WithGuard(l sync.Locker) GraceOption {
	return func(t *GraceTracker) { t.guard = l }
}

func NewGraceTracker(log *slog.Logger, window time.Duration, opts ...GraceOption) *GraceTracker {
	if window <= 0 {
		window = DefaultGraceWindow
	}
	t := &GraceTracker{
		log:     log,
		window:  window,
		clock:   clockwork.NewRealClock(),
		guard:   noopLocker{},
		entries: make(map[domain.Nickname]*graceEntry),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Arm starts the grace window for name. onExpire runs once, after the window,
// unless Disarm is called first. Arming a name that already has a pending entry
// returns ErrGraceAlreadyArmed and leaves the pending entry untouched.
func (t *GraceTracker) Arm(name domain.Nickname, onExpire func(domain.Nickname)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[name]; ok {
		return errors.ErrGraceAlreadyArmed
	}

	entry := &graceEntry{
		name:     name,
		deadline: t.clock.Now().Add(t.window),
		state:    gracePending,
	}
	// The callback needs t.mu before touching the entry, so it cannot observe
	// the entry before timer is assigned below.
	entry.timer = t.clock.AfterFunc(t.window, func() {
		t.expire(entry, onExpire)
	})
	t.entries[name] = entry

	t.log.Debug("Grace window armed", "nickname", name, "deadline", entry.deadline)
	return nil
}

// Disarm cancels the pending entry for name. It returns false when there is
// nothing to cancel, including when the deadline already fired.
func (t *GraceTracker) Disarm(name domain.Nickname) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[name]
	if !ok || entry.state != gracePending {
		return false
	}
	entry.state = graceCancelled
	entry.timer.Stop()
	delete(t.entries, name)

	t.log.Debug("Grace window cancelled", "nickname", name,
		"remaining", entry.deadline.Sub(t.clock.Now()))
	return true
}

func (t *GraceTracker) expire(entry *graceEntry, onExpire func(domain.Nickname)) {
	t.guard.Lock()
	defer t.guard.Unlock()

	t.mu.Lock()
	if entry.state != gracePending {
		t.mu.Unlock()
		return
	}
	entry.state = graceFired
	if t.entries[entry.name] == entry {
		delete(t.entries, entry.name)
	}
	t.mu.Unlock()

	t.log.Debug("Grace window expired", "nickname", entry.name)
	if onExpire != nil {
		onExpire(entry.name)
	}
}

func (t *GraceTracker) Pending(name domain.Nickname) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[name]
	return ok
}

// PendingNicknames returns the nicknames currently inside their grace window, sorted.
func (t *GraceTracker) PendingNicknames() []domain.Nickname {
	t.mu.Lock()
	names := lo.Keys(t.entries)
	t.mu.Unlock()

	domain.SortNicknames(names)
	return names
}

func (t *GraceTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Stop cancels every pending entry without running callbacks and returns how many were cancelled.
func (t *GraceTracker) Stop() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for name, entry := range t.entries {
		if entry.state == gracePending {
			entry.state = graceCancelled
			entry.timer.Stop()
			count++
		}
		delete(t.entries, name)
	}
	return count
}
