package activity

import (
	"sync"
	"time"

	"monitor/internal/logging"
	"monitor/internal/store"
	"monitor/internal/types"
)

// DefaultIdleWindow is how long a session must stay quiet before its baseline
// is recaptured, so a long-idle re-open reads "no new activity" instead of a
// stale delta.
const DefaultIdleWindow = 30 * time.Second

// Source yields the current counters for a session, false when the session no
// longer exists.
type Source func(key store.BaselineKey) (types.ActivityCounters, bool)

// Tracker owns the baseline lifecycle: adopt-or-capture on first reference,
// recapture after the idle window, forget on teardown. Persistence failures
// are swallowed; the system degrades to treating the baseline as absent.
type Tracker struct {
	mu         sync.Mutex
	store      *store.Store
	source     Source
	logger     logging.Logger
	idleWindow time.Duration
	now        func() time.Time
	baselines  map[store.BaselineKey]types.ActivityBaseline
	timers     map[store.BaselineKey]*time.Timer
	closed     bool
}

func NewTracker(st *store.Store, source Source, logger logging.Logger) *Tracker {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Tracker{
		store:      st,
		source:     source,
		logger:     logger,
		idleWindow: DefaultIdleWindow,
		now:        time.Now,
		baselines:  map[store.BaselineKey]types.ActivityBaseline{},
		timers:     map[store.BaselineKey]*time.Timer{},
	}
}

// SetIdleWindow overrides the recapture window. Intended for tests.
func (t *Tracker) SetIdleWindow(window time.Duration) {
	t.mu.Lock()
	t.idleWindow = window
	t.mu.Unlock()
}

// Baseline returns the adopted baseline for a key, establishing one on first
// reference: a well-formed persisted entry is adopted, otherwise a fresh
// baseline is captured from the current snapshot and persisted.
func (t *Tracker) Baseline(key store.BaselineKey, current types.ActivityCounters) types.ActivityBaseline {
	t.mu.Lock()
	defer t.mu.Unlock()
	if baseline, ok := t.baselines[key]; ok {
		return baseline
	}
	if baseline, ok := t.store.Baseline(key); ok {
		t.baselines[key] = baseline
		return baseline
	}
	return t.captureLocked(key, current)
}

// Reopen forces a fresh capture, used when the user explicitly re-opens a
// session view.
func (t *Tracker) Reopen(key store.BaselineKey, current types.ActivityCounters) types.ActivityBaseline {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.captureLocked(key, current)
}

func (t *Tracker) captureLocked(key store.BaselineKey, current types.ActivityCounters) types.ActivityBaseline {
	baseline := types.ActivityBaseline{
		OpenedAt: t.now().UnixMilli(),
		Activity: current,
	}
	t.baselines[key] = baseline
	if err := t.store.PutBaseline(key, baseline); err != nil {
		t.logger.Debug("baseline_write_error",
			logging.F("workspace", key.WorkspaceID),
			logging.F("session", key.SessionID),
			logging.F("error", err),
		)
	}
	return baseline
}

// Touch resets the key's idle timer. When the window elapses with no further
// touches, the baseline is recaptured from the then-current snapshot. The
// timer fires at most once per quiescent interval.
func (t *Tracker) Touch(key store.BaselineKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if timer, ok := t.timers[key]; ok {
		timer.Stop()
	}
	t.timers[key] = time.AfterFunc(t.idleWindow, func() {
		t.recapture(key)
	})
}

func (t *Tracker) recapture(key store.BaselineKey) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	delete(t.timers, key)
	source := t.source
	t.mu.Unlock()

	if source == nil {
		return
	}
	current, ok := source(key)
	if !ok {
		t.Forget(key)
		return
	}
	t.mu.Lock()
	t.captureLocked(key, current)
	t.mu.Unlock()
}

// Forget drops the key's adopted baseline, idle timer and persisted entry,
// used when the workspace or session no longer matches.
func (t *Tracker) Forget(key store.BaselineKey) {
	t.mu.Lock()
	if timer, ok := t.timers[key]; ok {
		timer.Stop()
		delete(t.timers, key)
	}
	delete(t.baselines, key)
	t.mu.Unlock()
	_ = t.store.DeleteBaseline(key)
}

// ForgetWorkspace drops all tracked state for a workspace's sessions.
func (t *Tracker) ForgetWorkspace(workspaceID string) {
	t.mu.Lock()
	var keys []store.BaselineKey
	for key := range t.baselines {
		if key.WorkspaceID == workspaceID {
			keys = append(keys, key)
		}
	}
	for key := range t.timers {
		if key.WorkspaceID == workspaceID {
			keys = append(keys, key)
		}
	}
	t.mu.Unlock()
	for _, key := range keys {
		t.Forget(key)
	}
}

// MarkUserActivity records the last time the user acted on a session. Write
// failures are swallowed.
func (t *Tracker) MarkUserActivity(workspaceID, sessionID string) {
	activity := t.store.LastActivity(workspaceID)
	activity[sessionID] = t.now().UnixMilli()
	if err := t.store.PutLastActivity(workspaceID, activity); err != nil {
		t.logger.Debug("last_activity_write_error",
			logging.F("workspace", workspaceID),
			logging.F("session", sessionID),
			logging.F("error", err),
		)
	}
}

// Close stops every pending idle timer.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for key, timer := range t.timers {
		timer.Stop()
		delete(t.timers, key)
	}
}
