// Package presence keeps a best-effort view of which users are online.
//
// A Tracker writes heartbeats for the signed-in user, polls the store for everyone's
// online flag, and locally demotes users whose flag has not been confirmed for a while.
// Store failures never reach callers; they only make the view less fresh.
package presence

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spigell/gigboard/internal/logger"
	"go.uber.org/zap"
)

type timerKind int

const (
	timerHeartbeatNow timerKind = iota
	timerFetchNow
	timerHeartbeat
	timerFetch
	timerSweep
	timerRetry
)

type Tracker struct {
	cfg    Config
	store  Store
	clock  Clock
	logger *zap.Logger

	mu sync.Mutex

	state   State
	closed  bool
	userID  string
	session string

	// generation changes on every start and teardown; callbacks from an older
	// generation are ignored.
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
	timers     map[timerKind]Timer

	online   map[string]bool
	lastSeen map[string]time.Time

	fetching  bool
	lastFetch time.Time
	failures  int

	offline sync.WaitGroup
}

// New returns a disabled tracker. Call Update to start tracking.
func New(cfg *Config, deps *Deps) (*Tracker, error) {
	if deps == nil || deps.Store == nil {
		return nil, errors.New("presence store is required")
	}

	c := DefaultConfig()
	if cfg != nil {
		c = cfg.withDefaults()
	}

	clock := deps.Clock
	if clock == nil {
		clock = RealClock()
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Tracker{
		cfg:      c,
		store:    deps.Store,
		clock:    clock,
		logger:   log,
		state:    StateDisabled,
		timers:   make(map[timerKind]Timer),
		online:   make(map[string]bool),
		lastSeen: make(map[string]time.Time),
	}, nil
}

// Update applies a new eligibility. It starts tracking when a user becomes eligible,
// stops it when eligibility is lost, and restarts it when the user changes.
func (t *Tracker) Update(e Eligibility) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}

	userID := strings.TrimSpace(e.UserID)

	switch {
	case !e.Eligible():
		if t.state != StateDisabled {
			t.teardownLocked("not eligible")
		}
	case t.state == StateDisabled:
		t.startLocked(userID)
	case userID != t.userID:
		t.teardownLocked("user changed")
		t.startLocked(userID)
	}
}

// Close stops tracking for good. Later Update calls are ignored.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true

	if t.state != StateDisabled {
		t.teardownLocked("closed")
	}
}

// Flush closes the tracker, then waits until the offline writes issued by teardowns
// have finished or ctx is done. Closing first means no new write can start while waiting.
func (t *Tracker) Flush(ctx context.Context) error {
	t.Close()

	done := make(chan struct{})
	go func() {
		t.offline.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh fetches a snapshot now and blocks until it finishes. A fetch that is already
// running makes this a no-op. Unless force is set, the call is also skipped when the
// previous fetch started less than MinFetchSpacing ago.
func (t *Tracker) Refresh(force bool) {
	t.mu.Lock()
	gen := t.generation
	t.mu.Unlock()

	t.fetch(gen, force)
}

// IsOnline reports the local view of userID. Unknown users are offline.
func (t *Tracker) IsOnline(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.online[userID]
}

func (t *Tracker) Status() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

// Online returns the sorted IDs of users currently seen online.
func (t *Tracker) Online() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.online))
	for id, on := range t.online {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	return ids
}

// Snapshot returns a copy of the online flags.
func (t *Tracker) Snapshot() map[string]bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cp := make(map[string]bool, len(t.online))
	for id, on := range t.online {
		cp[id] = on
	}

	return cp
}

func (t *Tracker) startLocked(userID string) {
	t.generation++
	gen := t.generation

	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.userID = userID
	t.session = uuid.NewString()
	t.state = StateConnecting
	t.resetLocked()

	t.logger.Info("presence tracking started", t.fieldsLocked()...)

	t.scheduleLocked(timerHeartbeatNow, 0, gen, func() { t.heartbeat(gen) })
	t.scheduleLocked(timerFetchNow, 0, gen, func() { t.fetch(gen, true) })
	t.everyLocked(timerHeartbeat, t.cfg.HeartbeatInterval, gen, func() { t.heartbeat(gen) })
	t.everyLocked(timerFetch, t.cfg.FetchInterval, gen, func() { t.fetch(gen, false) })
	t.everyLocked(timerSweep, t.cfg.SweepInterval, gen, func() { t.sweep(gen) })
}

func (t *Tracker) teardownLocked(reason string) {
	t.logger.Info("presence tracking stopped", append(t.fieldsLocked(), zap.String("reason", reason))...)

	t.generation++
	for kind, timer := range t.timers {
		timer.Stop()
		delete(t.timers, kind)
	}
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}

	userID := t.userID
	t.userID = ""
	t.session = ""
	t.state = StateDisabled
	t.resetLocked()

	if userID == "" {
		return
	}

	t.offline.Add(1)
	go func() {
		defer t.offline.Done()
		t.markOffline(userID)
	}()
}

func (t *Tracker) resetLocked() {
	t.online = make(map[string]bool)
	t.lastSeen = make(map[string]time.Time)
	t.fetching = false
	t.lastFetch = time.Time{}
	t.failures = 0
}

func (t *Tracker) fieldsLocked() []zap.Field {
	return logger.PresenceFields(t.userID, t.session)
}

// scheduleLocked runs fn once after d unless the generation has moved on.
func (t *Tracker) scheduleLocked(kind timerKind, d time.Duration, gen uint64, fn func()) {
	if old, ok := t.timers[kind]; ok {
		old.Stop()
	}

	t.timers[kind] = t.clock.AfterFunc(d, func() {
		t.mu.Lock()
		if gen != t.generation {
			t.mu.Unlock()
			return
		}
		delete(t.timers, kind)
		t.mu.Unlock()

		fn()
	})
}

// everyLocked runs fn every interval. The next run is armed before fn starts.
func (t *Tracker) everyLocked(kind timerKind, interval time.Duration, gen uint64, fn func()) {
	t.timers[kind] = t.clock.AfterFunc(interval, func() {
		t.mu.Lock()
		if gen != t.generation {
			t.mu.Unlock()
			return
		}
		t.everyLocked(kind, interval, gen, fn)
		t.mu.Unlock()

		fn()
	})
}

// current returns the context and user of generation gen, or ok=false when it is stale.
func (t *Tracker) current(gen uint64) (ctx context.Context, userID string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.generation || t.state == StateDisabled {
		return nil, "", false
	}

	return t.ctx, t.userID, true
}

func (t *Tracker) heartbeat(gen uint64) {
	ctx, userID, ok := t.current(gen)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.RequestTimeout)
	defer cancel()

	if err := t.store.WriteOnlineFlag(ctx, userID, true); err != nil {
		t.logger.Warn("presence heartbeat failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	t.logger.Debug("presence heartbeat sent", zap.String("user_id", userID))
}

func (t *Tracker) fetch(gen uint64, force bool) {
	t.mu.Lock()
	if gen != t.generation || t.state == StateDisabled {
		t.mu.Unlock()
		return
	}
	if t.fetching {
		t.mu.Unlock()
		t.logger.Debug("presence fetch skipped", zap.String("reason", "fetch in progress"))
		return
	}
	now := t.clock.Now()
	if !force && !t.lastFetch.IsZero() && now.Sub(t.lastFetch) < t.cfg.MinFetchSpacing {
		t.mu.Unlock()
		t.logger.Debug("presence fetch skipped", zap.String("reason", "too soon after previous fetch"))
		return
	}
	t.fetching = true
	t.lastFetch = now
	ctx := t.ctx
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, t.cfg.RequestTimeout)
	flags, err := t.store.ReadAllOnlineFlags(ctx)
	cancel()

	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.generation {
		return
	}
	t.fetching = false

	if err != nil {
		t.fetchFailedLocked(gen, err)
		return
	}

	t.applySnapshotLocked(flags, t.clock.Now())
}

func (t *Tracker) applySnapshotLocked(flags []Flag, at time.Time) {
	online := make(map[string]bool, len(flags))
	lastSeen := make(map[string]time.Time, len(flags))
	for _, f := range flags {
		online[f.UserID] = f.Online
		if f.Online {
			lastSeen[f.UserID] = at
		}
	}

	t.online = online
	t.lastSeen = lastSeen
	t.failures = 0
	if retry, ok := t.timers[timerRetry]; ok {
		retry.Stop()
		delete(t.timers, timerRetry)
	}

	if t.state != StateConnected {
		t.logger.Info("presence connected", append(t.fieldsLocked(), zap.String("previous", t.state.String()))...)
	}
	t.state = StateConnected

	t.logger.Debug("presence snapshot applied", zap.Int("users", len(flags)), zap.Int("online", len(lastSeen)))
}

func (t *Tracker) fetchFailedLocked(gen uint64, err error) {
	t.failures++

	if t.failures < t.cfg.MaxFailures {
		delay := Backoff(t.failures, t.cfg.RetryBaseDelay, t.cfg.RetryMaxDelay)
		t.logger.Warn("presence fetch failed, retrying",
			zap.Int("attempt", t.failures),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		t.scheduleLocked(timerRetry, delay, gen, func() { t.fetch(gen, true) })
		return
	}

	t.logger.Error("presence fetch failed, giving up until next interval",
		append(t.fieldsLocked(), zap.Int("attempts", t.failures), zap.Error(err))...,
	)

	t.failures = 0
	t.state = StateDisconnected
	t.online = make(map[string]bool)
	t.lastSeen = make(map[string]time.Time)
}

// sweep demotes users whose online flag has not been confirmed within StaleAfter.
func (t *Tracker) sweep(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.generation {
		return
	}

	now := t.clock.Now()

	var demoted []string
	for id, on := range t.online {
		if !on {
			continue
		}
		seen, ok := t.lastSeen[id]
		if !ok || now.Sub(seen) > t.cfg.StaleAfter {
			t.online[id] = false
			demoted = append(demoted, id)
		}
	}

	if len(demoted) > 0 {
		sort.Strings(demoted)
		t.logger.Debug("presence sweep demoted stale users", zap.Strings("users", demoted))
	}
}

// markOffline is the fire-and-forget write issued on teardown. It is never retried.
func (t *Tracker) markOffline(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.RequestTimeout)
	defer cancel()

	if err := t.store.WriteOnlineFlag(ctx, userID, false); err != nil {
		t.logger.Warn("presence offline write failed", zap.String("user_id", userID), zap.Error(err))
	}
}
