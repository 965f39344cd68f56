package portal

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultCheckInterval = 30 * time.Second

// ActivityEvents are the interactions that count as user activity.
var ActivityEvents = []string{"mousemove", "mousedown", "keydown", "scroll", "touchstart", "click"}

type IdleOption func(*IdleWatcher)

func WithCheckInterval(interval time.Duration) IdleOption {
	return func(w *IdleWatcher) {
		w.interval = interval
	}
}

func WithClock(now func() time.Time) IdleOption {
	return func(w *IdleWatcher) {
		w.now = now
	}
}

// IdleWatcher signs the session out after a period without activity. It runs only while
// the session is authenticated and the configured threshold is positive.
type IdleWatcher struct {
	session  *Session
	interval time.Duration
	now      func() time.Time
	events   map[string]struct{}

	mu           sync.Mutex
	threshold    time.Duration
	lastActivity time.Time
	stop         chan struct{}
	stopped      bool
}

func NewIdleWatcher(session *Session, opts ...IdleOption) *IdleWatcher {
	w := &IdleWatcher{
		session:  session,
		interval: defaultCheckInterval,
		now:      time.Now,
		events:   make(map[string]struct{}, len(ActivityEvents)),
	}
	for _, event := range ActivityEvents {
		w.events[event] = struct{}{}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Sync reads the threshold from the public settings and arms the watcher with it.
func (w *IdleWatcher) Sync(ctx context.Context) (bool, error) {
	settings, err := w.session.client.PublicSettings(ctx)
	if err != nil {
		return false, err
	}
	return w.Arm(ctx, settings.AutoLogoutMinutes), nil
}

// Arm starts the idle timer. It disarms instead when the session is anonymous or
// minutes is not positive. The timer stops with ctx.
func (w *IdleWatcher) Arm(ctx context.Context, minutes int) bool {
	if minutes <= 0 || !w.session.Authenticated() {
		w.Disarm()
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return false
	}

	w.threshold = time.Duration(minutes) * time.Minute
	w.lastActivity = w.now()
	if w.stop == nil {
		w.stop = make(chan struct{})
		go w.run(ctx, w.stop)
	}
	return true
}

func (w *IdleWatcher) Armed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stop != nil
}

// Touch records activity. Events outside ActivityEvents are ignored.
func (w *IdleWatcher) Touch(event string) bool {
	if _, ok := w.events[event]; !ok {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop == nil {
		return false
	}
	w.lastActivity = w.now()
	return true
}

func (w *IdleWatcher) Disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.disarm()
}

// Stop disarms the watcher for good.
func (w *IdleWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.disarm()
	w.stopped = true
}

// disarm expects w.mu to be held.
func (w *IdleWatcher) disarm() {
	if w.stop != nil {
		close(w.stop)
		w.stop = nil
	}
}

func (w *IdleWatcher) run(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.stop == stop {
				w.disarm()
			}
			w.mu.Unlock()
			return
		case <-stop:
			return
		case <-ticker.C:
			if w.check(ctx, stop) {
				return
			}
		}
	}
}

// check logs the session out once the idle time exceeds the threshold. It returns true
// when the timer must stop.
func (w *IdleWatcher) check(ctx context.Context, stop <-chan struct{}) bool {
	w.mu.Lock()
	if w.stop != stop {
		w.mu.Unlock()
		return true
	}
	if !w.session.Authenticated() {
		w.disarm()
		w.mu.Unlock()
		return true
	}

	idle := w.now().Sub(w.lastActivity)
	if idle <= w.threshold {
		w.mu.Unlock()
		return false
	}
	w.disarm()
	w.mu.Unlock()

	w.session.client.logger.Info("Signing out idle session", zap.Duration("idle", idle))
	if err := w.session.Logout(ctx); err != nil {
		w.session.client.logger.Warn("Idle logout could not reach the server", zap.Error(err))
	}
	return true
}
