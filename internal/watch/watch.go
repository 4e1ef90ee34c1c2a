// Package watch reports changes another process makes to the daychain database.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hpungsan/daychain/internal/db"
)

// DefaultDelay is the coalescing window for bursts of writes.
const DefaultDelay = 100 * time.Millisecond

// Event is one coalesced change notification. Files lists the base names that
// changed during the window, sorted.
type Event struct {
	Files []string
}

// Options tunes a watcher.
type Options struct {
	// Delay overrides DefaultDelay when positive.
	Delay  time.Duration
	Logger *slog.Logger
}

// Watch streams reload signals for writes to the database file and its WAL
// until ctx is cancelled. The channel is closed when ctx is done or the
// watcher fails. Callers should drain it; signals are dropped while the
// buffer is full.
func Watch(ctx context.Context, baseDir string, opts Options) (<-chan Event, error) {
	if baseDir == "" {
		return nil, errors.New("watch: base directory unknown")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	if err := watcher.Add(baseDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch: add %s: %w", baseDir, err)
	}

	events := make(chan Event, 64)
	out := &sink{ch: events}
	throttle := newThrottle(delay, out.send)

	go func() {
		defer func() {
			throttle.Stop()
			out.close()
			if err := watcher.Close(); err != nil {
				logger.Warn("watcher close failed", "error", err)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				// The cause is unknown, so ask for a full reload.
				logger.Warn("watcher error", "error", err)
				throttle.Enqueue(db.FileName)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				name := filepath.Base(evt.Name)
				if !IsDatabaseFile(name) {
					continue
				}
				throttle.Enqueue(name)
			}
		}
	}()

	return events, nil
}

// IsDatabaseFile reports whether name is the database or one of its SQLite
// side files.
func IsDatabaseFile(name string) bool {
	if name == db.FileName {
		return true
	}
	suffix, ok := strings.CutPrefix(name, db.FileName)
	if !ok {
		return false
	}
	return suffix == "-wal" || suffix == "-journal"
}

// sink makes sends after close a no-op so a late throttle flush cannot panic.
type sink struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func (s *sink) send(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- ev:
	default:
		// Consumer is behind; the next signal triggers the same reload.
	}
}

func (s *sink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// throttle coalesces rapid writes into one event per window.
type throttle struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
	delay   time.Duration
	send    func(Event)
}

func newThrottle(delay time.Duration, send func(Event)) *throttle {
	return &throttle{
		delay:   delay,
		send:    send,
		pending: make(map[string]struct{}),
	}
}

func (t *throttle) Enqueue(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[name] = struct{}{}
	if t.timer == nil {
		t.timer = time.AfterFunc(t.delay, t.flush)
	}
}

func (t *throttle) flush() {
	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[string]struct{})
	t.timer = nil
	t.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	files := make([]string, 0, len(pending))
	for name := range pending {
		files = append(files, name)
	}
	sort.Strings(files)
	t.send(Event{Files: files})
}

func (t *throttle) Stop() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
}
