package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDatabaseFile(t *testing.T) {
	cases := map[string]bool{
		"daychain.db":         true,
		"daychain.db-wal":     true,
		"daychain.db-journal": true,
		"daychain.db-shm":     false,
		"config.json":         false,
		"daychain.dbx":        false,
	}
	for name, want := range cases {
		assert.Equal(t, want, IsDatabaseFile(name), name)
	}
}

func TestWatch_EmitsOnDatabaseWrite(t *testing.T) {
	base := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := Watch(ctx, base, Options{Delay: 20 * time.Millisecond})
	require.NoError(t, err)

	// Allow the watcher goroutine to subscribe before writing.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(base, "config.json"), []byte("{}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(base, "daychain.db"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(base, "daychain.db-wal"), []byte("y"), 0o600))

	deadline := time.After(2 * time.Second)
	seen := map[string]bool{}
	for !seen["daychain.db"] || !seen["daychain.db-wal"] {
		select {
		case evt := <-ch:
			for _, f := range evt.Files {
				assert.NotEqual(t, "config.json", f)
				seen[f] = true
			}
		case <-deadline:
			t.Fatalf("timed out waiting for database change, saw %v", seen)
		}
	}
}

func TestWatch_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := Watch(ctx, t.TempDir(), Options{})
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		for ok {
			_, ok = <-ch
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestWatch_MissingDir(t *testing.T) {
	_, err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope"), Options{})
	assert.Error(t, err)

	_, err = Watch(context.Background(), "", Options{})
	assert.Error(t, err)
}

func TestThrottle_Coalesces(t *testing.T) {
	var (
		mu  sync.Mutex
		got []Event
	)
	th := newThrottle(20*time.Millisecond, func(ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})
	defer th.Stop()

	th.Enqueue("daychain.db-wal")
	th.Enqueue("daychain.db")
	th.Enqueue("daychain.db-wal")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"daychain.db", "daychain.db-wal"}, got[0].Files)
}

func TestSink_SendAfterClose(t *testing.T) {
	s := &sink{ch: make(chan Event, 1)}
	s.close()
	assert.NotPanics(t, func() { s.send(Event{}) })
	s.close()
}
