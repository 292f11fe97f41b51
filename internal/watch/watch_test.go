package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnored(t *testing.T) {
	for _, p := range []string{"src/.hidden", "slide01.dsh~", "x.swp", "x.swx", "#slide#", "a/Thumbs.db"} {
		assert.True(t, ignored(p), p)
	}
	for _, p := range []string{"src/slide01.dsh", "notes.md", "#partial"} {
		assert.False(t, ignored(p), p)
	}
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	ch, trigger, stop := debouncer(20 * time.Millisecond)
	defer stop()

	for i := 0; i < 5; i++ {
		trigger()
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("debounced signal not delivered")
	}
	select {
	case <-ch:
		t.Fatal("burst produced more than one signal")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestWatcher_RebuildsOnChange(t *testing.T) {
	dir := t.TempDir()
	var builds atomic.Int32
	rebuilt := make(chan struct{}, 4)

	w := New([]string{dir}, func(context.Context) error {
		if builds.Add(1) > 1 {
			rebuilt <- struct{}{}
		}
		return errors.New("builds may fail without stopping the watcher")
	}, WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return builds.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slide01.dsh"), []byte("text \"x\" 50 50 3"), 0o644))

	select {
	case <-rebuilt:
	case <-time.After(3 * time.Second):
		t.Fatal("no rebuild after change")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestWatcher_MissingDir(t *testing.T) {
	w := New([]string{filepath.Join(t.TempDir(), "missing")}, func(context.Context) error { return nil })
	assert.ErrorContains(t, w.Run(context.Background()), "cannot watch")
}
