package policy_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatekeep-dev/gatekeep/policy"
)

func TestWatcher_DebouncesChanges(t *testing.T) {
	root := t.TempDir()
	govDir := filepath.Join(root, "governance")
	require.NoError(t, os.MkdirAll(govDir, 0755))

	w, err := policy.NewWatcher(root, 50*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	// A burst of writes inside the quiet period collapses to one event.
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(
			filepath.Join(govDir, "security.yaml"),
			[]byte("rules: {}\n"), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case ev := <-w.Events():
		require.NotEmpty(t, ev.Paths)
		assert.Contains(t, ev.Paths[0], "security.yaml")
	case <-time.After(2 * time.Second):
		t.Fatal("expected a watch event")
	}

	// No pending changes: no further events.
	select {
	case ev, ok := <-w.Events():
		if ok {
			t.Fatalf("unexpected extra event: %v", ev.Paths)
		}
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_IgnoresNonYAML(t *testing.T) {
	root := t.TempDir()
	govDir := filepath.Join(root, "governance")
	require.NoError(t, os.MkdirAll(govDir, 0755))

	w, err := policy.NewWatcher(root, 50*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(govDir, "notes.txt"), []byte("x"), 0644))

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event for non-yaml file: %v", ev.Paths)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StopClosesEvents(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "governance"), 0755))

	w, err := policy.NewWatcher(root, 50*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Stop())

	select {
	case _, ok := <-w.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel did not close")
	}
}
