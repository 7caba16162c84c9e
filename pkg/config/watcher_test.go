package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher(t *testing.T) {
	t.Run("Should notify when the file is written", func(t *testing.T) {
		path := writeYAML(t, "a: 1\n")
		w, err := NewWatcher()
		require.NoError(t, err)
		t.Cleanup(func() { _ = w.Close() })

		var calls atomic.Int32
		w.OnChange(func() { calls.Add(1) })
		require.NoError(t, w.Watch(t.Context(), path))

		require.Eventually(t, func() bool {
			_ = os.WriteFile(path, []byte("a: 2\n"), 0o644)
			return calls.Load() > 0
		}, 3*time.Second, 50*time.Millisecond)
	})

	t.Run("Should notify when the file is created after watching starts", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "late.yaml")
		w, err := NewWatcher()
		require.NoError(t, err)
		t.Cleanup(func() { _ = w.Close() })

		var calls atomic.Int32
		w.OnChange(func() { calls.Add(1) })
		require.NoError(t, w.Watch(t.Context(), path))
		require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o644))

		assert.Eventually(t, func() bool { return calls.Load() > 0 }, 3*time.Second, 20*time.Millisecond)
	})

	t.Run("Should ignore sibling files", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "tally.yaml")
		require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o644))
		w, err := NewWatcher()
		require.NoError(t, err)
		t.Cleanup(func() { _ = w.Close() })

		var calls atomic.Int32
		w.OnChange(func() { calls.Add(1) })
		require.NoError(t, w.Watch(t.Context(), path))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("b: 1\n"), 0o644))

		time.Sleep(200 * time.Millisecond)
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("Should stop notifying once the watch context is canceled", func(t *testing.T) {
		path := writeYAML(t, "a: 1\n")
		w, err := NewWatcher()
		require.NoError(t, err)
		t.Cleanup(func() { _ = w.Close() })

		var calls atomic.Int32
		w.OnChange(func() { calls.Add(1) })
		ctx, cancel := context.WithCancel(t.Context())
		require.NoError(t, w.Watch(ctx, path))
		cancel()

		time.Sleep(100 * time.Millisecond)
		require.NoError(t, os.WriteFile(path, []byte("a: 2\n"), 0o644))
		time.Sleep(200 * time.Millisecond)
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("Should close idempotently", func(t *testing.T) {
		w, err := NewWatcher()
		require.NoError(t, err)
		require.NoError(t, w.Close())
		require.NoError(t, w.Close())
	})
}
