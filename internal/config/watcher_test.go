package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const watcherYAMLOne = `
proxies:
  - id: one
    name: One
    listen_path: /one
    backend_protocol: http
    backend_host: one.internal
`

const watcherYAMLTwo = `
proxies:
  - id: one
    name: One
    listen_path: /one
    backend_protocol: http
    backend_host: one.internal
  - id: two
    name: Two
    listen_path: /two
    backend_protocol: http
    backend_host: two.internal
`

func TestWatcher_LoadsInitialEntries(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "proxy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watcherYAMLOne), 0o600))

	w, err := NewWatcher(path, nil, WithDebounceDelay(25*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop() //nolint:errcheck

	entries := w.LastEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "one", entries[0].ID)
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "proxy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watcherYAMLOne), 0o600))

	reloaded := make(chan []RouteEntry, 1)
	w, err := NewWatcher(path, func(entries []RouteEntry) {
		reloaded <- entries
	}, WithDebounceDelay(25*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop() //nolint:errcheck

	require.NoError(t, os.WriteFile(path, []byte(watcherYAMLTwo), 0o600))

	select {
	case entries := <-reloaded:
		require.Len(t, entries, 2)
		assert.Equal(t, "two", entries[1].ID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload callback")
	}

	assert.Len(t, w.LastEntries(), 2)
}

func TestWatcher_KeepsPreviousEntriesOnBadReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "proxy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watcherYAMLOne), 0o600))

	failed := make(chan error, 1)
	w, err := NewWatcher(path,
		func(entries []RouteEntry) { t.Error("callback must not fire for an invalid config") },
		WithDebounceDelay(25*time.Millisecond),
		WithErrorCallback(func(err error) { failed <- err }),
	)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop() //nolint:errcheck

	require.NoError(t, os.WriteFile(path, []byte("proxies: [broken"), 0o600))

	select {
	case err := <-failed:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for error callback")
	}

	entries := w.LastEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "one", entries[0].ID)
}

func TestWatcher_StartFailsOnBadInitialConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "proxy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("proxies: [broken"), 0o600))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)

	err = w.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestWatcher_StopReturnsAfterFailedStart(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "proxy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("proxies: [broken"), 0o600))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	require.Error(t, w.Start(context.Background()))

	// The watch goroutine was never started, so Stop must not wait
	// for it.
	stopped := make(chan error, 1)
	go func() { stopped <- w.Stop() }()

	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked after a failed Start")
	}
}

func TestWatcher_StartRetriesAfterFailure(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "proxy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("proxies: [broken"), 0o600))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	require.Error(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(path, []byte(watcherYAMLOne), 0o600))
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop() //nolint:errcheck

	require.Len(t, w.LastEntries(), 1)
}

func TestWatcher_StopIsIdempotentBeforeStart(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "proxy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watcherYAMLOne), 0o600))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	assert.NoError(t, w.Stop())
}
