package cmdref

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

func writeDoc(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReloaderRejectsInvalidStartup(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, filepath.Join(dir, "ref.yaml"), "name:\n")

	rl, err := NewReloader("cli", "", []string{dir})
	assert.Nil(t, rl)
	assert.ErrorIs(t, err, ErrEmptyFeature)
}

func TestReloaderKeepsPreviousOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ref.yaml")
	writeDoc(t, path, "name:\n  default_value: one\n")

	rec := &countingRecorder{}
	rl, err := NewReloader("cli", "", []string{dir}, WithRecorder(rec))
	require.NoError(t, err)
	defer rl.Close()

	var reported error
	rl.OnError(func(err error) { reported = err })

	before := rl.Current()
	dv, _ := before.MustLookup("", "name").DefaultValue()
	assert.Equal(t, "one", dv.Str())

	writeDoc(t, path, "name:\n  default_value: one\n  default_value: two\n")
	err = rl.Reload()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.ErrorIs(t, reported, ErrDuplicateKey)
	assert.Same(t, before, rl.Current())

	var swapped *Reference
	rl.OnReload(func(ref *Reference) { swapped = ref })

	writeDoc(t, path, "name:\n  default_value: two\n")
	require.NoError(t, rl.Reload())
	assert.NotSame(t, before, rl.Current())
	assert.Same(t, rl.Current(), swapped)

	dv, _ = rl.Current().MustLookup("", "name").DefaultValue()
	assert.Equal(t, "two", dv.Str())
	assert.Equal(t, []bool{false, true}, rec.reloads)

	// the old reference keeps serving its callers
	dv, _ = before.MustLookup("", "name").DefaultValue()
	assert.Equal(t, "one", dv.Str())
}

func TestReloaderCallbacksMayReenter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ref.yaml")
	writeDoc(t, path, "name:\n  default_value: one\n")

	rl, err := NewReloader("cli", "", []string{dir})
	require.NoError(t, err)
	defer rl.Close()

	var failures, reloads int
	rl.OnError(func(error) {
		failures++
		rl.OnError(nil)
		_ = rl.Reload()
	})
	rl.OnReload(func(*Reference) {
		reloads++
		rl.OnReload(nil)
		_ = rl.Reload()
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = os.WriteFile(path, []byte("name:\n"), 0o644)
		_ = rl.Reload()
		_ = os.WriteFile(path, []byte("name:\n  default_value: two\n"), 0o644)
		_ = rl.Reload()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback deadlocked")
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, 1, reloads)

	dv, _ := rl.Current().MustLookup("", "name").DefaultValue()
	assert.Equal(t, "two", dv.Str())
}

func TestReloaderWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ref.yaml")
	writeDoc(t, path, "name:\n  default_value: one\n")

	rl, err := NewReloader("cli", "", []string{path}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	var reloads atomic.Int32
	rl.OnReload(func(*Reference) { reloads.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, rl.Watch(ctx))
	defer rl.Close()

	writeDoc(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeDoc(t, path, "name:\n  default_value: two\n")

	require.Eventually(t, func() bool {
		dv, _ := rl.Current().MustLookup("", "name").DefaultValue()
		return dv.Str() == "two"
	}, 5*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, reloads.Load(), int32(1))
}

func TestWatchDirs(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	file := filepath.Join(dir, "a.yaml")
	writeDoc(t, file, "")

	got := watchDirs([]string{dir, file, filepath.Join(sub, "*.yaml")})
	assert.Equal(t, []string{dir, sub}, got)
}
