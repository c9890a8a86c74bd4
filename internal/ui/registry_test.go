package ui

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Bundled(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	assert.Contains(t, r.Keys(), ShareViewTemplate)
}

func TestRegistry_UnknownKey(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	_, err = r.Lookup("missing")(map[string]any{})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestRegistry_DirAndMessageFunc(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "greeting.html"), `<b>{{message "_rave_client.common.search"}} {{.name}}</b>`)

	msgs, err := NewMessages("de")
	require.NoError(t, err)
	r, err := NewRegistry(WithDir(dir), WithMessages(msgs))
	require.NoError(t, err)

	out, err := r.Lookup("greeting")(map[string]any{"name": "<Ann>"})
	require.NoError(t, err)
	assert.Equal(t, "<b>Suchen &lt;Ann&gt;</b>", out)
}

func TestRegistry_LoadKeepsPreviousSetOnError(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.html")
	writeFile(t, file, `ok`)

	r, err := NewRegistry(WithDir(dir))
	require.NoError(t, err)

	writeFile(t, file, `{{if}}`)
	assert.Error(t, r.Load())

	out, err := r.Lookup("a")(nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestRegistry_WatchReloads(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.html")
	writeFile(t, file, `one`)

	r, err := NewRegistry(WithDir(dir))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	tmpl := r.Lookup("a")
	assert.Eventually(t, func() bool {
		// Rewrite until the watcher is registered and picks the change up.
		writeFile(t, file, `two`)
		out, err := tmpl(nil)
		return err == nil && out == "two"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestRegistry_WatchNeedsDir(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	assert.Error(t, r.Watch(context.Background()))
}

func TestMessages(t *testing.T) {
	en, err := NewMessages("")
	require.NoError(t, err)
	assert.Equal(t, "Showing 1-3 of 5", en.Get(MsgShowing, 1, 3, 5))
	assert.Equal(t, "unknown.key", en.Get("unknown.key"))

	fallback, err := NewMessages("fr")
	require.NoError(t, err)
	assert.Equal(t, "Search", fallback.Get(MsgSearch))

	_, err = NewMessages("!!")
	assert.Error(t, err)
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}
