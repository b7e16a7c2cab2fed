package cmd

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/nixpig/corkscrew/packages/core/config"
	"github.com/nixpig/corkscrew/packages/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWatcher struct {
	added []string
}

func (w *recordingWatcher) Add(name string) error {
	w.added = append(w.added, name)
	return nil
}

func watchSession(requests, envFile string) *session {
	return &session{
		logger:   ctxlog.New(io.Discard, false),
		config:   &config.Config{EnvFile: envFile},
		settings: config.NewSettings(requests, 0, nil),
	}
}

func TestWatchSet_FollowsEnvFileOfNewSession(t *testing.T) {
	prev := configFlag
	configFlag = ""
	t.Cleanup(func() { configFlag = prev })

	first, second := t.TempDir(), t.TempDir()
	requests := filepath.Join(first, "requests.yml")
	oldEnv := filepath.Join(first, ".env")
	newEnv := filepath.Join(second, ".env")

	w := &recordingWatcher{}
	ws := newWatchSet(w)

	require.NoError(t, ws.update(watchSession(requests, oldEnv)))
	assert.Equal(t, []string{first}, w.added)
	assert.True(t, ws.matches(oldEnv))
	assert.False(t, ws.matches(newEnv))

	require.NoError(t, ws.update(watchSession(requests, newEnv)))
	assert.Equal(t, []string{first, second}, w.added, "each directory is added once")
	assert.True(t, ws.matches(newEnv))
	assert.True(t, ws.matches(requests))
	assert.False(t, ws.matches(oldEnv))
}
