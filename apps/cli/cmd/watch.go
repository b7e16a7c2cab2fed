package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

// watch runs the batch, then runs it again whenever the request file, the
// env file or the tool config changes. Each rerun starts from a fresh
// session so edits to any of them take effect.
func watch(cmd *cobra.Command, args []string, s *session, out io.Writer) error {
	errOut := cmd.ErrOrStderr()

	report := func(s *session) {
		if err := s.runOnce(out); err != nil {
			s.reportError(errOut, err)
		}
	}
	report(s)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	ws := newWatchSet(watcher)
	if err := ws.update(s); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(errOut, "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	var debounceTimer *time.Timer
	changed := make(chan string, 1)

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !ws.matches(event.Name) {
				continue
			}

			// Debounce: reset timer on each event
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case changed <- name:
				default:
				}
			})

		case name := <-changed:
			fmt.Fprintf(errOut, "\nFile changed: %s\nRe-running...\n\n", name)

			next, err := newSession(cmd, args)
			if err != nil {
				s.reportError(errOut, err)
			} else {
				s = next
				if err := ws.update(s); err != nil {
					s.reportError(errOut, err)
				}
				report(s)
			}

			fmt.Fprintf(errOut, "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.reportError(errOut, fmt.Errorf("watcher error: %w", err))
		}
	}
}

type dirWatcher interface {
	Add(name string) error
}

// watchSet tracks the files that trigger a rerun and the directories
// watched for them. Directories are never removed.
type watchSet struct {
	watcher dirWatcher
	dirs    map[string]bool
	targets map[string]bool
}

func newWatchSet(w dirWatcher) *watchSet {
	return &watchSet{watcher: w, dirs: make(map[string]bool)}
}

// update takes the targets from s and starts watching any directory not
// watched yet.
func (ws *watchSet) update(s *session) error {
	ws.targets = watchTargets(s)
	for path := range ws.targets {
		dir := filepath.Dir(path)
		if ws.dirs[dir] {
			continue
		}
		if err := ws.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		ws.dirs[dir] = true
		s.logger.Debug("watching directory", "dir", dir)
	}
	return nil
}

func (ws *watchSet) matches(name string) bool {
	return ws.targets[absPath(name)]
}

// watchTargets returns the absolute paths whose changes trigger a rerun.
func watchTargets(s *session) map[string]bool {
	targets := map[string]bool{
		absPath(s.settings.ConfigPath): true,
	}
	if s.config.EnvFile != "" {
		targets[absPath(s.config.EnvFile)] = true
	}
	if configFlag != "" {
		targets[absPath(configFlag)] = true
	}
	return targets
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
