package rulespec

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/turtacn/ChemClassify/internal/domain/rule"
	"github.com/turtacn/ChemClassify/internal/infrastructure/logging"
	"github.com/turtacn/ChemClassify/pkg/errors"
)

// reloadDebounce coalesces the event bursts editors and atomic-rename
// writers produce for a single logical save.
const reloadDebounce = 150 * time.Millisecond

// ReloadFunc receives each successfully reloaded rule set.
type ReloadFunc func(*rule.RuleSet)

// Watcher hot-reloads a rule-set file.  A reload that fails validation is
// logged and dropped; the previously delivered rule set stays in effect.
type Watcher struct {
	path     string
	log      logging.Logger
	onReload ReloadFunc

	fsw       *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher validates that path currently holds a loadable rule set and
// delivers it through onReload before any file events are processed, so the
// caller always starts from a known-good state.
func NewWatcher(path string, log logging.Logger, onReload ReloadFunc) (*Watcher, error) {
	if onReload == nil {
		return nil, errors.InvalidParam("watcher requires a reload callback")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	initial, err := Load(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create file watcher")
	}
	// Watch the directory, not the file: atomic saves replace the inode and
	// a file-level watch would go stale after the first rewrite.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to watch rule-set directory").
			WithDetail("path=" + path)
	}

	w := &Watcher{
		path:     filepath.Clean(path),
		log:      log.Named("rulespec.watcher"),
		onReload: onReload,
		fsw:      fsw,
		done:     make(chan struct{}),
	}
	onReload(initial)
	go w.loop()
	return w, nil
}

// Close stops the watcher.  Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(reloadDebounce)
			}

		case <-timerC:
			rs, err := Load(w.path)
			if err != nil {
				w.log.Warn("rule-set reload rejected, keeping previous version",
					logging.String("path", w.path),
					logging.Err(err))
				continue
			}
			w.log.Info("rule set reloaded",
				logging.String("path", w.path),
				logging.Int("rules", rs.Len()),
				logging.Int("classes", rs.Graph().Len()))
			w.onReload(rs)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error", logging.Err(err))

		case <-w.done:
			return
		}
	}
}
