package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hedge/vaultsync/internal/patterns"
	"go.uber.org/zap"
)

// Options configures a Detector
type Options struct {
	// Source defaults to FSNotifySource
	Source Source
	// Matcher selects vault files, *.db when nil
	Matcher    *patterns.Matcher
	SplitMoves bool
	// Debounce of zero forwards every event as it is classified
	Debounce   time.Duration
	BufferSize int
	Logger     *zap.Logger
}

// Detector watches the parent directory of a single vault file and emits
// classified change events for vault files in it.
type Detector struct {
	source     Source
	classifier *Classifier
	debouncer  *Debouncer
	logger     *zap.Logger
	events     chan ChangeEvent

	mu       sync.Mutex
	sub      Subscription
	quit     chan struct{}
	wg       sync.WaitGroup
	target   string
	dir      string
	watching bool
	closed   bool
}

// NewDetector creates a detector that is not yet watching
func NewDetector(opts Options) *Detector {
	source := opts.Source
	if source == nil {
		source = FSNotifySource{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = 64
	}

	return &Detector{
		source:     source,
		classifier: NewClassifier(opts.Matcher, opts.SplitMoves),
		debouncer:  NewDebouncer(opts.Debounce),
		logger:     logger,
		events:     make(chan ChangeEvent, bufferSize),
	}
}

// Start watches the parent directory of path. The file itself does not need
// to exist. Starting while already watching is a no-op that succeeds and keeps
// the current target.
func (d *Detector) Start(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: missing path", ErrInvalidArgument)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.watching {
		d.logger.Debug("already watching", zap.String("dir", d.dir), zap.String("requested", path))
		return nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	dir := filepath.Dir(absPath)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: parent directory of %s: %v", ErrInvalidArgument, path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidArgument, dir)
	}

	sub, err := d.source.Subscribe(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWatchFailed, err)
	}

	d.sub = sub
	d.quit = make(chan struct{})
	d.target = absPath
	d.dir = dir
	d.watching = true

	d.wg.Add(1)
	go d.forward(sub, d.quit)

	d.logger.Info("watching vault directory", zap.String("dir", dir), zap.String("vault", absPath))
	return nil
}

// Stop releases the watch. Stopping when not watching succeeds. The watching
// flag is cleared even if releasing the subscription fails. An event already
// in flight may still be delivered after Stop returns.
func (d *Detector) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.stopLocked()
}

func (d *Detector) stopLocked() error {
	if !d.watching {
		return nil
	}

	close(d.quit)
	err := d.sub.Close()
	d.wg.Wait()
	d.debouncer.Stop()

	d.logger.Info("stopped watching", zap.String("dir", d.dir))

	d.sub = nil
	d.quit = nil
	d.target = ""
	d.dir = ""
	d.watching = false

	if err != nil {
		return fmt.Errorf("%w: %v", ErrStopFailed, err)
	}
	return nil
}

// Close stops watching for good. The events channel is left open because a
// debounced delivery may still be pending; consumers stop on their own
// context.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.stopLocked()
}

// Watching reports whether a watch is active
func (d *Detector) Watching() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.watching
}

// Target returns the absolute vault path given to Start, empty when idle
func (d *Detector) Target() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.target
}

// Dir returns the watched directory, empty when idle
func (d *Detector) Dir() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dir
}

// Events returns the channel of classified change events
func (d *Detector) Events() <-chan ChangeEvent {
	return d.events
}

// forward classifies raw events of one subscription until it ends or quit
// is closed
func (d *Detector) forward(sub Subscription, quit <-chan struct{}) {
	defer d.wg.Done()

	events := sub.Events()
	errs := sub.Errors()

	for {
		select {
		case raw, ok := <-events:
			if !ok {
				return
			}
			event, ok := d.classifier.Classify(raw)
			if !ok {
				continue
			}
			d.debouncer.Process(event.Path, func() {
				d.deliver(event, quit)
			})
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			d.logger.Warn("watcher error", zap.Error(err))
		case <-quit:
			return
		}
	}
}

func (d *Detector) deliver(event ChangeEvent, quit <-chan struct{}) {
	select {
	case d.events <- event:
		d.logger.Debug("vault changed",
			zap.String("kind", string(event.Kind)),
			zap.String("path", event.Path))
	case <-quit:
	}
}
