package watcher

import (
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Op is a set of raw filesystem operations
type Op uint32

// Raw operations reported by a Source
const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpMovedOut
	OpMovedIn
	OpChmod
)

// Has reports whether op contains all bits of other
func (op Op) Has(other Op) bool {
	return op&other == other
}

// RawEvent is an unclassified event for an entry of the watched directory
type RawEvent struct {
	Name string
	Op   Op
}

// Subscription delivers raw events for one directory. It cannot be restarted
// once closed.
type Subscription interface {
	Events() <-chan RawEvent
	Errors() <-chan error
	Close() error
}

// Source subscribes to raw events of a single directory, non-recursively
type Source interface {
	Subscribe(dir string) (Subscription, error)
}

// FSNotifySource is the Source backed by the OS notification facility
type FSNotifySource struct{}

// Subscribe registers an fsnotify watch on dir
func (FSNotifySource) Subscribe(dir string) (Subscription, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	sub := &fsnotifySubscription{
		watcher: w,
		events:  make(chan RawEvent, 64),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}
	go sub.pump()

	return sub, nil
}

type fsnotifySubscription struct {
	watcher   *fsnotify.Watcher
	events    chan RawEvent
	errors    chan error
	done      chan struct{}
	closeOnce sync.Once
}

func (s *fsnotifySubscription) Events() <-chan RawEvent { return s.events }

func (s *fsnotifySubscription) Errors() <-chan error { return s.errors }

func (s *fsnotifySubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.watcher.Close()
	})
	return err
}

// pump converts fsnotify events until the watcher is closed
func (s *fsnotifySubscription) pump() {
	defer close(s.events)
	defer close(s.errors)

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			select {
			case s.events <- RawEvent{Name: event.Name, Op: fromFSNotify(event.Op)}:
			case <-s.done:
				return
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			select {
			case s.errors <- err:
			default:
			}
		case <-s.done:
			return
		}
	}
}

// fromFSNotify maps fsnotify ops. A file moved into the directory is reported
// by fsnotify as Create, so OpMovedIn never appears from this source.
func fromFSNotify(op fsnotify.Op) Op {
	var out Op
	if op.Has(fsnotify.Create) {
		out |= OpCreate
	}
	if op.Has(fsnotify.Write) {
		out |= OpWrite
	}
	if op.Has(fsnotify.Remove) {
		out |= OpRemove
	}
	if op.Has(fsnotify.Rename) {
		out |= OpMovedOut
	}
	if op.Has(fsnotify.Chmod) {
		out |= OpChmod
	}
	return out
}
