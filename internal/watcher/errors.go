package watcher

import "errors"

// Sentinel errors returned by Detector
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrWatchFailed     = errors.New("watch failed")
	ErrStopFailed      = errors.New("stop failed")
	ErrClosed          = errors.New("detector closed")
)
