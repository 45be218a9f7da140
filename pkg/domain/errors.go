package domain

import "errors"

// ErrMalformedEvent is returned when a stream message cannot be decoded into an Event.
var ErrMalformedEvent = errors.New("malformed event")

// ErrRunNotFound is returned when a view ID cannot be found in the session manager.
var ErrRunNotFound = errors.New("run not found")

// ErrIngestorClosed is returned when events are delivered after the stream was closed.
var ErrIngestorClosed = errors.New("ingestor closed")

// ErrRecordingNotFound is returned when an archive holds no recording for a run ID.
var ErrRecordingNotFound = errors.New("recording not found")
