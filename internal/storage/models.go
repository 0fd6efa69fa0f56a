package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// VideoRecord is the persisted result of processing one video.
type VideoRecord struct {
	ID        string
	Title     string
	Duration  float64 // seconds, 0 when unknown
	Method    string  // extraction method that produced the transcript
	CreatedAt time.Time
}
