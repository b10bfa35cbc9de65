// Package persistence defines the durable snapshot shape of the presence
// state and the stores that read and write it.
package persistence

import (
	"context"
	"errors"
)

// ErrCorruptState is returned when a stored snapshot cannot be decoded.
var ErrCorruptState = errors.New("persistence: corrupt state")

// Entry mirrors one stored status declaration.
type Entry struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// BoardMessageRef locates the live pinned board message. Zero values mean no
// board message is known.
type BoardMessageRef struct {
	Channel   string `json:"channel"`
	Timestamp string `json:"ts"`
}

// Snapshot is the durable shape of the presence state: person name to date
// key ("YYYY-MM-DD") to entry, plus the board message reference.
type Snapshot struct {
	Schedules    map[string]map[string]Entry `json:"schedules"`
	BoardMessage BoardMessageRef             `json:"board_message"`
}

// Store persists snapshots. Implementations must treat Save as a full
// replacement of the previous snapshot.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Close() error
}
