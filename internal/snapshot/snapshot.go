package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/scry-chat/internal/domain"
)

// CurrentVersion is the snapshot format version written by this build.
const CurrentVersion = 1

// Common errors returned by snapshot stores
var (
	// ErrNoSnapshot is returned by Load when nothing has been saved yet
	ErrNoSnapshot = errors.New("no snapshot saved")

	// ErrUnsupportedVersion is returned when a snapshot was written by a newer format
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")

	// ErrUnknownBackend is returned by Open for an unrecognised backend name
	ErrUnknownBackend = errors.New("unknown snapshot backend")
)

// Snapshot is the durable copy of every conversation, keyed by scope key.
type Snapshot struct {
	Version       int                            `json:"version"`
	SavedAt       time.Time                      `json:"saved_at"`
	Conversations map[string]domain.Conversation `json:"conversations"`
}

// IsEmpty reports whether no conversation holds any turn.
func (s Snapshot) IsEmpty() bool {
	for _, c := range s.Conversations {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// Store saves and loads the latest snapshot.
type Store interface {
	// Save replaces the stored snapshot
	Save(ctx context.Context, snap Snapshot) error

	// Load returns the stored snapshot, or ErrNoSnapshot
	Load(ctx context.Context) (Snapshot, error)

	// LastSaved returns when the stored snapshot was written; zero when none exists
	LastSaved(ctx context.Context) (time.Time, error)

	// Close releases the backend's resources
	Close() error
}

func encode(snap Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

func decode(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Version > CurrentVersion {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	if snap.Conversations == nil {
		snap.Conversations = make(map[string]domain.Conversation)
	}
	return snap, nil
}
