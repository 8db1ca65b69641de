package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors. Callers classify store failures with errors.Is.
var (
	// ErrNotFound is returned when a recording id does not exist.
	ErrNotFound = errors.New("store: recording not found")

	// ErrConflict is returned by Claim when the recording is no longer
	// pending, typically because another worker claimed it first.
	ErrConflict = errors.New("store: recording not claimable")

	// ErrUnavailable wraps infrastructure-level failures (storage engine
	// unreachable or I/O errors). These are transient: the caller should
	// back off and retry the whole cycle rather than touch item state.
	ErrUnavailable = errors.New("store: unavailable")
)

// Status is the lifecycle state of a recording.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Recording is the unit of work: one uploaded audio clip plus its
// processing state. Field names follow the document contract shared with
// the web collaborator, which creates recordings with status "pending"
// and must never write status or transcription afterwards.
type Recording struct {
	ID            string    `json:"id"`
	MeetingName   string    `json:"meeting_name"`
	AudioData     string    `json:"audio_data"` // standard base64
	Status        Status    `json:"status"`
	Transcription string    `json:"transcription,omitempty"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ClaimedAt     time.Time `json:"claimed_at,omitempty"`
}

// Client is the store abstraction used by the processing loop.
//
// Claim performs an atomic compare-and-set from pending to processing, so
// two workers polling the same store never process the same recording:
// the loser receives ErrConflict and moves on.
type Client interface {
	// Create persists a new recording. An empty ID is assigned, CreatedAt
	// is stamped, and the status is forced to pending.
	Create(ctx context.Context, rec *Recording) error

	// Get retrieves a recording by id.
	Get(ctx context.Context, id string) (*Recording, error)

	// ListPending returns all recordings currently in status pending, in
	// store-native (id-lexicographic) order.
	ListPending(ctx context.Context) ([]*Recording, error)

	// Claim transitions a recording from pending to processing and stamps
	// ClaimedAt. Returns ErrConflict if the recording is not pending.
	Claim(ctx context.Context, id string) (*Recording, error)

	// SaveResult stores the transcript and marks the recording completed
	// as a single atomic write.
	SaveResult(ctx context.Context, id, transcript string) error

	// MarkFailed marks the recording failed with an error detail.
	MarkFailed(ctx context.Context, id, detail string) error

	// RequeueStale returns recordings stuck in processing longer than
	// olderThan back to pending, and reports how many were requeued.
	// This recovers work orphaned by a worker crash.
	RequeueStale(ctx context.Context, olderThan time.Duration) (int, error)

	// Close releases the underlying storage resources.
	Close() error
}
