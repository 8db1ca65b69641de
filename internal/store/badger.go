package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// keyPrefix namespaces recording documents inside the badger keyspace.
const keyPrefix = "recording/"

// Badger is a Client backed by an embedded BadgerDB instance. Every
// recording is stored as one JSON document; all status transitions run
// inside a single update transaction, so a failed write never leaves a
// half-applied document behind.
type Badger struct {
	db *badger.DB
}

// BadgerOptions configures the badger-backed store.
type BadgerOptions struct {
	// Dir is the directory for the database files. Required unless
	// InMemory is set.
	Dir string

	// InMemory runs the database without disk persistence. Used in tests
	// that want the real storage engine.
	InMemory bool

	// Logger receives badger's own log output. If nil, badger warnings
	// and errors go through slog.Default.
	Logger *slog.Logger
}

// NewBadger opens (creating if necessary) a badger-backed store.
func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("store: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts = dbOpts.WithLogger(slogBadgerLogger{logger})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger at %q: %w", opts.Dir, err)
	}
	return &Badger{db: db}, nil
}

func recordingKey(id string) []byte {
	return []byte(keyPrefix + id)
}

func (b *Badger) Create(_ context.Context, rec *Recording) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Status = StatusPending

	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: encode recording %s: %w", rec.ID, err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordingKey(rec.ID), doc)
	})
	if err != nil {
		return unavailable("create recording", err)
	}
	return nil
}

func (b *Badger) Get(_ context.Context, id string) (*Recording, error) {
	var rec *Recording
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecording(txn, id)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, unavailable("get recording", err)
	}
	return rec, nil
}

func (b *Badger) ListPending(_ context.Context) ([]*Recording, error) {
	var pending []*Recording
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec Recording
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
				}
				if rec.Status == StatusPending {
					pending = append(pending, &rec)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("list pending", err)
	}
	return pending, nil
}

func (b *Badger) Claim(_ context.Context, id string) (*Recording, error) {
	var claimed *Recording
	err := b.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecording(txn, id)
		if err != nil {
			return err
		}
		if rec.Status != StatusPending {
			return fmt.Errorf("%w: status is %q", ErrConflict, rec.Status)
		}
		rec.Status = StatusProcessing
		rec.ClaimedAt = time.Now().UTC()
		if err := putRecording(txn, rec); err != nil {
			return err
		}
		claimed = rec
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, unavailable("claim recording", err)
	}
	return claimed, nil
}

func (b *Badger) SaveResult(_ context.Context, id, transcript string) error {
	return b.mutate("save result", id, func(rec *Recording) {
		rec.Status = StatusCompleted
		rec.Transcription = transcript
		rec.Error = ""
		rec.ClaimedAt = time.Time{}
	})
}

func (b *Badger) MarkFailed(_ context.Context, id, detail string) error {
	return b.mutate("mark failed", id, func(rec *Recording) {
		rec.Status = StatusFailed
		rec.Error = detail
		rec.ClaimedAt = time.Time{}
	})
}

func (b *Badger) RequeueStale(_ context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	requeued := 0
	err := b.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		var stale []*Recording
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec Recording
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
				}
				if rec.Status == StatusProcessing && !rec.ClaimedAt.IsZero() && rec.ClaimedAt.Before(cutoff) {
					stale = append(stale, &rec)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		for _, rec := range stale {
			rec.Status = StatusPending
			rec.ClaimedAt = time.Time{}
			if err := putRecording(txn, rec); err != nil {
				return err
			}
			requeued++
		}
		return nil
	})
	if err != nil {
		return 0, unavailable("requeue stale", err)
	}
	return requeued, nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// mutate applies fn to a recording inside one update transaction.
func (b *Badger) mutate(op, id string, fn func(*Recording)) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecording(txn, id)
		if err != nil {
			return err
		}
		fn(rec)
		return putRecording(txn, rec)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return unavailable(op, err)
	}
	return nil
}

func getRecording(txn *badger.Txn, id string) (*Recording, error) {
	item, err := txn.Get(recordingKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	var rec Recording
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("decode recording %s: %w", id, err)
	}
	return &rec, nil
}

func putRecording(txn *badger.Txn, rec *Recording) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode recording %s: %w", rec.ID, err)
	}
	return txn.Set(recordingKey(rec.ID), doc)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("store: %s: %w: %v", op, ErrUnavailable, err)
}

// slogBadgerLogger adapts slog to badger's logger interface, dropping
// badger's info and debug chatter.
type slogBadgerLogger struct {
	logger *slog.Logger
}

func (l slogBadgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf("badger: "+f, v...))
}

func (l slogBadgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf("badger: "+f, v...))
}

func (l slogBadgerLogger) Infof(string, ...interface{})  {}
func (l slogBadgerLogger) Debugf(string, ...interface{}) {}
