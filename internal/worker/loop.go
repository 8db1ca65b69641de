package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/meetnotes/recording-transcriber/internal/audio"
	"github.com/meetnotes/recording-transcriber/internal/metrics"
	"github.com/meetnotes/recording-transcriber/internal/recognition"
	"github.com/meetnotes/recording-transcriber/internal/store"
)

// Default loop timings. PollInterval paces idle and successful cycles,
// ErrorBackoff paces cycles that hit a store failure, and ClaimTimeout
// bounds how long a claim may sit in processing before another worker
// may requeue it.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultErrorBackoff = 10 * time.Second
	DefaultClaimTimeout = 10 * time.Minute
)

// Normalizer converts an uploaded audio payload into a canonical
// waveform. Implemented by audio.Normalizer.
type Normalizer interface {
	Normalize(ctx context.Context, data []byte) (*audio.Waveform, error)
}

// Transcriber produces a transcript from a canonical waveform.
// Implemented by recognition.Transcriber.
type Transcriber interface {
	Transcribe(ctx context.Context, wf *audio.Waveform) (string, error)
}

// Config contains the loop timing parameters.
type Config struct {
	PollInterval time.Duration
	ErrorBackoff time.Duration
	ClaimTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = DefaultErrorBackoff
	}
	if c.ClaimTimeout <= 0 {
		c.ClaimTimeout = DefaultClaimTimeout
	}
	return c
}

// Stats is a point-in-time snapshot of loop counters, served by the
// admin API.
type Stats struct {
	Cycles      uint64 `json:"cycles"`
	Processed   uint64 `json:"processed"`
	Failed      uint64 `json:"failed"`
	Skipped     uint64 `json:"skipped"`
	Requeued    uint64 `json:"requeued"`
	StoreErrors uint64 `json:"store_errors"`
	LastPending int64  `json:"last_pending"`
}

// Loop polls the store for pending recordings and runs each one through
// normalization and recognition. Failures are isolated per recording: a
// bad clip is marked failed and the loop moves on.
type Loop struct {
	store       store.Client
	normalizer  Normalizer
	transcriber Transcriber
	cfg         Config
	logger      *slog.Logger
	metrics     *metrics.Metrics

	cycles      atomic.Uint64
	processed   atomic.Uint64
	failed      atomic.Uint64
	skipped     atomic.Uint64
	requeued    atomic.Uint64
	storeErrors atomic.Uint64
	lastPending atomic.Int64
}

// NewLoop creates a processing loop. Zero durations in cfg fall back to
// the package defaults.
func NewLoop(st store.Client, n Normalizer, t Transcriber, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		store:       st,
		normalizer:  n,
		transcriber: t,
		cfg:         cfg.withDefaults(),
		logger:      logger,
		metrics:     m,
	}
}

// Run executes poll cycles until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("processing loop started",
		slog.Duration("poll_interval", l.cfg.PollInterval),
		slog.Duration("error_backoff", l.cfg.ErrorBackoff),
		slog.Duration("claim_timeout", l.cfg.ClaimTimeout),
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("processing loop stopped")
			return
		case <-timer.C:
		}
		timer.Reset(l.RunOnce(ctx))
	}
}

// RunOnce executes a single poll cycle and returns how long to sleep
// before the next one. Exported so the cycle behavior is testable
// without running the timer loop.
func (l *Loop) RunOnce(ctx context.Context) time.Duration {
	l.cycles.Add(1)

	// Recover claims orphaned by a crashed worker before polling, so
	// requeued recordings are picked up in the same cycle.
	if n, err := l.store.RequeueStale(ctx, l.cfg.ClaimTimeout); err != nil {
		l.storeError("requeue stale claims failed", err)
	} else if n > 0 {
		l.requeued.Add(uint64(n))
		if l.metrics != nil {
			l.metrics.RecordRequeued(n)
		}
		l.logger.Warn("requeued stale claims", slog.Int("count", n))
	}

	pending, err := l.store.ListPending(ctx)
	if err != nil {
		l.storeError("list pending recordings failed", err)
		return l.cfg.ErrorBackoff
	}

	l.lastPending.Store(int64(len(pending)))
	if l.metrics != nil {
		l.metrics.RecordCycle(len(pending))
	}
	if len(pending) == 0 {
		return l.cfg.PollInterval
	}

	l.logger.Info("found pending recordings", slog.Int("count", len(pending)))
	for _, rec := range pending {
		if ctx.Err() != nil {
			// Shutdown mid-batch. Unclaimed items stay pending and any
			// in-flight claim is recovered through the stale timeout.
			return l.cfg.PollInterval
		}
		l.processRecording(ctx, rec.ID)
	}
	return l.cfg.PollInterval
}

// processRecording claims one recording and drives it to completed or
// failed. Losing the claim race is not an error.
func (l *Loop) processRecording(ctx context.Context, id string) {
	logger := l.logger.With(slog.String("recording_id", id))

	rec, err := l.store.Claim(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
			l.skipped.Add(1)
			logger.Debug("recording no longer claimable", slog.String("error", err.Error()))
			return
		}
		l.storeError("claim recording failed", err)
		return
	}

	logger.Info("processing recording", slog.String("meeting_name", rec.MeetingName))
	start := time.Now()

	transcript, audioDuration, err := l.transcribe(ctx, rec)
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			// Interrupted, not broken. Leave the claim for stale requeue
			// so the recording is retried on the next start.
			logger.Info("processing interrupted by shutdown")
			return
		}
		reason := classifyFailure(err)
		l.failed.Add(1)
		if l.metrics != nil {
			l.metrics.RecordFailed(reason, elapsed.Seconds())
		}
		logger.Error("processing failed",
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		detail := fmt.Sprintf("Error processing audio: %v", err)
		if err := l.store.MarkFailed(ctx, id, detail); err != nil {
			l.storeError("mark recording failed", err)
		}
		return
	}

	if err := l.store.SaveResult(ctx, id, transcript); err != nil {
		l.storeError("save transcription failed", err)
		return
	}

	l.processed.Add(1)
	if l.metrics != nil {
		l.metrics.RecordProcessed(elapsed.Seconds(), audioDuration.Seconds(), len(transcript))
	}
	logger.Info("recording completed",
		slog.Duration("audio_duration", audioDuration),
		slog.Duration("processing_time", elapsed),
		slog.Int("transcript_chars", len(transcript)),
	)
}

// transcribe runs the normalize-then-recognize pipeline for one claimed
// recording.
func (l *Loop) transcribe(ctx context.Context, rec *store.Recording) (string, time.Duration, error) {
	wf, err := l.normalizer.Normalize(ctx, []byte(rec.AudioData))
	if err != nil {
		return "", 0, err
	}

	transcript, err := l.transcriber.Transcribe(ctx, wf)
	if err != nil {
		return "", wf.Duration(), err
	}
	return transcript, wf.Duration(), nil
}

func (l *Loop) storeError(msg string, err error) {
	l.storeErrors.Add(1)
	if l.metrics != nil {
		l.metrics.RecordStoreError()
	}
	l.logger.Error(msg, slog.String("error", err.Error()))
}

// GetStats returns a snapshot of the loop counters.
func (l *Loop) GetStats() Stats {
	return Stats{
		Cycles:      l.cycles.Load(),
		Processed:   l.processed.Load(),
		Failed:      l.failed.Load(),
		Skipped:     l.skipped.Load(),
		Requeued:    l.requeued.Load(),
		StoreErrors: l.storeErrors.Load(),
		LastPending: l.lastPending.Load(),
	}
}

// classifyFailure maps pipeline errors to the stable reason labels used
// in metrics and logs.
func classifyFailure(err error) string {
	switch {
	case errors.Is(err, audio.ErrDecode):
		return "decode"
	case errors.Is(err, audio.ErrFormat):
		return "format"
	case errors.Is(err, recognition.ErrEngine):
		return "engine"
	default:
		return "internal"
	}
}
