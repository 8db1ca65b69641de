package recognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meetnotes/recording-transcriber/internal/audio"
	"github.com/meetnotes/recording-transcriber/internal/transcript"
)

// DefaultChunkDuration is the slice of audio fed to the engine per Feed
// call when no duration is configured.
const DefaultChunkDuration = time.Second

// Transcriber drives one recognition session per waveform: the waveform
// is split into fixed-duration chunks, fed strictly in order, and the
// finalized fragments are assembled into the transcript. Partial
// fragments are logged at debug level and discarded.
type Transcriber struct {
	engine        Engine
	chunkDuration time.Duration
	logger        *slog.Logger
}

// NewTranscriber creates a transcriber over engine. A non-positive
// chunkDuration selects DefaultChunkDuration.
func NewTranscriber(engine Engine, chunkDuration time.Duration, logger *slog.Logger) *Transcriber {
	if chunkDuration <= 0 {
		chunkDuration = DefaultChunkDuration
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcriber{
		engine:        engine,
		chunkDuration: chunkDuration,
		logger:        logger,
	}
}

// Transcribe recognizes the waveform and returns the assembled
// transcript. Empty audio yields an empty transcript, not an error. The
// context is checked between chunks so a shutdown does not wait for a
// long recording to finish.
func (t *Transcriber) Transcribe(ctx context.Context, wf *audio.Waveform) (string, error) {
	if wf == nil || len(wf.Samples) == 0 {
		return "", nil
	}

	session, err := t.engine.NewSession(wf.SampleRate)
	if err != nil {
		return "", wrapEngine(err)
	}
	defer session.Close()

	chunkSize := int(float64(wf.SampleRate) * t.chunkDuration.Seconds())
	if chunkSize <= 0 {
		chunkSize = wf.SampleRate
	}

	var fragments []string
	for start := 0; start < len(wf.Samples); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		end := start + chunkSize
		if end > len(wf.Samples) {
			end = len(wf.Samples)
		}

		frag, final, err := session.Feed(wf.Samples[start:end])
		if err != nil {
			return "", wrapEngine(err)
		}
		if final {
			fragments = append(fragments, frag.Text)
		} else if frag.Text != "" {
			t.logger.Debug("partial fragment", slog.String("text", frag.Text))
		}
	}

	// The last finalized fragment covers whatever audio the engine still
	// has buffered. It is appended even if it repeats a trailing partial.
	last, err := session.Flush()
	if err != nil {
		return "", wrapEngine(err)
	}
	fragments = append(fragments, last.Text)

	return transcript.Assemble(fragments), nil
}

func wrapEngine(err error) error {
	if errors.Is(err, ErrEngine) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrEngine, err)
}
