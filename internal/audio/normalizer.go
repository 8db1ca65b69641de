package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sentinel errors returned by the normalizer. Both are unrecoverable for
// the recording that produced them.
var (
	// ErrDecode means the payload could not be parsed as any supported
	// audio container (including malformed base64 text).
	ErrDecode = errors.New("audio: undecodable audio payload")

	// ErrFormat means the audio decoded fine but cannot be coerced to
	// mono 16-bit PCM at the target rate.
	ErrFormat = errors.New("audio: unsupported audio format")
)

// Waveform is canonical mono 16-bit PCM at a single sample rate, the
// only representation the recognition engine accepts. It is owned by the
// pipeline invocation that produced it and discarded after recognition.
type Waveform struct {
	Samples    []int16
	SampleRate int
}

// Duration returns the playback duration of the waveform.
func (w *Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(w.Samples)) * time.Second / time.Duration(w.SampleRate)
}

// Normalizer converts arbitrary uploaded audio payloads into canonical
// waveforms: base64 text is decoded to bytes, the container is decoded
// to PCM, multi-channel audio is reduced to channel 0, and the result is
// resampled to the target rate.
type Normalizer struct {
	decoder    Decoder
	targetRate int
	dumpDir    string
	logger     *slog.Logger
}

// NewNormalizer creates a normalizer producing waveforms at targetRate.
// If dumpDir is non-empty, each normalized waveform is also written
// there as a WAV file for diagnostic replay; dump failures are logged
// and never fail normalization.
func NewNormalizer(decoder Decoder, targetRate int, dumpDir string, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		decoder:    decoder,
		targetRate: targetRate,
		dumpDir:    dumpDir,
		logger:     logger,
	}
}

// Normalize converts data, which is either raw container bytes or their
// base64 text encoding, into a canonical waveform.
func (n *Normalizer) Normalize(ctx context.Context, data []byte) (*Waveform, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	payload := data
	if isTextPayload(data) {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64 payload: %v", ErrDecode, err)
		}
		payload = decoded
	}

	decoded, err := n.decoder.Decode(ctx, payload)
	if err != nil {
		if errors.Is(err, ErrDecode) || errors.Is(err, ErrFormat) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	// First channel only for multi-channel input. Deliberately not a
	// true downmix: channel 0 is what the source system transcribed.
	mono := firstChannel(decoded)

	if decoded.SampleRate != n.targetRate {
		mono, err = Resample(mono, decoded.SampleRate, n.targetRate)
		if err != nil {
			return nil, fmt.Errorf("%w: resample %d Hz to %d Hz: %v", ErrFormat, decoded.SampleRate, n.targetRate, err)
		}
	}

	wf := &Waveform{Samples: mono, SampleRate: n.targetRate}
	n.dump(wf)
	return wf, nil
}

// dump writes the normalized waveform for diagnostic replay. Log-only on
// failure: a broken scratch disk must never block the pipeline.
func (n *Normalizer) dump(wf *Waveform) {
	if n.dumpDir == "" || len(wf.Samples) == 0 {
		return
	}
	data, err := EncodeWAV(wf.Samples, wf.SampleRate)
	if err != nil {
		n.logger.Warn("encode debug WAV failed", slog.String("error", err.Error()))
		return
	}
	path := filepath.Join(n.dumpDir, "debug.wav")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		n.logger.Warn("write debug WAV failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return
	}
	n.logger.Debug("wrote debug WAV",
		slog.String("path", path),
		slog.Duration("duration", wf.Duration()),
	)
}

// firstChannel extracts channel 0 from interleaved samples.
func firstChannel(d *Decoded) []int16 {
	if d.Channels <= 1 {
		return d.Samples
	}
	mono := make([]int16, 0, len(d.Samples)/d.Channels)
	for i := 0; i < len(d.Samples); i += d.Channels {
		mono = append(mono, d.Samples[i])
	}
	return mono
}

// isTextPayload reports whether data looks like base64 text rather than
// raw container bytes. Any byte outside the standard base64 alphabet
// (plus padding and whitespace) rules text out.
func isTextPayload(data []byte) bool {
	for _, b := range data {
		switch {
		case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		case b == '+' || b == '/' || b == '=':
		case b == '\n' || b == '\r' || b == ' ' || b == '\t':
		default:
			return false
		}
	}
	return true
}
