package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
)

// Decoded is raw PCM as it came out of a container: interleaved samples,
// original channel count, original sample rate.
type Decoded struct {
	Samples    []int16
	Channels   int
	SampleRate int
}

// Decoder turns a container byte payload into PCM. There is one
// canonical implementation; the interface exists so tests can substitute
// synthetic PCM without shelling out.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*Decoded, error)
}

// FFmpegDecoder decodes any container ffmpeg understands. Plain RIFF/WAV
// payloads are parsed in-process; everything else (notably the browser's
// webm/opus uploads) is transcoded to WAV through an ffmpeg subprocess
// first. Container parsing is deliberately delegated rather than
// hand-rolled.
type FFmpegDecoder struct {
	bin    string
	tmpDir string
}

// NewFFmpegDecoder creates a decoder using the given ffmpeg binary and
// scratch directory. Empty arguments select "ffmpeg" from PATH and the
// system temp directory.
func NewFFmpegDecoder(bin, tmpDir string) *FFmpegDecoder {
	if bin == "" {
		bin = "ffmpeg"
	}
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	return &FFmpegDecoder{bin: bin, tmpDir: tmpDir}
}

func (d *FFmpegDecoder) Decode(ctx context.Context, data []byte) (*Decoded, error) {
	if isRIFF(data) {
		decoded, err := decodeWAVBytes(data)
		if err == nil {
			return decoded, nil
		}
		// RIFF variants go-audio cannot parse still go through ffmpeg.
	}
	wavData, err := d.transcode(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return decodeWAVBytes(wavData)
}

// transcode runs ffmpeg over a scratch file pair and returns the
// resulting WAV bytes. ffmpeg probes the container from content, so the
// input file needs no extension. Channel count and sample rate are kept
// as-is; the normalizer handles both.
func (d *FFmpegDecoder) transcode(ctx context.Context, data []byte) ([]byte, error) {
	in, err := os.CreateTemp(d.tmpDir, "recdec-in-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch input: %w", err)
	}
	defer os.Remove(in.Name())
	if _, err := in.Write(data); err != nil {
		in.Close()
		return nil, fmt.Errorf("write scratch input: %w", err)
	}
	if err := in.Close(); err != nil {
		return nil, fmt.Errorf("close scratch input: %w", err)
	}

	out := filepath.Join(d.tmpDir, filepath.Base(in.Name())+".wav")
	defer os.Remove(out)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.bin,
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", in.Name(),
		"-acodec", "pcm_s16le",
		"-f", "wav",
		out,
	)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("ffmpeg: %s", msg)
	}
	return os.ReadFile(out)
}

// decodeWAVBytes parses a RIFF/WAV payload into interleaved 16-bit PCM.
func decodeWAVBytes(data []byte) (*Decoded, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrDecode)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: read WAV samples: %v", ErrDecode, err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 || buf.Format.SampleRate < 1 {
		return nil, fmt.Errorf("%w: WAV has no usable format", ErrDecode)
	}

	samples, err := toInt16(buf.Data, buf.SourceBitDepth)
	if err != nil {
		return nil, err
	}
	return &Decoded{
		Samples:    samples,
		Channels:   buf.Format.NumChannels,
		SampleRate: buf.Format.SampleRate,
	}, nil
}

// toInt16 coerces decoded integer samples to 16-bit.
func toInt16(data []int, bitDepth int) ([]int16, error) {
	out := make([]int16, len(data))
	switch bitDepth {
	case 16:
		for i, v := range data {
			out[i] = int16(v)
		}
	case 8:
		// WAV 8-bit PCM is unsigned.
		for i, v := range data {
			out[i] = int16((v - 128) << 8)
		}
	case 24:
		for i, v := range data {
			out[i] = int16(v >> 8)
		}
	case 32:
		for i, v := range data {
			out[i] = int16(v >> 16)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrFormat, bitDepth)
	}
	return out, nil
}

func isRIFF(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}
