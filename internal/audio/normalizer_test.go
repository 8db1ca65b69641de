package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"
)

// stubDecoder returns canned PCM, recording what it was asked to decode.
type stubDecoder struct {
	decoded  *Decoded
	err      error
	lastData []byte
	calls    int
}

func (s *stubDecoder) Decode(_ context.Context, data []byte) (*Decoded, error) {
	s.calls++
	s.lastData = data
	if s.err != nil {
		return nil, s.err
	}
	return s.decoded, nil
}

func TestNormalizeDecodesBase64Text(t *testing.T) {
	raw := []byte{0x01, 0x02, 0x03, 0xFF}
	dec := &stubDecoder{decoded: &Decoded{Samples: []int16{1, 2, 3}, Channels: 1, SampleRate: 16000}}
	n := NewNormalizer(dec, 16000, "", nil)

	payload := []byte(base64.StdEncoding.EncodeToString(raw))
	wf, err := n.Normalize(context.Background(), payload)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if string(dec.lastData) != string(raw) {
		t.Errorf("decoder received %v, want base64-decoded %v", dec.lastData, raw)
	}
	if wf.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", wf.SampleRate)
	}
}

func TestNormalizeMalformedBase64IsDecodeError(t *testing.T) {
	dec := &stubDecoder{decoded: &Decoded{Samples: []int16{1}, Channels: 1, SampleRate: 16000}}
	n := NewNormalizer(dec, 16000, "", nil)

	// Valid base64 alphabet but broken padding: must fail in the base64
	// step, before the container decoder sees anything.
	_, err := n.Normalize(context.Background(), []byte("AAAA=B"))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
	if dec.calls != 0 {
		t.Errorf("container decoder was invoked %d times on malformed base64", dec.calls)
	}
}

func TestNormalizeEmptyPayloadIsDecodeError(t *testing.T) {
	n := NewNormalizer(&stubDecoder{}, 16000, "", nil)
	if _, err := n.Normalize(context.Background(), nil); !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestNormalizeRawContainerBytesSkipBase64(t *testing.T) {
	// A RIFF header contains bytes outside the base64 alphabet, so the
	// payload must reach the decoder untouched.
	raw := append([]byte("RIFF\x00\x00\x00\x00WAVE"), 0x80, 0x81)
	dec := &stubDecoder{decoded: &Decoded{Samples: []int16{5}, Channels: 1, SampleRate: 16000}}
	n := NewNormalizer(dec, 16000, "", nil)

	if _, err := n.Normalize(context.Background(), raw); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if string(dec.lastData) != string(raw) {
		t.Error("raw payload was altered before reaching the decoder")
	}
}

func TestNormalizeTakesFirstChannelOnly(t *testing.T) {
	// Channel 0 silent, channel 1 a loud tone: the canonical waveform
	// must be the silence, not an average.
	interleaved := []int16{0, 30000, 0, 30000, 0, 30000, 0, 30000}
	dec := &stubDecoder{decoded: &Decoded{Samples: interleaved, Channels: 2, SampleRate: 16000}}
	n := NewNormalizer(dec, 16000, "", nil)

	wf, err := n.Normalize(context.Background(), []byte(base64.StdEncoding.EncodeToString([]byte("x"))))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(wf.Samples) != 4 {
		t.Fatalf("got %d samples, want 4", len(wf.Samples))
	}
	for i, s := range wf.Samples {
		if s != 0 {
			t.Errorf("sample %d = %d, want 0 (channel 0 is silence)", i, s)
		}
	}
}

func TestNormalizePropagatesDecoderFailure(t *testing.T) {
	dec := &stubDecoder{err: fmt.Errorf("%w: garbage in", ErrDecode)}
	n := NewNormalizer(dec, 16000, "", nil)

	_, err := n.Normalize(context.Background(), []byte(base64.StdEncoding.EncodeToString([]byte("x"))))
	if !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestNormalizeDumpFailureDoesNotFail(t *testing.T) {
	dec := &stubDecoder{decoded: &Decoded{Samples: []int16{1, 2}, Channels: 1, SampleRate: 16000}}
	// Nonexistent dump directory: the write fails, normalization must not.
	n := NewNormalizer(dec, 16000, "/nonexistent/scratch/dir", nil)

	wf, err := n.Normalize(context.Background(), []byte(base64.StdEncoding.EncodeToString([]byte("x"))))
	if err != nil {
		t.Fatalf("Normalize failed because of dump: %v", err)
	}
	if len(wf.Samples) != 2 {
		t.Errorf("got %d samples, want 2", len(wf.Samples))
	}
}

func TestWaveformDuration(t *testing.T) {
	wf := &Waveform{Samples: make([]int16, 16000), SampleRate: 16000}
	if got := wf.Duration(); got != time.Second {
		t.Errorf("Duration = %v, want 1s", got)
	}
	empty := &Waveform{SampleRate: 16000}
	if got := empty.Duration(); got != 0 {
		t.Errorf("empty Duration = %v, want 0", got)
	}
}

func TestIsTextPayload(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"base64 string", []byte("SGVsbG8gd29ybGQ="), true},
		{"base64 with newlines", []byte("SGVs\nbG8=\n"), true},
		{"riff header", []byte("RIFF\x24\x08\x00\x00WAVE"), false},
		{"ogg header", []byte("OggS\x00\x02"), false},
		{"high bytes", []byte{0xDE, 0xAD, 0xBE, 0xEF}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTextPayload(tt.data); got != tt.want {
				t.Errorf("isTextPayload(%q) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}
