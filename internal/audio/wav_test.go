package audio

import (
	"math"
	"testing"
)

func TestEncodeWAVRoundTrip(t *testing.T) {
	// 100ms of a 440 Hz tone at 16 kHz.
	samples := make([]int16, 1600)
	for i := range samples {
		samples[i] = int16(10000 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}

	data, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	if len(data) != 44+len(samples)*2 {
		t.Errorf("encoded size = %d, want %d", len(data), 44+len(samples)*2)
	}
	if !isRIFF(data) {
		t.Fatal("encoded data is not a RIFF/WAVE payload")
	}

	decoded, err := decodeWAVBytes(data)
	if err != nil {
		t.Fatalf("decodeWAVBytes: %v", err)
	}
	if decoded.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", decoded.SampleRate)
	}
	if decoded.Channels != 1 {
		t.Errorf("channels = %d, want 1", decoded.Channels)
	}
	if len(decoded.Samples) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(decoded.Samples), len(samples))
	}
	for i := range samples {
		if decoded.Samples[i] != samples[i] {
			t.Fatalf("sample %d = %d, want %d", i, decoded.Samples[i], samples[i])
		}
	}
}

func TestEncodeWAVRejectsBadInput(t *testing.T) {
	if _, err := EncodeWAV(nil, 16000); err == nil {
		t.Error("EncodeWAV accepted empty samples")
	}
	if _, err := EncodeWAV([]int16{1}, 0); err == nil {
		t.Error("EncodeWAV accepted zero sample rate")
	}
}

func TestDecodeWAVBytesRejectsGarbage(t *testing.T) {
	if _, err := decodeWAVBytes([]byte("definitely not audio")); err == nil {
		t.Error("decodeWAVBytes accepted garbage")
	}
}

func TestResamplePassthrough(t *testing.T) {
	samples := []int16{1, 2, 3, 4}
	out, err := Resample(samples, 16000, 16000)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if len(out) != len(samples) {
		t.Fatalf("passthrough changed length: %d", len(out))
	}
	for i := range samples {
		if out[i] != samples[i] {
			t.Errorf("sample %d = %d, want %d", i, out[i], samples[i])
		}
	}
}

func TestResampleRejectsBadRates(t *testing.T) {
	if _, err := Resample([]int16{1}, 0, 16000); err == nil {
		t.Error("Resample accepted zero source rate")
	}
	if _, err := Resample([]int16{1}, 16000, -1); err == nil {
		t.Error("Resample accepted negative target rate")
	}
}
