package audio

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts mono 16-bit PCM from srcRate to dstRate. The input
// slice is returned unchanged when the rates already match.
func Resample(samples []int16, srcRate, dstRate int) ([]int16, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates %d -> %d", srcRate, dstRate)
	}
	if srcRate == dstRate || len(samples) == 0 {
		return samples, nil
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("create resampler: %w", err)
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s) / 32768.0
	}

	output, err := rs.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}

	out := make([]int16, len(output))
	for i, s := range output {
		switch {
		case s > 1.0:
			out[i] = 32767
		case s < -1.0:
			out[i] = -32768
		default:
			out[i] = int16(s * 32767.0)
		}
	}
	return out, nil
}
