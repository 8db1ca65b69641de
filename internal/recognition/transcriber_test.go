package recognition

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/meetnotes/recording-transcriber/internal/audio"
)

// fakeSession scripts finalized fragments by chunk index and records
// every interaction for assertions.
type fakeSession struct {
	finals    map[int]string // chunk index -> finalized text
	flushText string
	feedErr   error

	chunkSizes []int
	flushed    bool
	closed     bool
}

func (s *fakeSession) Feed(chunk []int16) (Fragment, bool, error) {
	idx := len(s.chunkSizes)
	s.chunkSizes = append(s.chunkSizes, len(chunk))
	if s.feedErr != nil {
		return Fragment{}, false, s.feedErr
	}
	if text, ok := s.finals[idx]; ok {
		return Fragment{Text: text}, true, nil
	}
	return Fragment{Text: "guess"}, false, nil
}

func (s *fakeSession) Flush() (Fragment, error) {
	s.flushed = true
	return Fragment{Text: s.flushText}, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeEngine struct {
	session    *fakeSession
	sessionErr error
	rates      []int
}

func (e *fakeEngine) NewSession(sampleRate int) (Session, error) {
	e.rates = append(e.rates, sampleRate)
	if e.sessionErr != nil {
		return nil, e.sessionErr
	}
	return e.session, nil
}

func (e *fakeEngine) Close() error { return nil }

func waveform(seconds float64, rate int) *audio.Waveform {
	return &audio.Waveform{
		Samples:    make([]int16, int(seconds*float64(rate))),
		SampleRate: rate,
	}
}

func TestTranscribeChunksInOrder(t *testing.T) {
	session := &fakeSession{
		finals:    map[int]string{1: "first part", 3: "second part"},
		flushText: "tail",
	}
	engine := &fakeEngine{session: session}
	tr := NewTranscriber(engine, time.Second, nil)

	got, err := tr.Transcribe(context.Background(), waveform(4.5, 16000))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "first part second part tail" {
		t.Errorf("transcript = %q", got)
	}

	// 4.5s at 1s chunks: four full chunks and a half chunk, in order.
	wantSizes := []int{16000, 16000, 16000, 16000, 8000}
	if len(session.chunkSizes) != len(wantSizes) {
		t.Fatalf("fed %d chunks, want %d", len(session.chunkSizes), len(wantSizes))
	}
	for i, want := range wantSizes {
		if session.chunkSizes[i] != want {
			t.Errorf("chunk %d size = %d, want %d", i, session.chunkSizes[i], want)
		}
	}
	if !session.flushed {
		t.Error("session was not flushed after the last chunk")
	}
	if !session.closed {
		t.Error("session was not closed")
	}
	if len(engine.rates) != 1 || engine.rates[0] != 16000 {
		t.Errorf("sessions opened at rates %v, want one at 16000", engine.rates)
	}
}

func TestTranscribeSilenceYieldsEmptyTranscript(t *testing.T) {
	// All chunks partial, empty flush: one second of silence.
	session := &fakeSession{flushText: ""}
	tr := NewTranscriber(&fakeEngine{session: session}, time.Second, nil)

	got, err := tr.Transcribe(context.Background(), waveform(1, 16000))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "" {
		t.Errorf("transcript = %q, want empty", got)
	}
	if !session.closed {
		t.Error("session was not closed")
	}
}

func TestTranscribeEmptyAudio(t *testing.T) {
	engine := &fakeEngine{session: &fakeSession{}}
	tr := NewTranscriber(engine, time.Second, nil)

	got, err := tr.Transcribe(context.Background(), &audio.Waveform{SampleRate: 16000})
	if err != nil {
		t.Fatalf("Transcribe empty audio: %v", err)
	}
	if got != "" {
		t.Errorf("transcript = %q, want empty", got)
	}
	if len(engine.rates) != 0 {
		t.Error("a session was opened for empty audio")
	}
}

func TestTranscribeClosesSessionOnFeedError(t *testing.T) {
	session := &fakeSession{feedErr: fmt.Errorf("decoder blew up")}
	tr := NewTranscriber(&fakeEngine{session: session}, time.Second, nil)

	_, err := tr.Transcribe(context.Background(), waveform(2, 16000))
	if !errors.Is(err, ErrEngine) {
		t.Fatalf("err = %v, want ErrEngine", err)
	}
	if !session.closed {
		t.Error("session leaked after feed error")
	}
}

func TestTranscribeSessionCreationFailure(t *testing.T) {
	engine := &fakeEngine{sessionErr: fmt.Errorf("%w: model gone", ErrEngine)}
	tr := NewTranscriber(engine, time.Second, nil)

	if _, err := tr.Transcribe(context.Background(), waveform(1, 16000)); !errors.Is(err, ErrEngine) {
		t.Errorf("err = %v, want ErrEngine", err)
	}
}

func TestTranscribeHonorsContextBetweenChunks(t *testing.T) {
	session := &fakeSession{}
	tr := NewTranscriber(&fakeEngine{session: session}, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.Transcribe(ctx, waveform(3, 16000))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if !session.closed {
		t.Error("session leaked after cancellation")
	}
}

func TestChunkingStableAcrossChunkSizes(t *testing.T) {
	// Whole-file versus chunked delivery must feed the same total number
	// of samples in non-decreasing order.
	wf := waveform(2.5, 16000)

	for _, dur := range []time.Duration{200 * time.Millisecond, time.Second, 10 * time.Second} {
		session := &fakeSession{}
		tr := NewTranscriber(&fakeEngine{session: session}, dur, nil)
		if _, err := tr.Transcribe(context.Background(), wf); err != nil {
			t.Fatalf("Transcribe(%v): %v", dur, err)
		}
		total := 0
		for _, n := range session.chunkSizes {
			total += n
		}
		if total != len(wf.Samples) {
			t.Errorf("chunk duration %v: fed %d samples, want %d", dur, total, len(wf.Samples))
		}
	}
}
