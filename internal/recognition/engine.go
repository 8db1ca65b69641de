package recognition

import "errors"

// ErrEngine wraps any fault of the underlying recognition engine. It is
// unrecoverable for the recording being processed; the loop logs it and
// moves on.
var ErrEngine = errors.New("recognition: engine failure")

// Word is a recognized word with timing information, when the engine
// provides it.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Conf  float64 `json:"conf"`
}

// Fragment is one piece of recognized text. Finalized fragments cover
// audio the engine has fully consumed and will not revise; partial
// fragments are provisional guesses and are diagnostic only.
type Fragment struct {
	Text  string
	Words []Word
}

// Session is one stateful recognition stream. Chunks must be fed
// strictly in order; the engine accumulates context across Feed calls.
// A session serves exactly one recording and must be closed on every
// exit path.
type Session interface {
	// Feed consumes one PCM chunk. When the engine commits text for the
	// audio consumed so far, it returns the fragment with final=true;
	// otherwise the fragment carries the current partial guess.
	Feed(chunk []int16) (frag Fragment, final bool, err error)

	// Flush finalizes any remaining buffered audio and returns the last
	// fragment.
	Flush() (Fragment, error)

	// Close releases the engine-side session resources.
	Close() error
}

// Engine creates recognition sessions against a model loaded once at
// startup. The model is read-only after loading and safe to share
// across sessions.
type Engine interface {
	NewSession(sampleRate int) (Session, error)
	Close() error
}
