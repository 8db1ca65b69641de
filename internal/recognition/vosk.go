package recognition

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"

	vosk "github.com/alphacep/vosk-api/go"
)

// VoskEngine is the Engine implementation backed by a local Vosk/Kaldi
// model. Loading the model is expensive and happens once; recognizer
// sessions are cheap and created per recording.
type VoskEngine struct {
	model  *vosk.VoskModel
	logger *slog.Logger
}

// NewVoskEngine loads the Vosk model from modelPath.
func NewVoskEngine(modelPath string, logger *slog.Logger) (*VoskEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("loading speech model", slog.String("model_path", modelPath))
	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: load model from %q: %v", ErrEngine, modelPath, err)
	}
	logger.Info("speech model loaded")
	return &VoskEngine{model: model, logger: logger}, nil
}

func (e *VoskEngine) NewSession(sampleRate int) (Session, error) {
	rec, err := vosk.NewRecognizer(e.model, float64(sampleRate))
	if err != nil {
		return nil, fmt.Errorf("%w: create recognizer at %d Hz: %v", ErrEngine, sampleRate, err)
	}
	rec.SetWords(1)
	return &voskSession{rec: rec}, nil
}

func (e *VoskEngine) Close() error {
	e.model.Free()
	return nil
}

type voskSession struct {
	rec *vosk.VoskRecognizer
}

func (s *voskSession) Feed(chunk []int16) (Fragment, bool, error) {
	if s.rec.AcceptWaveform(pcmBytes(chunk)) != 0 {
		frag, err := parseResult([]byte(s.rec.Result()))
		return frag, true, err
	}
	frag, err := parsePartial([]byte(s.rec.PartialResult()))
	return frag, false, err
}

func (s *voskSession) Flush() (Fragment, error) {
	return parseResult([]byte(s.rec.FinalResult()))
}

func (s *voskSession) Close() error {
	s.rec.Free()
	return nil
}

// pcmBytes converts samples to the little-endian byte stream the engine
// consumes.
func pcmBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// voskResult is the engine's JSON for a finalized result.
type voskResult struct {
	Text   string `json:"text"`
	Result []Word `json:"result"`
}

// voskPartial is the engine's JSON for a provisional result.
type voskPartial struct {
	Partial string `json:"partial"`
}

func parseResult(data []byte) (Fragment, error) {
	var res voskResult
	if err := json.Unmarshal(data, &res); err != nil {
		return Fragment{}, fmt.Errorf("%w: parse result %q: %v", ErrEngine, data, err)
	}
	return Fragment{Text: res.Text, Words: res.Result}, nil
}

func parsePartial(data []byte) (Fragment, error) {
	var res voskPartial
	if err := json.Unmarshal(data, &res); err != nil {
		return Fragment{}, fmt.Errorf("%w: parse partial result %q: %v", ErrEngine, data, err)
	}
	return Fragment{Text: res.Partial}, nil
}
