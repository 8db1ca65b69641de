// Package recognition wraps the local speech-recognition engine behind
// a session-per-recording streaming interface and implements the
// chunked transcription protocol on top of it.
package recognition
