// Package audio normalizes uploaded meeting recordings into canonical
// mono 16-bit PCM for the recognition engine. It handles base64 text
// payloads, container decoding (in-process for WAV, via ffmpeg for
// compressed uploads), channel reduction, and resampling.
package audio
