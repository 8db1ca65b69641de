// Package server implements the HTTP API for monitoring the
// transcription worker: health, statistics, configuration and
// Prometheus metrics endpoints.
package server
