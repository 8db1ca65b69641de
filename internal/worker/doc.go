// Package worker implements the background processing loop: it polls
// the store for pending recordings, claims them one at a time, and
// drives each through audio normalization and speech recognition,
// persisting the resulting transcript or failure.
package worker
