// Package store persists meeting recordings and their lifecycle state.
// It defines the Recording document shared with the web collaborator and
// a Client interface with an atomic pending→processing claim, backed by
// an embedded BadgerDB store for production and an in-memory store for
// testing.
package store
