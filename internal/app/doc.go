// Package app provides the application service layer.
//
// Service is the lifecycle engine: the only writer of applications and their event history.
// It validates every request before touching storage, then mutates the record and appends
// the event through the repository's atomic Mutate. Read methods hand one fresh snapshot to
// the projection package. Depends on domain interfaces, not concrete implementations.
package app
