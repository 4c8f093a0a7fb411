// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (status.go, application.go, event.go, errors.go)
// with shared types and the repository contracts the lifecycle engine writes through.
// No storage or transport code - just contracts and value rules.
package domain
