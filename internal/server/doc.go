// Package server implements the ClassChat coordinator.
//
// The implementation is organized into specialized files for configuration,
// the identity registry, the room directory, message routing, per-connection
// sessions, and the framed-TCP and WebSocket transports to keep the codebase
// maintainable and testable as the project grows.
package server
