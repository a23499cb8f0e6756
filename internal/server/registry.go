// Package server tracks live participant identities and their outbound
// sinks via the registry type.
package server

import (
	"errors"
	"fmt"

	"github.com/classchat/relay/internal/protocol"
)

var (
	// ErrIdentityTaken is returned when a registration names an identity
	// that already belongs to a live session.
	ErrIdentityTaken = errors.New("identity already taken")

	// ErrNotRegistered is returned when a delivery targets an identity
	// with no live session.
	ErrNotRegistered = errors.New("identity not registered")

	// ErrSendFailed is returned when a recipient's outbound buffer is
	// full or already closed.
	ErrSendFailed = errors.New("send buffer unavailable")
)

// registry maps live participant identities to their sessions. It performs
// no locking of its own: every method runs under the hub mutex, which keeps
// the registry and the room directory in a single consistency domain.
type registry struct {
	sessions map[string]*Client
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*Client)}
}

// register inserts identity as the sole admission gate for chat
// participation. It fails without side effects when the identity is taken.
func (r *registry) register(identity string, c *Client) error {
	if _, exists := r.sessions[identity]; exists {
		return fmt.Errorf("%w: %s", ErrIdentityTaken, identity)
	}
	r.sessions[identity] = c
	return nil
}

// lookup resolves an identity to its session.
func (r *registry) lookup(identity string) (*Client, bool) {
	c, ok := r.sessions[identity]
	return c, ok
}

// unregister removes the entry for identity. It is a no-op when absent.
func (r *registry) unregister(identity string) {
	delete(r.sessions, identity)
}

// sendTo resolves identity and enqueues m on its session's outbound
// buffer. Delivery is best-effort and never blocks: a full or closed
// buffer fails with ErrSendFailed and is not retried.
func (r *registry) sendTo(identity string, m protocol.Message) error {
	c, ok := r.sessions[identity]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, identity)
	}
	if !c.enqueue(m) {
		return fmt.Errorf("%w: %s", ErrSendFailed, identity)
	}
	return nil
}

// count reports the number of live registrations.
func (r *registry) count() int {
	return len(r.sessions)
}
