// Package server dispatches inbound chat messages against the registry
// and room directory.
package server

import (
	"errors"
	"fmt"

	"github.com/classchat/relay/internal/protocol"
)

// Route applies one inbound message from c and delivers any replies. The
// whole dispatch runs inside the consistency domain. Every failed request
// produces an error reply to the sender; a recipient lost between lookup
// and delivery is logged and does not fail the triggering request.
//
// The returned flag is true when the session must terminate (quit).
func (h *Hub) Route(c *Client, m protocol.Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch m.Kind {
	case protocol.KindPrivate:
		h.handlePrivate(c, m)
	case protocol.KindGroup:
		h.handleGroup(c, m)
	case protocol.KindCreate:
		h.handleCreateRoom(c, m.Target)
	case protocol.KindJoin:
		h.handleJoinRoom(c, m.Target)
	case protocol.KindQuit:
		return true
	default:
		// notification, info, and error only ever flow coordinator to
		// client; an inbound one is rejected like an unknown kind.
		h.replyError(c, fmt.Sprintf("Messages of kind '%s' cannot be sent by clients.", m.Kind))
	}
	return false
}

// handlePrivate relays a direct message to one registered recipient.
func (h *Hub) handlePrivate(c *Client, m protocol.Message) {
	out := protocol.Message{
		Kind:   protocol.KindPrivate,
		Sender: c.identity,
		Target: m.Target,
		Text:   m.Text,
	}
	err := h.registry.sendTo(m.Target, out)
	switch {
	case errors.Is(err, ErrNotRegistered):
		h.replyError(c, fmt.Sprintf("User '%s' not found.", m.Target))
	case err != nil:
		h.logger.Warn("private delivery failed", "from", c.identity, "to", m.Target, "error", err)
	default:
		h.logger.Debug("private message relayed", "from", c.identity, "to", m.Target)
	}
}

// handleGroup broadcasts to every member of a room the sender belongs to.
// The sender is iterated like any other member, so the broadcast echoes
// back as a delivery confirmation.
func (h *Hub) handleGroup(c *Client, m protocol.Message) {
	members, ok := h.rooms.membersOf(m.Target)
	if !ok {
		h.replyError(c, fmt.Sprintf("Chat room '%s' does not exist.", m.Target))
		return
	}
	if !contains(members, c.identity) {
		h.replyError(c, fmt.Sprintf("You are not a member of '%s'.", m.Target))
		return
	}

	out := protocol.Message{
		Kind:   protocol.KindGroup,
		Sender: c.identity,
		Target: m.Target,
		Text:   m.Text,
	}
	for _, member := range members {
		if err := h.registry.sendTo(member, out); err != nil {
			h.logger.Warn("group delivery failed",
				"room", m.Target, "member", member, "error", err)
		}
	}
	h.logger.Debug("group message relayed", "room", m.Target, "from", c.identity, "members", len(members))
}

// handleCreateRoom creates a room with the sender as sole member.
func (h *Hub) handleCreateRoom(c *Client, name string) {
	if name == "" {
		h.replyError(c, "A room name is required.")
		return
	}
	if err := h.rooms.create(name, c.identity); err != nil {
		h.replyError(c, fmt.Sprintf("Chat room '%s' already exists.", name))
		return
	}
	h.replyInfo(c, fmt.Sprintf("Chat room '%s' created successfully!", name))
	h.logger.Info("room created", "room", name, "creator", c.identity)
}

// handleJoinRoom adds the sender to an existing room and notifies the
// other members.
func (h *Hub) handleJoinRoom(c *Client, name string) {
	if name == "" {
		h.replyError(c, "A room name is required.")
		return
	}

	switch h.rooms.join(name, c.identity) {
	case roomNotFound:
		h.replyError(c, fmt.Sprintf("Chat room '%s' does not exist.", name))

	case alreadyMember:
		h.replyInfo(c, fmt.Sprintf("You are already a member of '%s'.", name))

	case joinedRoom:
		h.replyInfo(c, fmt.Sprintf("You joined '%s'.", name))

		note := protocol.Message{
			Kind:   protocol.KindNotification,
			Sender: protocol.ServerSender,
			Target: name,
			Text:   fmt.Sprintf("%s has joined the room.", c.identity),
		}
		members, _ := h.rooms.membersOf(name)
		for _, member := range members {
			if member == c.identity {
				continue
			}
			if err := h.registry.sendTo(member, note); err != nil {
				h.logger.Warn("join notification dropped",
					"room", name, "member", member, "error", err)
			}
		}
		h.logger.Info("room joined", "room", name, "identity", c.identity)
	}
}

// replyError sends an error-kind message back to the sender. Callers must
// hold the hub mutex.
func (h *Hub) replyError(c *Client, text string) {
	h.deliverLocked(c, protocol.Message{
		Kind:   protocol.KindError,
		Sender: protocol.ServerSender,
		Target: c.identity,
		Text:   text,
	})
}

// replyInfo sends an info-kind message back to the sender. Callers must
// hold the hub mutex.
func (h *Hub) replyInfo(c *Client, text string) {
	h.deliverLocked(c, protocol.Message{
		Kind:   protocol.KindInfo,
		Sender: protocol.ServerSender,
		Target: c.identity,
		Text:   text,
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
