// Package protocol defines the chat message model and the length-prefixed
// wire codec shared by the coordinator and its clients.
package protocol

// Kind identifies how a chat message is interpreted by the router.
type Kind string

// Message kinds carried on the wire. The first five originate from clients;
// notification, info, and error are generated by the coordinator only.
const (
	KindPrivate      Kind = "private"
	KindGroup        Kind = "group"
	KindCreate       Kind = "create"
	KindJoin         Kind = "join"
	KindQuit         Kind = "quit"
	KindNotification Kind = "notification"
	KindInfo         Kind = "info"
	KindError        Kind = "error"
)

// ServerSender is the sender name stamped on coordinator-generated messages.
const ServerSender = "SERVER"

// Valid reports whether k is one of the enumerated message kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPrivate, KindGroup, KindCreate, KindJoin, KindQuit,
		KindNotification, KindInfo, KindError:
		return true
	}
	return false
}

// Inbound reports whether k may appear on a client-originated message.
func (k Kind) Inbound() bool {
	switch k {
	case KindPrivate, KindGroup, KindCreate, KindJoin, KindQuit:
		return true
	}
	return false
}

// Message is the single unit exchanged between clients and the coordinator.
// The JSON field names are part of the wire contract and must not change.
type Message struct {
	Kind   Kind   `json:"kind"`
	Sender string `json:"sender"`
	Target string `json:"target"`
	Text   string `json:"text"`
}
