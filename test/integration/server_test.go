// Package integration contains end-to-end tests that drive the ClassChat
// coordinator over real TCP connections, covering registration, rooms,
// routing, and disconnect cleanup.
package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classchat/relay/internal/protocol"
	"github.com/classchat/relay/test/testhelpers"
)

// TestRegisterAndWelcome verifies the identity handshake over a live
// connection.
func TestRegisterAndWelcome(t *testing.T) {
	hub, addr := testhelpers.StartCoordinator(t)

	alice := testhelpers.Dial(t, addr)
	welcome := alice.Handshake("Alice")

	assert.Equal(t, protocol.KindInfo, welcome.Kind)
	assert.Equal(t, protocol.ServerSender, welcome.Sender)
	assert.Equal(t, "Welcome to ClassChat, Alice!", welcome.Text)
	assert.True(t, hub.IsRegistered("Alice"))
}

// TestCreateRoom verifies a created room exists with its creator as the
// sole member.
func TestCreateRoom(t *testing.T) {
	hub, addr := testhelpers.StartCoordinator(t)
	alice := testhelpers.Join(t, addr, "Alice")

	alice.Send(protocol.Message{Kind: protocol.KindCreate, Target: "cs101"})
	reply := alice.Recv()
	assert.Equal(t, protocol.KindInfo, reply.Kind)
	assert.Equal(t, "Chat room 'cs101' created successfully!", reply.Text)

	members, ok := hub.RoomMembers("cs101")
	require.True(t, ok)
	assert.Equal(t, []string{"Alice"}, members)
}

// TestJoinRoomNotifiesMembers verifies the joiner gets an info reply and
// existing members get a notification.
func TestJoinRoomNotifiesMembers(t *testing.T) {
	hub, addr := testhelpers.StartCoordinator(t)
	alice := testhelpers.Join(t, addr, "Alice")
	bob := testhelpers.Join(t, addr, "Bob")

	alice.Send(protocol.Message{Kind: protocol.KindCreate, Target: "cs101"})
	alice.Recv()

	bob.Send(protocol.Message{Kind: protocol.KindJoin, Target: "cs101"})
	reply := bob.Recv()
	assert.Equal(t, protocol.KindInfo, reply.Kind)
	assert.Equal(t, "You joined 'cs101'.", reply.Text)

	note := alice.Recv()
	assert.Equal(t, protocol.KindNotification, note.Kind)
	assert.Equal(t, "cs101", note.Target)
	assert.Equal(t, "Bob has joined the room.", note.Text)

	members, ok := hub.RoomMembers("cs101")
	require.True(t, ok)
	assert.Equal(t, []string{"Alice", "Bob"}, members)
}

// TestGroupMessageEchoesToSender verifies a room broadcast reaches every
// member, the sender included.
func TestGroupMessageEchoesToSender(t *testing.T) {
	_, addr := testhelpers.StartCoordinator(t)
	alice := testhelpers.Join(t, addr, "Alice")
	bob := testhelpers.Join(t, addr, "Bob")

	alice.Send(protocol.Message{Kind: protocol.KindCreate, Target: "cs101"})
	alice.Recv()
	bob.Send(protocol.Message{Kind: protocol.KindJoin, Target: "cs101"})
	bob.Recv()
	alice.Recv()

	alice.Send(protocol.Message{Kind: protocol.KindGroup, Target: "cs101", Text: "hi"})

	want := protocol.Message{Kind: protocol.KindGroup, Sender: "Alice", Target: "cs101", Text: "hi"}
	assert.Equal(t, want, alice.Recv())
	assert.Equal(t, want, bob.Recv())
}

// TestPrivateMessage verifies direct delivery and the not-found error for
// an absent recipient.
func TestPrivateMessage(t *testing.T) {
	_, addr := testhelpers.StartCoordinator(t)
	carol := testhelpers.Join(t, addr, "Carol")
	bob := testhelpers.Join(t, addr, "Bob")

	carol.Send(protocol.Message{Kind: protocol.KindPrivate, Target: "Bob", Text: "hello"})
	got := bob.Recv()
	assert.Equal(t, protocol.KindPrivate, got.Kind)
	assert.Equal(t, "Carol", got.Sender)
	assert.Equal(t, "hello", got.Text)

	carol.Send(protocol.Message{Kind: protocol.KindPrivate, Target: "Dave", Text: "hello"})
	reply := carol.Recv()
	assert.Equal(t, protocol.KindError, reply.Kind)
	assert.Equal(t, "User 'Dave' not found.", reply.Text)
}

// TestAbruptDisconnect verifies a stream closed without quit still
// notifies room members and releases the identity.
func TestAbruptDisconnect(t *testing.T) {
	hub, addr := testhelpers.StartCoordinator(t)
	alice := testhelpers.Join(t, addr, "Alice")
	bob := testhelpers.Join(t, addr, "Bob")

	alice.Send(protocol.Message{Kind: protocol.KindCreate, Target: "cs101"})
	alice.Recv()
	bob.Send(protocol.Message{Kind: protocol.KindJoin, Target: "cs101"})
	bob.Recv()
	alice.Recv()

	bob.Close()

	note := alice.Recv()
	assert.Equal(t, protocol.KindNotification, note.Kind)
	assert.Equal(t, "Bob has left the room.", note.Text)

	require.Eventually(t, func() bool {
		return !hub.IsRegistered("Bob")
	}, 2*time.Second, 10*time.Millisecond)

	members, ok := hub.RoomMembers("cs101")
	require.True(t, ok)
	assert.Equal(t, []string{"Alice"}, members)
}

// TestQuitLeavesRooms verifies the quit path runs the same cleanup as an
// abrupt disconnect, exactly once.
func TestQuitLeavesRooms(t *testing.T) {
	hub, addr := testhelpers.StartCoordinator(t)
	alice := testhelpers.Join(t, addr, "Alice")
	bob := testhelpers.Join(t, addr, "Bob")

	alice.Send(protocol.Message{Kind: protocol.KindCreate, Target: "cs101"})
	alice.Recv()
	bob.Send(protocol.Message{Kind: protocol.KindJoin, Target: "cs101"})
	bob.Recv()
	alice.Recv()

	bob.Send(protocol.Message{Kind: protocol.KindQuit})

	note := alice.Recv()
	assert.Equal(t, protocol.KindNotification, note.Kind)
	assert.Equal(t, "Bob has left the room.", note.Text)

	_, err := bob.TryRecv()
	assert.Error(t, err)

	require.Eventually(t, func() bool {
		return !hub.IsRegistered("Bob")
	}, 2*time.Second, 10*time.Millisecond)
}

// TestDuplicateIdentityRejected verifies the second claim on a name is
// turned away while the original session keeps working.
func TestDuplicateIdentityRejected(t *testing.T) {
	hub, addr := testhelpers.StartCoordinator(t)
	alice := testhelpers.Join(t, addr, "Alice")

	impostor := testhelpers.Dial(t, addr)
	reply := impostor.Handshake("Alice")
	assert.Equal(t, protocol.KindError, reply.Kind)
	assert.Equal(t, "Username already taken. Please disconnect and try again.", reply.Text)

	_, err := impostor.TryRecv()
	assert.Error(t, err)

	assert.True(t, hub.IsRegistered("Alice"))
	alice.Send(protocol.Message{Kind: protocol.KindCreate, Target: "cs101"})
	stillWorking := alice.Recv()
	assert.Equal(t, protocol.KindInfo, stillWorking.Kind)
}

// TestMalformedFrameIsNonFatal verifies an undecodable payload is dropped
// without ending the session.
func TestMalformedFrameIsNonFatal(t *testing.T) {
	_, addr := testhelpers.StartCoordinator(t)
	alice := testhelpers.Join(t, addr, "Alice")

	alice.SendRawFrame([]byte("{{{{ not json"))

	alice.Send(protocol.Message{Kind: protocol.KindCreate, Target: "cs101"})
	reply := alice.Recv()
	assert.Equal(t, protocol.KindInfo, reply.Kind)
}

// TestOversizedFrameIsNonFatal verifies a frame above the payload cap is
// drained and rejected while the stream stays usable.
func TestOversizedFrameIsNonFatal(t *testing.T) {
	_, addr := testhelpers.StartCoordinator(t)
	alice := testhelpers.Join(t, addr, "Alice")

	alice.SendRawFrame(make([]byte, 64*1024+1))

	alice.Send(protocol.Message{Kind: protocol.KindCreate, Target: "cs101"})
	reply := alice.Recv()
	assert.Equal(t, protocol.KindInfo, reply.Kind)
	assert.Equal(t, "Chat room 'cs101' created successfully!", reply.Text)
}
