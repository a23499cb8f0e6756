// Package server manages named chat rooms and their membership via the
// directory type.
package server

import (
	"errors"
	"fmt"
)

// ErrRoomExists is returned when a create request names an existing room.
var ErrRoomExists = errors.New("room already exists")

// joinResult is the outcome of a join request.
type joinResult int

const (
	joinedRoom joinResult = iota
	alreadyMember
	roomNotFound
)

// departure reports a room a participant left and the members remaining in
// it, so the caller can deliver notifications without the directory ever
// reaching into the registry.
type departure struct {
	room      string
	remaining []string
}

// room holds a membership set in insertion order. Members are referenced
// by identity only; the directory never owns a session.
type room struct {
	name    string
	members []string
}

func (rm *room) contains(identity string) bool {
	for _, m := range rm.members {
		if m == identity {
			return true
		}
	}
	return false
}

func (rm *room) remove(identity string) {
	for i, m := range rm.members {
		if m == identity {
			rm.members = append(rm.members[:i], rm.members[i+1:]...)
			return
		}
	}
}

// directory maps room names to membership sets. It is a pure state machine
// over room membership: it performs no I/O and no locking of its own, and
// runs under the same hub mutex as the registry.
type directory struct {
	rooms map[string]*room
}

func newDirectory() *directory {
	return &directory{rooms: make(map[string]*room)}
}

// create makes a new room with creator as its sole member. It fails when
// the room already exists.
func (d *directory) create(name, creator string) error {
	if _, exists := d.rooms[name]; exists {
		return fmt.Errorf("%w: %s", ErrRoomExists, name)
	}
	d.rooms[name] = &room{name: name, members: []string{creator}}
	return nil
}

// join adds identity to an existing room. Joining a room twice is not an
// error but a distinct informational outcome with no membership change.
func (d *directory) join(name, identity string) joinResult {
	rm, exists := d.rooms[name]
	if !exists {
		return roomNotFound
	}
	if rm.contains(identity) {
		return alreadyMember
	}
	rm.members = append(rm.members, identity)
	return joinedRoom
}

// leave removes identity from every room it belongs to, reaping rooms left
// empty. It returns one departure per affected room with the members that
// remain and must be notified.
func (d *directory) leave(identity string) []departure {
	var departures []departure
	for name, rm := range d.rooms {
		if !rm.contains(identity) {
			continue
		}
		rm.remove(identity)
		if len(rm.members) == 0 {
			delete(d.rooms, name)
			departures = append(departures, departure{room: name})
			continue
		}
		departures = append(departures, departure{
			room:      name,
			remaining: append([]string(nil), rm.members...),
		})
	}
	return departures
}

// membersOf returns a copy of a room's membership in insertion order.
func (d *directory) membersOf(name string) ([]string, bool) {
	rm, exists := d.rooms[name]
	if !exists {
		return nil, false
	}
	return append([]string(nil), rm.members...), true
}

// count reports the number of existing rooms.
func (d *directory) count() int {
	return len(d.rooms)
}
