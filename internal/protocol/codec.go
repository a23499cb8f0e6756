// Package protocol implements the length-prefixed frame codec. The
// transport is a byte stream with no message boundaries of its own, so
// every payload travels as [4-byte big-endian length][UTF-8 JSON].
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxPayload bounds the size of a single frame payload in bytes.
const DefaultMaxPayload = 64 * 1024

// headerSize is the fixed width of the length prefix.
const headerSize = 4

var (
	// ErrMalformedFrame indicates a payload that cannot be parsed into the
	// expected message shape.
	ErrMalformedFrame = errors.New("malformed frame payload")

	// ErrUnknownKind indicates a message whose kind is not one of the
	// enumerated values.
	ErrUnknownKind = errors.New("unknown message kind")

	// ErrFrameTooLarge indicates a frame whose payload exceeds the
	// configured maximum.
	ErrFrameTooLarge = errors.New("frame exceeds maximum payload size")
)

// Encode serializes m into a frame payload, rejecting unknown kinds.
func Encode(m Message) ([]byte, error) {
	if !m.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return payload, nil
}

// Decode parses a frame payload into a Message. Payloads that do not parse
// fail with ErrMalformedFrame; parsed messages with a kind outside the
// enumeration fail with ErrUnknownKind.
func Decode(payload []byte) (Message, error) {
	if len(payload) == 0 {
		return Message{}, ErrMalformedFrame
	}
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if !m.Kind.Valid() {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
	}
	return m, nil
}

// WriteFrame writes one length-prefixed frame carrying payload. The header
// and payload go out in a single Write so concurrent writers on distinct
// frames never interleave partial headers.
func WriteFrame(w io.Writer, payload []byte, maxPayload int) error {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	if len(payload) > maxPayload {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	buf := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(buf[:headerSize], uint32(len(payload)))
	copy(buf[headerSize:], payload)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame and returns its payload. Reads
// use io.ReadFull, so split or coalesced TCP segments reassemble correctly.
// An oversized frame is drained from the stream before ErrFrameTooLarge is
// returned, keeping the stream aligned on the next frame boundary.
func ReadFrame(r io.Reader, maxPayload int) ([]byte, error) {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > uint32(maxPayload) {
		if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
			return nil, fmt.Errorf("discard oversized frame: %w", err)
		}
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		// A stream that dies mid-frame is a truncation, not a clean close.
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}

// WriteMessage encodes m and writes it as one frame.
func WriteMessage(w io.Writer, m Message, maxPayload int) error {
	payload, err := Encode(m)
	if err != nil {
		return err
	}
	return WriteFrame(w, payload, maxPayload)
}

// ReadMessage reads one frame and decodes its payload.
func ReadMessage(r io.Reader, maxPayload int) (Message, error) {
	payload, err := ReadFrame(r, maxPayload)
	if err != nil {
		return Message{}, err
	}
	return Decode(payload)
}
