// Package proto implements the server's wire codec: a length-prefixed
// framing layer carrying a self-describing MessagePack payload of shape
// {t: int, d: map}. This implementation uses a 4-byte big-endian length
// prefix so a single CHUNK_DATA payload is never constrained by a 16-bit
// length, unlike the shorter prefix some client implementations use.
package proto

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// MaxFrameSize bounds a single frame's payload length. For a frame claiming
// to be larger, ReadFrame returns ErrFrameTooLarge without reading its
// payload; the frame is not skipped, and the session handler ends the
// session on this error as on any other ReadFrame error.
const MaxFrameSize = 4 << 20 // 4 MiB

// ErrFrameTooLarge is returned by ReadFrame when a length prefix exceeds
// MaxFrameSize.
var ErrFrameTooLarge = errors.New("proto: frame exceeds maximum size")

// Envelope is the self-describing wrapper every message travels in: a type
// code and a type-specific payload map.
type Envelope struct {
	T    Type           `msgpack:"t"`
	D    map[string]any `msgpack:"d"`
}

// ReadFrame reads one length-prefixed frame from r and returns its raw
// payload bytes. Any error reading the length prefix (io.EOF when the
// stream ends cleanly between frames) is returned unchanged; an error
// reading the payload, including a truncated payload, is wrapped so the
// caller can distinguish "stream closed" from "framing error mid-frame".
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("proto: read frame payload: %w", err)
	}
	return payload, nil
}

// WriteFrame writes a length-prefixed frame containing payload to w.
func WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("proto: write frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("proto: write frame payload: %w", err)
	}
	return nil
}

// Encode marshals an Envelope to its wire bytes (without the length
// prefix).
func Encode(e Envelope) ([]byte, error) {
	b, err := msgpack.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("proto: encode envelope: %w", err)
	}
	return b, nil
}

// Decode unmarshals wire bytes (without the length prefix) into an
// Envelope. A decode failure on an otherwise-complete frame is a protocol
// framing error: the caller should skip the frame and keep reading, not
// disconnect.
func Decode(payload []byte) (Envelope, error) {
	var e Envelope
	if err := msgpack.Unmarshal(payload, &e); err != nil {
		return Envelope{}, fmt.Errorf("proto: decode envelope: %w", err)
	}
	return e, nil
}

// EncodeMessage builds and encodes a full frame payload for the given type
// and data struct, round-tripping data through msgpack so D ends up as a
// plain map[string]any (matching what the wire actually carries).
func EncodeMessage(t Type, data any) ([]byte, error) {
	raw, err := msgpack.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("proto: encode message body: %w", err)
	}
	var d map[string]any
	if err := msgpack.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("proto: normalise message body: %w", err)
	}
	return Encode(Envelope{T: t, D: d})
}

// DecodeInto decodes an Envelope's D map into dst, a pointer to a typed
// message struct. Unknown keys in D are ignored, and fields absent from D
// keep dst's existing (usually zero) value — this is what makes the
// on-disk and on-wire schemas forward-readable.
func DecodeInto(e Envelope, dst any) error {
	raw, err := msgpack.Marshal(e.D)
	if err != nil {
		return fmt.Errorf("proto: remarshal envelope body: %w", err)
	}
	if err := msgpack.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("proto: decode message body: %w", err)
	}
	return nil
}
