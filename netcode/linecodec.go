// Package netcode implements the wire transport: a newline-delimited JSON
// line codec layered over a duplex connection that may be transparently
// zlib-compressed mid-stream. Grounded on rlp's small-codec-wrapping-a-
// transport convention (buffered incremental decode), generalized from
// RLP's binary framing to this protocol's line-oriented JSON framing.
package netcode

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// MaxLineBytes bounds how many bytes may accumulate without a newline
// before a message is rejected as "improbably long".
const MaxLineBytes = 10_000

var (
	// ErrLineTooLong is returned when more than MaxLineBytes accumulate
	// without a terminating newline.
	ErrLineTooLong = errors.New("netcode: improbably long message")
	// ErrNotUTF8 is returned when a line is not valid UTF-8.
	ErrNotUTF8 = errors.New("netcode: message is not valid UTF-8")
	// ErrNotObject is returned when a decoded JSON value is not an object.
	ErrNotObject = errors.New("netcode: message is not a JSON object")
)

// LineCodec reads and writes newline-terminated JSON objects over a
// DuplexConn. It has no notion of message schema — callers decode the
// returned bytes/map with their own structs.
type LineCodec struct {
	conn DuplexConn
	r    *bufio.Reader
}

// NewLineCodec wraps conn for line-oriented JSON framing.
func NewLineCodec(conn DuplexConn) *LineCodec {
	return &LineCodec{conn: conn, r: bufio.NewReaderSize(conn, MaxLineBytes+1)}
}

// ReadMessage reads the next newline-terminated JSON object, skipping any
// leading blank lines between messages. The returned bytes are the raw
// JSON object payload (without the trailing newline); callers typically
// json.Unmarshal it into a tagged envelope.
func (c *LineCodec) ReadMessage() (json.RawMessage, error) {
	for {
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			continue // skip blank lines between messages
		}
		if !utf8.Valid(line) {
			return nil, ErrNotUTF8
		}
		var v json.RawMessage
		if err := json.Unmarshal(line, &v); err != nil {
			return nil, fmt.Errorf("netcode: invalid JSON: %w", err)
		}
		if !looksLikeObject(line) {
			return nil, ErrNotObject
		}
		return v, nil
	}
}

func looksLikeObject(line []byte) bool {
	for _, b := range line {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}

func (c *LineCodec) readLine() ([]byte, error) {
	// ReadSlice (not ReadBytes) is used deliberately: our reader's buffer
	// is sized to MaxLineBytes+1, so ReadSlice reports bufio.ErrBufferFull
	// exactly when a message accumulates without a newline past that
	// bound, giving us the "improbably long message" cap for free.
	raw, err := c.r.ReadSlice('\n')
	if err != nil {
		if errors.Is(err, bufio.ErrBufferFull) {
			return nil, ErrLineTooLong
		}
		return nil, err
	}
	line := append([]byte(nil), raw[:len(raw)-1]...)
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, nil
}

// WriteMessage serializes v to compact JSON and appends a single '\n'.
func (c *LineCodec) WriteMessage(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = c.conn.Write(data)
	return err
}

// Flush flushes any buffered outbound bytes to the underlying transport
// (a zlib Sync flush when compressed, a no-op passthrough otherwise).
func (c *LineCodec) Flush() error {
	return c.conn.Flush()
}

// BufferedBytes returns (and does not consume) any bytes the codec has
// already read past the last complete message — the bytes a mid-stream
// compression switch must hand to the decompressor as its first input.
func (c *LineCodec) BufferedBytes() []byte {
	b, _ := c.r.Peek(c.r.Buffered())
	return append([]byte(nil), b...)
}

// Rewrap swaps the codec's underlying transport for conn. Used when
// switching from plaintext to a compressed DuplexConn mid-handshake: the
// caller must first read BufferedBytes() from the codec being replaced
// and pass them to NewZlib as its prebuffered opening input — conn
// already incorporates them, so Rewrap itself starts a fresh read
// buffer directly over conn rather than re-prepending anything.
func (c *LineCodec) Rewrap(conn DuplexConn) {
	c.conn = conn
	c.r = bufio.NewReaderSize(conn, MaxLineBytes+1)
}

// prefixedReader yields prefix before reading from r, then r's lifetime
// to EOF — used by NewZlib to hand the compressed bytes the line codec had
// already buffered to the decompressor without losing them.
type prefixedReader struct {
	prefix []byte
	r      interface{ Read([]byte) (int, error) }
}

func (p *prefixedReader) Read(b []byte) (int, error) {
	if len(p.prefix) > 0 {
		n := copy(b, p.prefix)
		p.prefix = p.prefix[n:]
		return n, nil
	}
	return p.r.Read(b)
}
