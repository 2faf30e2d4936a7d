package netcode

import "io"

// DuplexConn is a byte-stream transport with an explicit Flush, so the
// codec above it can distinguish "buffered, not yet on the wire" from
// "sent" — needed because the zlib variant only emits a sync-flush frame
// on demand.
type DuplexConn interface {
	io.Reader
	io.Writer
	// Flush pushes any internally buffered bytes out to the wire. For a
	// plain connection this is a no-op; for a compressed one it emits a
	// FlushCompress::Sync-equivalent frame and flushes the underlying
	// transport.
	Flush() error
	// Close closes the underlying transport. Passes through uncompressed.
	Close() error
}

// plainConn is the identity DuplexConn — no compression, Flush is a
// no-op since writes go straight to the wire.
type plainConn struct {
	rw io.ReadWriteCloser
}

// NewPlain wraps rw with no compression.
func NewPlain(rw io.ReadWriteCloser) DuplexConn {
	return &plainConn{rw: rw}
}

func (p *plainConn) Read(b []byte) (int, error)  { return p.rw.Read(b) }
func (p *plainConn) Write(b []byte) (int, error) { return p.rw.Write(b) }
func (p *plainConn) Flush() error                { return nil }
func (p *plainConn) Close() error                { return p.rw.Close() }
