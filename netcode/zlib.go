package netcode

import (
	"compress/zlib"
	"io"
)

// zlibConn layers an RFC 1950 zlib deflate/inflate pair over a duplex
// byte transport. Any bytes already buffered by the line codec past the
// handshake boundary are fed to the decompressor first,
// via prefixedReader, since they are the opening bytes of the compressed
// stream, not a fresh plaintext message.
type zlibConn struct {
	transport io.ReadWriteCloser
	src       io.Reader
	zr        io.ReadCloser // created on first Read, since it consumes the zlib header
	zw        *zlib.Writer
}

// NewZlib wraps transport in a zlib duplex stream. prebuffered holds any
// bytes the line codec had already read past the handshake terminator;
// they become the decompressor's first input.
func NewZlib(transport io.ReadWriteCloser, prebuffered []byte) (DuplexConn, error) {
	src := io.Reader(transport)
	if len(prebuffered) > 0 {
		src = &prefixedReader{prefix: prebuffered, r: transport}
	}
	return &zlibConn{
		transport: transport,
		src:       src,
		zw:        zlib.NewWriter(transport),
	}, nil
}

func (z *zlibConn) Read(b []byte) (int, error) {
	if z.zr == nil {
		zr, err := zlib.NewReader(z.src)
		if err != nil {
			return 0, err
		}
		z.zr = zr
	}
	n, err := z.zr.Read(b)
	if n == 0 && err == nil {
		// A zero-byte, no-error read would stall the caller; zlib.Reader
		// doesn't produce these in practice, but treat it defensively as
		// "try again" rather than propagating a false EOF.
		return z.zr.Read(b)
	}
	return n, err
}

// Write compresses b with FlushCompress::None (ordinary, non-flushing
// deflate output); the compressor may buffer bytes internally until the
// next Flush or enough data accumulates.
func (z *zlibConn) Write(b []byte) (int, error) {
	return z.zw.Write(b)
}

// Flush emits a sync-flush frame (FlushCompress::Sync) so everything
// written so far is decodable by the peer without waiting for more data,
// then flushes the underlying transport.
func (z *zlibConn) Flush() error {
	if err := z.zw.Flush(); err != nil {
		return err
	}
	if f, ok := z.transport.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

func (z *zlibConn) Close() error {
	_ = z.zw.Close()
	if z.zr != nil {
		_ = z.zr.Close()
	}
	return z.transport.Close()
}
