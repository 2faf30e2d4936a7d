// Package conn implements the per-connection state machine: handshake,
// optional compression negotiation, optional challenge/response auth,
// and the steady-state multiplexed request/fan-out/ping loop. Grounded
// on probe/handler.go's runProbePeer/runHandler convention: one function
// owns a connection's full lifecycle, including the deferred
// unregister-on-exit unwind.
package conn

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/solra/onizd/config"
	"github.com/solra/onizd/imap"
	"github.com/solra/onizd/netcode"
	"github.com/solra/onizd/onizlog"
	"github.com/solra/onizd/proto"
)

// handshakeTimeout bounds how long the first line may take to arrive.
const handshakeTimeout = 10 * time.Second

// errFatal wraps any error that must close the connection without
// necessarily being logged as a server-side failure (e.g. a malformed or
// unexpected client message).
var errFatal = errors.New("conn: fatal connection error")

// session holds the mutable state of one connection's lifecycle, split
// into named phase methods (doHandshake, doAuth, runSteady) the way
// probe/handler.go's peer/handler types split a lifecycle into phases.
type session struct {
	raw      net.Conn
	codec    *netcode.LineCodec
	dconn    netcode.DuplexConn
	clientID uint64
	m        *imap.Map
	cfg      *config.Config
	lg       onizlog.Logger

	version    int
	offsetMode bool
}

// Run drives one accepted connection through its full lifecycle and
// returns once the connection is closed. It never panics on malformed
// input; all per-connection errors are contained here and logged.
func Run(rawConn net.Conn, clientID uint64, m *imap.Map, cfg *config.Config, lg onizlog.Logger) error {
	lg = lg.With("client", clientID)
	s := &session{
		raw:        rawConn,
		codec:      netcode.NewLineCodec(netcode.NewPlain(rawConn)),
		dconn:      netcode.NewPlain(rawConn),
		clientID:   clientID,
		m:          m,
		cfg:        cfg,
		lg:         lg,
		offsetMode: cfg.OffsetMode,
	}
	defer func() {
		m.UnregisterAll(clientID)
		_ = rawConn.Close()
		lg.Debug("connection closed")
	}()

	ok, err := s.doHandshake()
	if err != nil {
		lg.Debug("handshake failed", "err", err)
		return err
	}
	if !ok {
		return nil // handshake_error already sent (or suppressed for v0); close gracefully
	}

	authed, err := s.doAuth()
	if err != nil {
		lg.Debug("auth phase failed", "err", err)
		return err
	}
	if !authed {
		return nil // auth_bad already sent; close gracefully
	}

	if err := s.runSteady(); err != nil && !errors.Is(err, errFatal) {
		lg.Debug("steady loop ended", "err", err)
	}
	return nil
}

// helloRaw decodes just enough of the handshake line to validate each
// field independently — a malformed version (wrong JSON type) must still
// produce a bad_version response rather than a silent close, so Version
// is captured as json.RawMessage rather than int.
type helloRaw struct {
	Type        string          `json:"type"`
	Proto       string          `json:"proto"`
	Version     json.RawMessage `json:"version"`
	Compression string          `json:"compression"`
}

// doHandshake reads and validates the mandatory first message. It
// returns ok=false (with no error) once it has fully handled a rejection
// itself, including sending any required handshake_error; Run's deferred
// close then ends the connection.
func (s *session) doHandshake() (ok bool, err error) {
	_ = s.raw.SetReadDeadline(time.Now().Add(handshakeTimeout))
	raw, err := s.codec.ReadMessage()
	_ = s.raw.SetReadDeadline(time.Time{})
	if err != nil {
		return false, fmt.Errorf("conn: handshake read: %w", err)
	}

	var h helloRaw
	if err := json.Unmarshal(raw, &h); err != nil || h.Type != "hello" {
		return false, fmt.Errorf("conn: handshake decode: %w", errFatal)
	}

	version, versionOK := parseVersion(h.Version)

	// Compression is negotiated before any response is sent: the socket
	// must be wrapped before anything goes back over the wire, including
	// a handshake_error for an otherwise-invalid hello.
	switch h.Compression {
	case "", proto.CompressionZlib:
	default:
		return s.rejectHandshake(version, proto.HandshakeError{
			Type:                 "handshake_error",
			What:                 proto.WhatCompressionUnknown,
			SupportedCompression: []string{proto.CompressionZlib},
		})
	}

	if h.Compression == proto.CompressionZlib {
		if err := s.switchToZlib(); err != nil {
			return false, fmt.Errorf("conn: zlib setup: %w", err)
		}
	}

	if h.Proto != proto.ProtoName {
		return s.rejectHandshake(version, proto.HandshakeError{
			Type:               "handshake_error",
			What:               proto.WhatUnknownProtocol,
			SupportedProtocols: []string{proto.ProtoName},
		})
	}

	if !versionOK {
		return s.rejectHandshake(version, proto.HandshakeError{
			Type:              "handshake_error",
			What:              proto.WhatBadVersion,
			SupportedVersions: proto.SupportedVersions,
		})
	}
	if version < proto.SupportedVersions[0] {
		return s.rejectHandshake(version, proto.HandshakeError{
			Type:              "handshake_error",
			What:              proto.WhatVersionTooOld,
			SupportedVersions: proto.SupportedVersions,
		})
	}
	if version > proto.SupportedVersions[len(proto.SupportedVersions)-1] {
		return s.rejectHandshake(version, proto.HandshakeError{
			Type:              "handshake_error",
			What:              proto.WhatVersionTooNew,
			SupportedVersions: proto.SupportedVersions,
		})
	}

	s.version = version
	return true, nil
}

// parseVersion accepts only a bare JSON integer; anything else (string,
// float with a fraction, object, missing field) is reported as invalid.
func parseVersion(raw json.RawMessage) (version int, ok bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	if err := json.Unmarshal(raw, &version); err != nil {
		return 0, false
	}
	return version, true
}

// switchToZlib hands any bytes the line codec already buffered past the
// handshake terminator to a fresh zlib-wrapped DuplexConn before
// rebinding the codec onto it.
func (s *session) switchToZlib() error {
	prebuffered := s.codec.BufferedBytes()
	zc, err := netcode.NewZlib(s.raw, prebuffered)
	if err != nil {
		return err
	}
	s.dconn = zc
	s.codec.Rewrap(zc)
	return nil
}

// rejectHandshake sends he (unless version==0, which must never receive
// a handshake_error) and flushes; closing is left to Run's deferred
// cleanup. It always returns ok=false
// with a nil error: a rejected handshake is not itself a connection
// failure worth logging as one.
func (s *session) rejectHandshake(version int, he proto.HandshakeError) (bool, error) {
	if version != 0 {
		if err := s.codec.WriteMessage(he); err == nil {
			_ = s.codec.Flush()
		}
	}
	return false, nil
}
