// Package proto defines the wire message types exchanged over a
// netcode.LineCodec connection. Each message is a flat JSON object
// carrying its own "type" discriminator. Whether a cookie is echoed
// depends on its JSON shape rather than the message type; that rule is
// EchoCookie (cookie.go), which the conn package applies to each reply.
package proto

import "encoding/json"

// ProtoName is the only accepted "proto" field value in a hello message.
const ProtoName = "oniz"

// SupportedVersions lists every protocol version this server accepts.
var SupportedVersions = []int{0, 1, 2}

// CompressionZlib is the only accepted non-empty "compression" value.
const CompressionZlib = "Zlib"

// Envelope is the minimal decode used to dispatch an inbound message
// before unmarshaling it into its concrete payload type.
type Envelope struct {
	Type   string          `json:"type"`
	Cookie json.RawMessage `json:"cookie,omitempty"`
}

// Hello is the mandatory first client→server message.
type Hello struct {
	Type        string `json:"type"`
	Proto       string `json:"proto"`
	Version     int    `json:"version"`
	Compression string `json:"compression,omitempty"`
}

// HandshakeError is sent in place of a Hello reply when the handshake
// cannot proceed; suppressed entirely for protocol version 0 peers.
type HandshakeError struct {
	Type                 string   `json:"type"`
	What                 string   `json:"what"`
	SupportedProtocols   []string `json:"supported_protocols,omitempty"`
	SupportedCompression []string `json:"supported_compression_types,omitempty"`
	SupportedVersions    []int    `json:"supported_versions,omitempty"`
}

// Handshake error "what" values.
const (
	WhatUnknownProtocol    = "unknown_protocol"
	WhatCompressionUnknown = "compression_type_unknown"
	WhatVersionTooOld      = "version_too_old"
	WhatVersionTooNew      = "version_too_new"
	WhatBadVersion         = "bad_version"
)

// NeedAuth is one of NumChallenges challenge prompts sent during the
// Authenticating phase.
type NeedAuth struct {
	Type   string `json:"type"`
	Offset uint64 `json:"offset"`
}

// Auth is the client's response to a NeedAuth challenge.
type Auth struct {
	Type string `json:"type"`
	Hash string `json:"hash"`
}

// AuthOK and AuthBad are the terminal replies to the Authenticating phase.
type AuthOK struct {
	Type string `json:"type"`
}
type AuthBad struct {
	Type string `json:"type"`
}

// Ping and Pong are exchanged both as a client-initiated keepalive check
// and as the server's own periodic keepalive.
type Ping struct {
	Type   string          `json:"type"`
	Cookie json.RawMessage `json:"cookie,omitempty"`
}
type Pong struct {
	Type   string          `json:"type"`
	Cookie json.RawMessage `json:"cookie,omitempty"`
}

// SendJoules requests depositing joules into a point's energy pool.
type SendJoules struct {
	Type   string          `json:"type"`
	X      int32           `json:"x"`
	Y      int32           `json:"y"`
	Joules uint64          `json:"joules"`
	Cookie json.RawMessage `json:"cookie,omitempty"`
}
type SentJoules struct {
	Type   string          `json:"type"`
	X      int32           `json:"x"`
	Y      int32           `json:"y"`
	Spare  uint64          `json:"spare"`
	Cookie json.RawMessage `json:"cookie,omitempty"`
}

// RecvJoules requests withdrawing up to MaxJoules from a point's pool.
type RecvJoules struct {
	Type      string          `json:"type"`
	X         int32           `json:"x"`
	Y         int32           `json:"y"`
	MaxJoules uint64          `json:"max_joules"`
	Cookie    json.RawMessage `json:"cookie,omitempty"`
}
type GotJoules struct {
	Type   string          `json:"type"`
	X      int32           `json:"x"`
	Y      int32           `json:"y"`
	Joules uint64          `json:"joules"`
	Cookie json.RawMessage `json:"cookie,omitempty"`
}

// SendPacket requests depositing a material parcel into a point's
// gas/liquid queue for the given phase.
type SendPacket struct {
	Type   string          `json:"type"`
	X      int32           `json:"x"`
	Y      int32           `json:"y"`
	Phase  string          `json:"phase"`
	Packet json.RawMessage `json:"packet"`
	Cookie json.RawMessage `json:"cookie,omitempty"`
}
type SentPacket struct {
	Type     string          `json:"type"`
	X        int32           `json:"x"`
	Y        int32           `json:"y"`
	Accepted bool            `json:"accepted"`
	Cookie   json.RawMessage `json:"cookie,omitempty"`
}

// RecvPacket requests popping the head parcel from a point's queue.
type RecvPacket struct {
	Type   string          `json:"type"`
	X      int32           `json:"x"`
	Y      int32           `json:"y"`
	Phase  string          `json:"phase"`
	Cookie json.RawMessage `json:"cookie,omitempty"`
}
type GotPacket struct {
	Type   string          `json:"type"`
	X      int32           `json:"x"`
	Y      int32           `json:"y"`
	Phase  string          `json:"phase"`
	Packet json.RawMessage `json:"packet"`
	Cookie json.RawMessage `json:"cookie,omitempty"`
}

// SendObject requests depositing a base64-encoded blob into a point's
// object queue.
type SendObject struct {
	Type   string          `json:"type"`
	X      int32           `json:"x"`
	Y      int32           `json:"y"`
	Object string          `json:"object"`
	Cookie json.RawMessage `json:"cookie,omitempty"`
}
type SentObject struct {
	Type     string          `json:"type"`
	X        int32           `json:"x"`
	Y        int32           `json:"y"`
	Accepted bool            `json:"accepted"`
	Cookie   json.RawMessage `json:"cookie,omitempty"`
}

// RecvObject requests popping a blob from a point's object queue.
type RecvObject struct {
	Type   string          `json:"type"`
	X      int32           `json:"x"`
	Y      int32           `json:"y"`
	Cookie json.RawMessage `json:"cookie,omitempty"`
}
type GotObject struct {
	Type   string          `json:"type"`
	X      int32           `json:"x"`
	Y      int32           `json:"y"`
	Object *string         `json:"object"`
	Cookie json.RawMessage `json:"cookie,omitempty"`
}

// Register and Unregister add/remove a named endpoint at a point.
type Register struct {
	Type   string          `json:"type"`
	X      int32           `json:"x"`
	Y      int32           `json:"y"`
	What   string          `json:"what"`
	Cookie json.RawMessage `json:"cookie,omitempty"`
}
type Unregister struct {
	Type   string          `json:"type"`
	X      int32           `json:"x"`
	Y      int32           `json:"y"`
	What   string          `json:"what"`
	Cookie json.RawMessage `json:"cookie,omitempty"`
}

// Registered and Unregistered are fan-out events pushed to every steady
// subscriber whenever any connection registers or unregisters an
// endpoint.
type Registered struct {
	Type string `json:"type"`
	X    int32  `json:"x"`
	Y    int32  `json:"y"`
	What string `json:"what"`
}
type Unregistered struct {
	Type string `json:"type"`
	X    int32  `json:"x"`
	Y    int32  `json:"y"`
	What string `json:"what"`
}
