package proto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeDecodesType(t *testing.T) {
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(`{"type":"hello","proto":"oniz","version":2}`), &env))
	assert.Equal(t, "hello", env.Type)
}

func TestHelloRoundTrip(t *testing.T) {
	h := Hello{Type: "hello", Proto: ProtoName, Version: 2, Compression: CompressionZlib}
	data, err := json.Marshal(h)
	require.NoError(t, err)

	var got Hello
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, h, got)
}

func TestGotObjectNullOmitsNothingButSerializesNull(t *testing.T) {
	msg := GotObject{Type: "got_object", X: 1, Y: 2, Object: nil}
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"got_object","x":1,"y":2,"object":null}`, string(data))
}

func TestHandshakeErrorUnknownProtocol(t *testing.T) {
	msg := HandshakeError{
		Type:               "handshake_error",
		What:               WhatUnknownProtocol,
		SupportedProtocols: []string{ProtoName},
	}
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"handshake_error","what":"unknown_protocol","supported_protocols":["oniz"]}`, string(data))
}
