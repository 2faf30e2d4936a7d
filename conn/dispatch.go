package conn

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/solra/onizd/mat"
	"github.com/solra/onizd/point"
	"github.com/solra/onizd/proto"
)

// maxNameBytes caps an endpoint name at the protocol edge; oversized
// names are a fatal connection error (an oversized send_object payload,
// by contrast, is answered with accepted=false).
const maxNameBytes = 5000

// dispatch decodes one inbound steady-state message and writes its
// reply (if any) to the codec. It does not flush; runSteady flushes
// once per inbound message.
func (s *session) dispatch(raw json.RawMessage) error {
	var env proto.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("conn: malformed message: %w", errFatal)
	}

	switch env.Type {
	case "ping":
		return s.codec.WriteMessage(proto.Pong{Type: "pong", Cookie: proto.EchoCookie(env.Cookie)})
	case "pong":
		return nil // no reply
	case "send_joules":
		return s.handleSendJoules(raw)
	case "recv_joules":
		return s.handleRecvJoules(raw)
	case "send_packet":
		return s.handleSendPacket(raw)
	case "recv_packet":
		return s.handleRecvPacket(raw)
	case "send_object":
		return s.handleSendObject(raw)
	case "recv_object":
		return s.handleRecvObject(raw)
	case "register":
		return s.handleRegister(raw)
	case "unregister":
		return s.handleUnregister(raw)
	default:
		return fmt.Errorf("conn: unknown message type %q: %w", env.Type, errFatal)
	}
}

// recvOffset returns the y-offset applied to recv_* operations and
// recv-side point lookups when offset mode is enabled: recv_* operations
// always get +1 added to y.
func (s *session) recvOffset() int32 {
	if s.offsetMode {
		return 1
	}
	return 0
}

// registrationOffset returns the y-offset a register/unregister
// operation receives based on the suffix of name: +1 for "...Recver",
// -1 for "...Sender", 0 otherwise — only applied when offset mode is on.
func (s *session) registrationOffset(name string) int32 {
	if !s.offsetMode {
		return 0
	}
	switch {
	case strings.HasSuffix(name, "Recver"):
		return 1
	case strings.HasSuffix(name, "Sender"):
		return -1
	default:
		return 0
	}
}

func (s *session) handleSendJoules(raw json.RawMessage) error {
	var msg proto.SendJoules
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("conn: send_joules decode: %w", errFatal)
	}
	p := point.New2D(msg.X, msg.Y)
	spare := s.m.AddJoules(p, msg.Joules)
	return s.codec.WriteMessage(proto.SentJoules{
		Type: "sent_joules", X: msg.X, Y: msg.Y, Spare: spare,
		Cookie: proto.EchoCookie(msg.Cookie),
	})
}

func (s *session) handleRecvJoules(raw json.RawMessage) error {
	var msg proto.RecvJoules
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("conn: recv_joules decode: %w", errFatal)
	}
	p := point.New2D(msg.X, msg.Y+s.recvOffset())
	got := s.m.SubJoules(p, msg.MaxJoules)
	return s.codec.WriteMessage(proto.GotJoules{
		Type: "got_joules", X: msg.X, Y: msg.Y, Joules: got,
		Cookie: proto.EchoCookie(msg.Cookie),
	})
}

func (s *session) handleSendPacket(raw json.RawMessage) error {
	var msg proto.SendPacket
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("conn: send_packet decode: %w", errFatal)
	}
	phase, ok := point.ParsePhase(msg.Phase)
	if !ok {
		return fmt.Errorf("conn: send_packet unknown phase %q: %w", msg.Phase, errFatal)
	}
	var pkt mat.Packet
	if err := json.Unmarshal(msg.Packet, &pkt); err != nil {
		return fmt.Errorf("conn: send_packet packet decode: %w", errFatal)
	}
	accepted := false
	if pkt.Mass <= phase.MaxStackSize() {
		p := point.New2D(msg.X, msg.Y)
		accepted = s.m.AddPacket(p, pkt, phase)
	}
	return s.codec.WriteMessage(proto.SentPacket{
		Type: "sent_packet", X: msg.X, Y: msg.Y, Accepted: accepted,
		Cookie: proto.EchoCookie(msg.Cookie),
	})
}

func (s *session) handleRecvPacket(raw json.RawMessage) error {
	var msg proto.RecvPacket
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("conn: recv_packet decode: %w", errFatal)
	}
	phase, ok := point.ParsePhase(msg.Phase)
	if !ok {
		return fmt.Errorf("conn: recv_packet unknown phase %q: %w", msg.Phase, errFatal)
	}
	p := point.New2D(msg.X, msg.Y+s.recvOffset())
	pkt, found := s.m.PopPacket(p, phase)

	var pktRaw json.RawMessage
	if found {
		data, err := json.Marshal(pkt)
		if err != nil {
			return err
		}
		pktRaw = data
	} else {
		pktRaw = json.RawMessage("null")
	}
	return s.codec.WriteMessage(proto.GotPacket{
		Type: "got_packet", X: msg.X, Y: msg.Y, Phase: msg.Phase, Packet: pktRaw,
		Cookie: proto.EchoCookie(msg.Cookie),
	})
}

func (s *session) handleSendObject(raw json.RawMessage) error {
	var msg proto.SendObject
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("conn: send_object decode: %w", errFatal)
	}
	maxObjectSize := s.cfg.MaxObjectSize
	maxEncoded := (maxObjectSize + 2) * 4 / 3

	accepted := false
	if len(msg.Object) <= maxEncoded {
		if blob, err := base64.StdEncoding.DecodeString(msg.Object); err == nil && len(blob) <= maxObjectSize {
			p := point.New2D(msg.X, msg.Y)
			accepted = s.m.AddObject(p, blob)
		}
	}
	return s.codec.WriteMessage(proto.SentObject{
		Type: "sent_object", X: msg.X, Y: msg.Y, Accepted: accepted,
		Cookie: proto.EchoCookie(msg.Cookie),
	})
}

func (s *session) handleRecvObject(raw json.RawMessage) error {
	var msg proto.RecvObject
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("conn: recv_object decode: %w", errFatal)
	}
	p := point.New2D(msg.X, msg.Y+s.recvOffset())
	blob, found := s.m.PopObject(p)

	var objPtr *string
	if found {
		enc := base64.StdEncoding.EncodeToString(blob)
		objPtr = &enc
	}
	return s.codec.WriteMessage(proto.GotObject{
		Type: "got_object", X: msg.X, Y: msg.Y, Object: objPtr,
		Cookie: proto.EchoCookie(msg.Cookie),
	})
}

func (s *session) handleRegister(raw json.RawMessage) error {
	var msg proto.Register
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("conn: register decode: %w", errFatal)
	}
	if len(msg.What) > maxNameBytes {
		return fmt.Errorf("conn: register name too long (%d bytes): %w", len(msg.What), errFatal)
	}
	p := point.New2D(msg.X, msg.Y+s.registrationOffset(msg.What))
	if !s.m.Register(p, s.clientID, msg.What) {
		return fmt.Errorf("conn: registration cap exceeded at %s: %w", p, errFatal)
	}
	return nil
}

func (s *session) handleUnregister(raw json.RawMessage) error {
	var msg proto.Unregister
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("conn: unregister decode: %w", errFatal)
	}
	if len(msg.What) > maxNameBytes {
		return fmt.Errorf("conn: unregister name too long (%d bytes): %w", len(msg.What), errFatal)
	}
	p := point.New2D(msg.X, msg.Y+s.registrationOffset(msg.What))
	s.m.Unregister(p, s.clientID, msg.What)
	return nil
}
