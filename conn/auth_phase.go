package conn

import (
	"encoding/json"
	"fmt"

	"github.com/solra/onizd/auth"
	"github.com/solra/onizd/proto"
)

// doAuth runs the Authenticating phase when an auth file is configured,
// skipping straight to auth_ok otherwise. It returns ok=false once
// auth_bad has already been sent and the connection should close
// gracefully.
func (s *session) doAuth() (ok bool, err error) {
	if s.cfg.AuthFile == "" {
		if err := s.codec.WriteMessage(proto.AuthOK{Type: "auth_ok"}); err != nil {
			return false, err
		}
		return true, s.codec.Flush()
	}

	matches := 0
	for i := 0; i < auth.NumChallenges; i++ {
		offset, err := auth.RandomOffset()
		if err != nil {
			return false, fmt.Errorf("conn: generating challenge offset: %w", err)
		}
		want, err := auth.ExpectedHash(s.cfg.AuthFile, offset)
		if err != nil {
			return false, fmt.Errorf("conn: reading auth secret: %w", err)
		}

		if err := s.codec.WriteMessage(proto.NeedAuth{Type: "need_auth", Offset: offset}); err != nil {
			return false, err
		}
		if err := s.codec.Flush(); err != nil {
			return false, err
		}

		raw, err := s.codec.ReadMessage()
		if err != nil {
			return false, fmt.Errorf("conn: auth read: %w", err)
		}
		var env proto.Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Type != "auth" {
			return false, fmt.Errorf("conn: unexpected message during auth: %w", errFatal)
		}
		var a proto.Auth
		if err := json.Unmarshal(raw, &a); err != nil {
			return false, fmt.Errorf("conn: auth decode: %w", errFatal)
		}
		if a.Hash == want {
			matches++
		}
	}

	if matches < auth.NumChallenges {
		if err := s.codec.WriteMessage(proto.AuthBad{Type: "auth_bad"}); err == nil {
			_ = s.codec.Flush()
		}
		return false, nil
	}

	if err := s.codec.WriteMessage(proto.AuthOK{Type: "auth_ok"}); err != nil {
		return false, err
	}
	return true, s.codec.Flush()
}
