package conn

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/solra/onizd/imap"
	"github.com/solra/onizd/proto"
)

// readResult is one inbound line, or the terminal error that ended the
// read loop (io.EOF on a clean disconnect).
type readResult struct {
	raw json.RawMessage
	err error
}

// runSteady drives the Steady state: subscribes to registration fan-out,
// runs a periodic keepalive ticker, and multiplexes fan-out events with
// inbound requests until the peer disconnects.
func (s *session) runSteady() error {
	id, events := s.m.Subscribe()
	defer s.m.Unsubscribe(id)

	pingSeconds := s.cfg.PingSeconds
	if pingSeconds <= 0 {
		pingSeconds = 24 * 60 * 60
	}
	ticker := time.NewTicker(time.Duration(pingSeconds) * time.Second)
	defer ticker.Stop()

	// Buffered by one so the read goroutine's final send (the error that
	// follows the deferred conn.Close(), once runSteady has already
	// returned for some other reason and nobody is receiving anymore)
	// never blocks forever.
	reads := make(chan readResult, 1)
	go func() {
		for {
			raw, err := s.codec.ReadMessage()
			reads <- readResult{raw: raw, err: err}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ticker.C:
			if err := s.codec.WriteMessage(proto.Ping{Type: "ping"}); err != nil {
				return err
			}
			if err := s.codec.Flush(); err != nil {
				return err
			}

		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("conn: dropped from registration fan-out: %w", errFatal)
			}
			if err := s.sendRegistrationEvent(ev); err != nil {
				return err
			}

		case r := <-reads:
			if r.err != nil {
				if errors.Is(r.err, io.EOF) {
					return nil
				}
				return r.err
			}
			if err := s.dispatch(r.raw); err != nil {
				return err
			}
			if err := s.codec.Flush(); err != nil {
				return err
			}
		}
	}
}

func (s *session) sendRegistrationEvent(ev imap.RegistrationEvent) error {
	if ev.Polarity {
		if err := s.codec.WriteMessage(proto.Registered{Type: "registered", X: ev.Point.X, Y: ev.Point.Y, What: ev.Name}); err != nil {
			return err
		}
	} else {
		if err := s.codec.WriteMessage(proto.Unregistered{Type: "unregistered", X: ev.Point.X, Y: ev.Point.Y, What: ev.Name}); err != nil {
			return err
		}
	}
	return s.codec.Flush()
}
