package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/solra/onizd/config"
	"github.com/solra/onizd/imap"
	"github.com/solra/onizd/onizlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestServerAcceptsAndAssignsDistinctClientIDs(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	m := imap.New()
	cfg := &config.Config{Listen: addr, MaxObjectSize: config.DefaultMaxObjectSize, PingSeconds: config.DefaultPingSeconds}
	lg := onizlog.New(discard{}, onizlog.LvlCrit)
	srv := New(cfg, m, lg)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(ctx) }()

	// Give the listener a moment to bind.
	var conn1 net.Conn
	for i := 0; i < 50; i++ {
		conn1, err = net.Dial("tcp", addr)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	defer conn1.Close()

	helloAndAuthOK(t, conn1)

	conn2, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn2.Close()
	helloAndAuthOK(t, conn2)

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
		// Two accepted connections received IDs 0 and 1.
		assert.Equal(t, uint64(2), srv.nextClientID)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func helloAndAuthOK(t *testing.T, c net.Conn) {
	t.Helper()
	_, err := c.Write([]byte(`{"type":"hello","proto":"oniz","version":2}` + "\n"))
	require.NoError(t, err)

	r := bufio.NewReader(c)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	var v map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &v))
	assert.Equal(t, "auth_ok", v["type"])
}
