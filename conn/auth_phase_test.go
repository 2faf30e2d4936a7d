package conn

import (
	"crypto/sha256"
	"encoding/base64"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/solra/onizd/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSecretFile(t *testing.T) string {
	t.Helper()
	data := make([]byte, 20000)
	for i := range data {
		data[i] = byte(i % 241)
	}
	path := filepath.Join(t.TempDir(), "secret.bin")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func hashFor(t *testing.T, path string, offsetRaw float64) string {
	t.Helper()
	want, err := auth.ExpectedHash(path, uint64(offsetRaw))
	require.NoError(t, err)
	return want
}

// S6: three need_auth rounds, client answers two correctly and one
// wrong -> server sends auth_bad and closes gracefully.
func TestScenarioS6AuthBad(t *testing.T) {
	server, client := net.Pipe()
	m, cfg, lg := newHarness(t)
	cfg.AuthFile = writeSecretFile(t)

	done := make(chan error, 1)
	go func() { done <- Run(server, 1, m, cfg, lg) }()

	c := newTestClient(t, client)
	c.send(map[string]interface{}{"type": "hello", "proto": "oniz", "version": 2})

	for i := 0; i < auth.NumChallenges; i++ {
		challenge := c.recv()
		require.Equal(t, "need_auth", challenge["type"])
		offset := challenge["offset"].(float64)

		var hash string
		if i == 1 {
			hash = base64.StdEncoding.EncodeToString(sha256.New().Sum(nil)) // deliberately wrong
		} else {
			hash = hashFor(t, cfg.AuthFile, offset)
		}
		c.send(map[string]interface{}{"type": "auth", "hash": hash})
	}

	reply := c.recv()
	assert.Equal(t, "auth_bad", reply["type"])

	client.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not close")
	}
}

func TestAuthOKWithAllCorrectHashes(t *testing.T) {
	server, client := net.Pipe()
	m, cfg, lg := newHarness(t)
	cfg.AuthFile = writeSecretFile(t)

	done := make(chan error, 1)
	go func() { done <- Run(server, 1, m, cfg, lg) }()

	c := newTestClient(t, client)
	c.send(map[string]interface{}{"type": "hello", "proto": "oniz", "version": 2})

	for i := 0; i < auth.NumChallenges; i++ {
		challenge := c.recv()
		offset := challenge["offset"].(float64)
		hash := hashFor(t, cfg.AuthFile, offset)
		c.send(map[string]interface{}{"type": "auth", "hash": hash})
	}

	reply := c.recv()
	assert.Equal(t, "auth_ok", reply["type"])

	client.Close()
	<-done
}
