// Package auth implements the optional challenge/response authentication
// dialog against a keyed shared-secret file.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"math/big"
	"os"
)

// NumChallenges is how many independent offset/hash rounds a connection
// must pass to be authenticated.
const NumChallenges = 3

// AuthByteSize is how many bytes of the secret file are hashed per
// challenge.
const AuthByteSize = 5496

// maxOffset bounds the random challenge offset to 53 bits, matching the
// spec's "53-bit unsigned random offsets" (chosen so offsets round-trip
// cleanly through a JSON float64 without precision loss).
var maxOffset = new(big.Int).Lsh(big.NewInt(1), 53)

// ErrEmptySecret is a fatal configuration error: an empty secret file can
// never produce a valid challenge response.
var ErrEmptySecret = errors.New("auth: secret file is empty")

// RandomOffset returns a cryptographically random offset in [0, 2^53).
func RandomOffset() (uint64, error) {
	n, err := rand.Int(rand.Reader, maxOffset)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// ExpectedHash computes the base64-encoded SHA-256 digest of AuthByteSize
// bytes read from secretPath starting at offset (mod file size), wrapping
// around to the start of the file if EOF is hit before the buffer fills.
func ExpectedHash(secretPath string, offset uint64) (string, error) {
	f, err := os.Open(secretPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	size := info.Size()
	if size == 0 {
		return "", ErrEmptySecret
	}

	buf := make([]byte, AuthByteSize)
	pos := int64(offset % uint64(size))
	read := 0
	for read < len(buf) {
		if _, err := f.Seek(pos, io.SeekStart); err != nil {
			return "", err
		}
		n, err := f.Read(buf[read:])
		if n == 0 && err != nil {
			if err == io.EOF {
				pos = 0
				continue
			}
			return "", err
		}
		read += n
		pos += int64(n)
		if pos >= size {
			pos = 0
		}
	}

	sum := sha256.Sum256(buf)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

// OffsetToJSON converts an offset to the JSON number representation used
// on the wire. Offsets are bounded to 53 bits specifically so this never
// loses precision when round-tripped through encoding/json's float64.
func OffsetToJSON(offset uint64) float64 {
	return float64(offset)
}
