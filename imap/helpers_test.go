package imap

import "encoding/base64"

func encodeTestBlob(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
