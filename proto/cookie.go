package proto

import "encoding/json"

// EchoCookie returns raw unchanged if it represents a scalar JSON value
// (not null, not an object, not an array), and nil otherwise — replies
// only echo scalar cookies back verbatim.
func EchoCookie(raw json.RawMessage) json.RawMessage {
	if !IsScalarCookie(raw) {
		return nil
	}
	return raw
}

// IsScalarCookie reports whether raw is present and is a JSON scalar:
// a number, string, or boolean. null, objects, and arrays are excluded.
func IsScalarCookie(raw json.RawMessage) bool {
	trimmed := trimLeadingSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	switch trimmed[0] {
	case '{', '[':
		return false
	}
	if string(trimmed) == "null" {
		return false
	}
	return true
}

func trimLeadingSpace(raw json.RawMessage) json.RawMessage {
	i := 0
	for i < len(raw) {
		switch raw[i] {
		case ' ', '\t', '\r', '\n':
			i++
			continue
		}
		break
	}
	return raw[i:]
}
