package proto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEchoCookieScalars(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{`7`, true},
		{`"hello"`, true},
		{`true`, true},
		{`null`, false},
		{`{"a":1}`, false},
		{`[1,2]`, false},
		{``, false},
		{`  42`, true},
	}
	for _, c := range cases {
		got := IsScalarCookie(json.RawMessage(c.raw))
		assert.Equalf(t, c.want, got, "raw=%q", c.raw)
	}
}

func TestEchoCookieReturnsNilForNonScalar(t *testing.T) {
	assert.Nil(t, EchoCookie(json.RawMessage(`{"x":1}`)))
	assert.Nil(t, EchoCookie(json.RawMessage(`null`)))
	assert.Equal(t, json.RawMessage(`9`), EchoCookie(json.RawMessage(`9`)))
}
