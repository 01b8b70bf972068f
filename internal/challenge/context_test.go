package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthContent(t *testing.T) {
	first := AuthContent("abc.def")
	second := AuthContent("abc.def")

	assert.Equal(t, first, second)
	assert.Equal(t, "67MSe_XHxLTkK1FxD0lGwcHQWzMdI3ndFeOlQx7ZNBY", first)
	assert.NotContains(t, first, "=")
	assert.NotContains(t, first, "+")
	assert.NotContains(t, first, "/")
}

func TestFQDN(t *testing.T) {
	tests := []struct {
		domain, prefix, expected string
	}{
		{"example.com", "_acme-challenge", "_acme-challenge.example.com"},
		{"example.com", "", "_acme-challenge.example.com"},
		{"example.com.", "_custom", "_custom.example.com"},
		{"www.example.com", "_acme-challenge", "_acme-challenge.www.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FQDN(tt.domain, tt.prefix))
		})
	}
}

func TestContext(t *testing.T) {
	c := Context{Domain: "example.com", ACMEPrefix: "_acme-challenge", KeyAuthorization: "token.thumbprint"}
	assert.Equal(t, "_acme-challenge.example.com", c.FQDN())
	assert.Equal(t, "61rBZ_4knHblO0MNoxFsXZ_eTFUHum0B6IVRbhvUn5I", c.AuthContent())
}
