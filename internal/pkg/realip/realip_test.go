package realip

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIPIgnoresForwardedFromUntrustedPeer(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)

	assert.Equal(t, "203.0.113.7", r.ClientIP("203.0.113.7:5555", []string{"1.2.3.4"}))
	assert.Equal(t, "203.0.113.7", r.ClientIP("203.0.113.7:5555", nil))

	var none *Resolver
	assert.Equal(t, "203.0.113.7", none.ClientIP("203.0.113.7:5555", []string{"1.2.3.4"}))
}

func TestClientIPBehindTrustedProxy(t *testing.T) {
	r, err := New([]string{"10.0.0.0/8", "192.0.2.1"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		remote    string
		forwarded []string
		want      string
	}{
		{"single hop", "10.1.1.1:80", []string{"198.51.100.9"}, "198.51.100.9"},
		{"spoofed leftmost hop", "10.1.1.1:80", []string{"6.6.6.6, 198.51.100.9"}, "198.51.100.9"},
		{"chained proxies", "192.0.2.1:80", []string{"198.51.100.9, 10.2.2.2"}, "198.51.100.9"},
		{"split headers", "192.0.2.1:80", []string{"6.6.6.6", "198.51.100.9, 10.2.2.2"}, "198.51.100.9"},
		{"no header", "10.1.1.1:80", nil, "10.1.1.1"},
		{"all trusted", "10.1.1.1:80", []string{"10.3.3.3"}, "10.3.3.3"},
		{"malformed hop", "10.1.1.1:80", []string{"198.51.100.9, garbage"}, "10.1.1.1"},
		{"mapped peer", "[::ffff:10.1.1.1]:80", []string{"198.51.100.9"}, "198.51.100.9"},
		{"untrusted peer", "198.51.100.1:80", []string{"198.51.100.9"}, "198.51.100.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ClientIP(tt.remote, tt.forwarded))
		})
	}
}

func TestNewRejectsMalformedProxy(t *testing.T) {
	r, err := New([]string{"10.0.0.0/8", "not-an-ip"})
	assert.Error(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "10.1.1.1", r.ClientIP("10.1.1.1:80", []string{"198.51.100.9"}))
}

func TestFromRequest(t *testing.T) {
	r, err := New([]string{"192.0.2.0/24"})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/orders/x", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.9")
	assert.Equal(t, "198.51.100.9", r.FromRequest(req))

	req.RemoteAddr = "203.0.113.7:1234"
	assert.Equal(t, "203.0.113.7", r.FromRequest(req))
}
