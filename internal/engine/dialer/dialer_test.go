package dialer

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostPort(t *testing.T) {
	cases := map[string]string{
		"http://example.com":              "example.com:80",
		"https://example.com":             "example.com:443",
		"http://example.com:8080/x":       "example.com:8080",
		"https://example.com:8443":        "example.com:8443",
		"socks5://proxy.example.com":      "proxy.example.com:1080",
		"socks5://proxy.example.com:9050": "proxy.example.com:9050",
	}
	for raw, want := range cases {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, want, HostPort(u), raw)
	}
}

func TestTLSConfigVerificationModes(t *testing.T) {
	full := (&Dialer{VerifyPeer: true, VerifyHost: true}).tlsConfig("example.com")
	assert.False(t, full.InsecureSkipVerify)
	assert.Nil(t, full.VerifyPeerCertificate)
	assert.Equal(t, "example.com", full.ServerName)

	peerOnly := (&Dialer{VerifyPeer: true, VerifyHost: false}).tlsConfig("example.com")
	assert.True(t, peerOnly.InsecureSkipVerify)
	assert.NotNil(t, peerOnly.VerifyPeerCertificate,
		"peer-only mode must keep the manual chain check")

	none := (&Dialer{VerifyPeer: false, VerifyHost: false}).tlsConfig("example.com")
	assert.True(t, none.InsecureSkipVerify)
	assert.Nil(t, none.VerifyPeerCertificate)

	// verify_host without verify_peer is meaningless; peer wins
	hostOnly := (&Dialer{VerifyPeer: false, VerifyHost: true}).tlsConfig("example.com")
	assert.True(t, hostOnly.InsecureSkipVerify)
}
