package dialer

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/url"

	"golang.org/x/net/proxy"

	"github.com/transferlib/go-transfer/internal/engine/transport"
)

func (d *Dialer) dialSocks(ctx context.Context, proxyURL *url.URL, addr string) (net.Conn, error) {
	var auth *proxy.Auth
	if u := proxyURL.User; u != nil {
		pass, _ := u.Password()
		auth = &proxy.Auth{User: u.Username(), Password: pass}
	}
	pd, err := proxy.SOCKS5("tcp", HostPort(proxyURL), auth, &zeroDialer)
	if err != nil {
		return nil, err
	}
	if cd, ok := pd.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, "tcp", addr)
	}
	return pd.Dial("tcp", addr)
}

// dialConnect tunnels to addr through an HTTP proxy with a CONNECT
// request. An https proxy gets its own TLS handshake first.
func (d *Dialer) dialConnect(ctx context.Context, proxyURL *url.URL, addr string) (net.Conn, error) {
	conn, err := zeroDialer.DialContext(ctx, "tcp", HostPort(proxyURL))
	if err != nil {
		return nil, err
	}
	if proxyURL.Scheme == "https" {
		tc := tls.Client(conn, d.tlsConfig(proxyURL.Hostname()))
		if err := tc.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		conn = tc
	}

	connReq := &transport.Request{
		Method: "CONNECT",
		U:      &url.URL{Opaque: addr, Host: addr},
	}
	if auth := proxyURL.User.String(); auth != "" {
		connReq.Fields = []transport.Field{{
			Name:  "Proxy-Authorization",
			Value: "Basic " + base64.StdEncoding.EncodeToString([]byte(auth)),
		}}
	}
	if err := transport.WriteRequest(conn, connReq); err != nil {
		conn.Close()
		return nil, err
	}
	head, err := transport.ReadHead(bufio.NewReader(conn), nil)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if head.StatusCode != 200 {
		conn.Close()
		return nil, fmt.Errorf("proxy server refused tunnel: status %d", head.StatusCode)
	}
	return conn, nil
}
