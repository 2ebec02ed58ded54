// Package engine is the transfer engine behind a session: handle-based,
// one synchronous transfer at a time, reporting response bytes through
// registered write callbacks.
package engine

import (
	"context"
	"crypto/x509"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/http/httpproxy"

	"github.com/transferlib/go-transfer/internal/engine/transport"
	"github.com/transferlib/go-transfer/utils/netpool"
)

type Field = transport.Field

// Callbacks receive the response as it arrives. OnHeaderLine gets every
// raw status/header line (CRLF included, blank terminators included) of
// every response section on the transfer, OnBody gets the final body in
// arrival order. Buffers are only valid for the duration of the call.
type Callbacks struct {
	OnBody       func([]byte)
	OnHeaderLine func([]byte)
}

// Options is the baseline configuration applied to a handle before a
// request is staged.
type Options struct {
	Callbacks
	Timeout         time.Duration
	FollowRedirects bool
	UserAgent       string
	VerifyPeer      bool
	VerifyHost      bool
}

// Handle is one transfer context. It is reusable across sequential
// transfers and must not be shared by concurrent ones.
type Handle interface {
	// Reset drops all applied options and staged request state.
	Reset()
	// Apply sets the baseline options.
	Apply(opts Options)
	// Stage sets the per-request parameters for the next Perform.
	Stage(method, rawURL string, body []byte, fields []Field)
	// Perform runs the staged transfer synchronously.
	Perform(ctx context.Context) error
	// StatusCode returns the final status code of the last Perform.
	StatusCode() int
	Close() error
}

var (
	initOnce sync.Once
	initErr  error

	rootCAs  *x509.CertPool
	proxyFor func(*url.URL) (*url.URL, error)

	pools = netpool.NewGroup(100, 80, 90*time.Second)
)

// Init runs the process-wide engine initialization: the system root CA
// pool and the environment proxy configuration are loaded exactly once,
// no matter how many sessions are constructed concurrently. The error is
// sticky: once initialization fails, every caller sees the failure.
func Init() error {
	initOnce.Do(func() {
		roots, err := x509.SystemCertPool()
		if err != nil {
			initErr = fmt.Errorf("load system root CAs: %w", err)
			return
		}
		rootCAs = roots
		proxyFor = httpproxy.FromEnvironment().ProxyFunc()
	})
	return initErr
}

// New allocates a fresh handle, initializing the engine on first use.
func New() (Handle, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	return &handle{}, nil
}
