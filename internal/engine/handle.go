package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/transferlib/go-transfer/internal/engine/dialer"
	"github.com/transferlib/go-transfer/internal/engine/transport"
	"github.com/transferlib/go-transfer/utils/netpool"
)

const maxRedirects = 30

type handle struct {
	opts Options

	method  string
	rawURL  string
	body    []byte
	hasBody bool
	fields  []Field

	status int
	closed bool
}

func (h *handle) Reset() {
	*h = handle{closed: h.closed}
}

func (h *handle) Apply(opts Options) {
	h.opts = opts
}

func (h *handle) Stage(method, rawURL string, body []byte, fields []Field) {
	h.method, h.rawURL, h.fields = method, rawURL, fields
	h.body = body
	h.hasBody = body != nil || method == http.MethodPost
	h.status = 0
}

func (h *handle) StatusCode() int { return h.status }

func (h *handle) Close() error {
	h.closed = true
	return nil
}

func (h *handle) Perform(ctx context.Context) error {
	if h.closed {
		return errors.New("handle is closed")
	}
	if h.rawURL == "" {
		return errors.New("no request staged")
	}
	u, err := url.Parse(h.rawURL)
	if err != nil {
		return err
	}

	if h.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, time.Now().Add(h.opts.Timeout))
		defer cancel()
	}

	d := &dialer.Dialer{
		VerifyPeer: h.opts.VerifyPeer,
		VerifyHost: h.opts.VerifyHost,
		RootCAs:    rootCAs,
		Proxy:      proxyFor,
	}

	method, body, hasBody := h.method, h.body, h.hasBody
	for hop := 0; ; hop++ {
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("unsupported scheme %q in %q", u.Scheme, u.String())
		}
		if u.Host == "" {
			return fmt.Errorf("empty host in %q", u.String())
		}
		head, next, err := h.roundTrip(ctx, d, method, u, body, hasBody)
		if err != nil {
			return err
		}
		h.status = head.StatusCode
		if next == nil {
			return nil
		}
		if hop+1 >= maxRedirects {
			return fmt.Errorf("maximum redirects (%d) followed", maxRedirects)
		}
		if m := redirectedMethod(head.StatusCode, method); m != method {
			// the rewritten request is bodiless
			method, body, hasBody = m, nil, false
		}
		u = next
	}
}

// roundTrip runs one hop: connect (or reuse), write the request, stream
// the header section(s) to the header callback and the body to the body
// callback — unless the hop is a redirect about to be followed, whose
// body is drained and discarded.
func (h *handle) roundTrip(ctx context.Context, d *dialer.Dialer, method string, u *url.URL, body []byte, hasBody bool) (*transport.Head, *url.URL, error) {
	conn, err := pools.Get(ctx, h.poolKey(u), func(ctx context.Context) (net.Conn, error) {
		return d.Dial(ctx, u)
	})
	if err != nil {
		return nil, nil, err
	}
	if err := applyDeadline(ctx, conn); err != nil {
		return nil, nil, err
	}

	req := &transport.Request{
		Method:    method,
		U:         u,
		Body:      body,
		HasBody:   hasBody,
		UserAgent: h.opts.UserAgent,
		Fields:    h.fields,
	}
	if err := transport.WriteRequest(conn, req); err != nil {
		conn.Close()
		return nil, nil, err
	}

	br := bufio.NewReaderSize(conn, 64<<10)
	head, err := transport.ReadHead(br, h.opts.OnHeaderLine)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	next := h.redirectTarget(head, u)
	sink := h.opts.OnBody
	if next != nil {
		sink = nil
	}
	if err := drain(head.BodyReader(br), sink); err != nil {
		conn.Close()
		return nil, nil, err
	}

	if head.Reusable() && br.Buffered() == 0 {
		conn.Release()
	} else {
		conn.Close()
	}
	return head, next, nil
}

// poolKey separates pooled connections by destination and, for https,
// by the verification mode they were handshook under: a connection
// accepted with verification relaxed must never serve a verifying
// transfer.
func (h *handle) poolKey(u *url.URL) string {
	key := u.Scheme + "://" + dialer.HostPort(u)
	if u.Scheme == "https" {
		key += "#peer=" + strconv.FormatBool(h.opts.VerifyPeer) +
			",host=" + strconv.FormatBool(h.opts.VerifyHost)
	}
	return key
}

// applyDeadline bounds all I/O on conn by the context deadline. A
// connection that refuses the deadline would run without a timeout, so
// it is discarded instead.
func applyDeadline(ctx context.Context, conn netpool.Conn) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	if err := conn.Raw().SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("set transfer deadline: %w", err)
	}
	return nil
}

func (h *handle) redirectTarget(head *transport.Head, u *url.URL) *url.URL {
	if !h.opts.FollowRedirects {
		return nil
	}
	switch head.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
	default:
		return nil
	}
	loc := head.Header.Get("Location")
	if loc == "" {
		return nil
	}
	next, err := u.Parse(loc)
	if err != nil {
		return nil
	}
	return next
}

// redirectedMethod applies the usual engine rewrite rules: 303 always
// turns into GET, 301/302 rewrite only POST, 307/308 preserve.
func redirectedMethod(status int, method string) string {
	switch status {
	case http.StatusSeeOther:
		if method != http.MethodHead {
			return http.MethodGet
		}
	case http.StatusMovedPermanently, http.StatusFound:
		if method == http.MethodPost {
			return http.MethodGet
		}
	}
	return method
}

func drain(r io.Reader, sink func([]byte)) error {
	buf := make([]byte, 32<<10)
	for {
		n, err := r.Read(buf)
		if n > 0 && sink != nil {
			sink(buf[:n])
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
