package internal

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/transferlib/go-transfer/internal/engine"
)

// Field is one header pair; callers supply them in send order and they
// are not deduplicated.
type Field = engine.Field

// Response is the accumulated result of one transfer. After a request
// returns, the Response owns its body and header slices outright — the
// session keeps no reference to them.
type Response struct {
	Status  int
	Body    []byte
	Headers []Field
}

// Session owns one engine handle and runs one synchronous transfer at a
// time. A Session must not be used by concurrent requests; distinct
// sessions are independent and may run on distinct goroutines.
type Session struct {
	h   engine.Handle
	cfg Config

	body   bytes.Buffer
	fields []Field

	closed bool
}

// New constructs a session around a freshly allocated engine handle.
// Process-wide engine initialization happens on the first construction
// in the process; any failure there, in handle allocation, or in config
// validation is reported as *InitError.
func New(cfg Config) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, &InitError{err}
	}
	h, err := engine.New()
	if err != nil {
		return nil, &InitError{err}
	}
	return newSession(cfg, h), nil
}

func newSession(cfg Config, h engine.Handle) *Session {
	s := &Session{h: h, cfg: cfg}
	s.applyBaseline()
	return s
}

// Reconfigure replaces the stored configuration and re-applies the
// baseline to the handle immediately.
func (s *Session) Reconfigure(cfg Config) error {
	if s.closed {
		return ErrSessionClosed
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	s.cfg = cfg
	s.applyBaseline()
	return nil
}

// Get performs an HTTP GET to url with the given header fields.
func (s *Session) Get(ctx context.Context, url string, headers []Field) (*Response, error) {
	if s.closed {
		return nil, &TransferError{ErrSessionClosed}
	}
	s.applyBaseline()
	s.h.Stage(http.MethodGet, url, nil, headers)
	return s.perform(ctx)
}

// Post performs an HTTP POST of body to url. The body is sent with its
// explicit byte length, so embedded zero bytes survive intact; a nil
// body posts zero bytes.
func (s *Session) Post(ctx context.Context, url string, body []byte, headers []Field) (*Response, error) {
	if s.closed {
		return nil, &TransferError{ErrSessionClosed}
	}
	s.applyBaseline()
	s.h.Stage(http.MethodPost, url, body, headers)
	return s.perform(ctx)
}

// Close releases the engine handle. Further calls on the session fail.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.h.Close()
}

// applyBaseline resets the handle to a neutral state and re-applies the
// stored configuration with the accumulator callbacks. It runs before
// every request, not just at construction.
func (s *Session) applyBaseline() {
	s.h.Reset()
	s.h.Apply(engine.Options{
		Callbacks: engine.Callbacks{
			OnBody:       s.onBody,
			OnHeaderLine: s.onHeaderLine,
		},
		Timeout:         time.Duration(s.cfg.TimeoutMS) * time.Millisecond,
		FollowRedirects: s.cfg.FollowRedirects,
		UserAgent:       s.cfg.UserAgent,
		VerifyPeer:      s.cfg.VerifyPeer,
		VerifyHost:      s.cfg.VerifyHost,
	})
}

func (s *Session) perform(ctx context.Context) (*Response, error) {
	s.body.Reset()
	s.fields = nil

	if err := s.h.Perform(ctx); err != nil {
		return nil, &TransferError{err}
	}

	resp := &Response{
		Status:  s.h.StatusCode(),
		Body:    s.body.Bytes(),
		Headers: s.fields,
	}
	// move the accumulators out, the caller owns them now
	s.body = bytes.Buffer{}
	s.fields = nil
	return resp, nil
}

func (s *Session) onBody(b []byte) {
	s.body.Write(b)
}

// onHeaderLine accumulates one raw header-stream line. A status line
// opens a new section and throws away everything gathered so far, which
// is what keeps redirect-hop and interim-response headers out of the
// final Response. Blank section terminators are skipped. Other lines
// split on the first colon with leading blanks trimmed from the value;
// a line with no colon is kept as (line, "").
func (s *Session) onHeaderLine(line []byte) {
	if bytes.HasPrefix(line, []byte("HTTP/")) {
		s.fields = s.fields[:0]
		return
	}
	line = bytes.TrimSuffix(line, []byte("\r\n"))
	if len(line) == 0 {
		return
	}
	name, value, ok := bytes.Cut(line, []byte(":"))
	if !ok {
		s.fields = append(s.fields, Field{Name: string(line)})
		return
	}
	value = bytes.TrimLeft(value, " \t")
	s.fields = append(s.fields, Field{Name: string(name), Value: string(value)})
}
