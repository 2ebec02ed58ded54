// Package transport serializes HTTP/1.1 requests and reads responses,
// streaming every raw status/header line to a caller-supplied sink.
package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/transferlib/go-transfer/internal/engine/transport/chunked"
)

// Field is one header pair. Fields are written exactly as given, in the
// order given, with no deduplication.
type Field struct {
	Name  string
	Value string
}

// Request is a fully staged HTTP/1.1 request.
type Request struct {
	Method    string
	U         *url.URL
	Body      []byte
	HasBody   bool // a zero-length body is still a body (Content-Length: 0)
	UserAgent string
	Fields    []Field
}

// WriteRequest writes the request line, headers and body to w.
//
// Host, Content-Length and User-Agent are generated automatically but a
// caller-supplied field of the same name takes their place, matching how
// user header lists override built-in headers in the usual transfer
// engines.
func WriteRequest(w io.Writer, r *Request) error {
	var hasHost, hasCL, hasUA bool
	for _, f := range r.Fields {
		if !httpguts.ValidHeaderFieldName(f.Name) {
			return fmt.Errorf("invalid header field name %q", f.Name)
		}
		if !httpguts.ValidHeaderFieldValue(f.Value) {
			return fmt.Errorf("invalid value for header field %q", f.Name)
		}
		switch {
		case strings.EqualFold(f.Name, "Host"):
			hasHost = true
		case strings.EqualFold(f.Name, "Content-Length"):
			hasCL = true
		case strings.EqualFold(f.Name, "User-Agent"):
			hasUA = true
		}
	}

	header := bufio.NewWriter(w)
	header.WriteString(r.Method)
	header.WriteByte(' ')
	header.WriteString(r.U.RequestURI())
	header.WriteString(" HTTP/1.1\r\n")

	if !hasHost {
		header.WriteString("Host: ")
		header.WriteString(r.U.Host)
		header.WriteString("\r\n")
	}
	if r.HasBody && !hasCL {
		header.WriteString("Content-Length: ")
		header.WriteString(strconv.Itoa(len(r.Body)))
		header.WriteString("\r\n")
	}
	if r.UserAgent != "" && !hasUA {
		header.WriteString("User-Agent: ")
		header.WriteString(r.UserAgent)
		header.WriteString("\r\n")
	}
	for _, f := range r.Fields {
		header.WriteString(f.Name)
		header.WriteString(": ")
		header.WriteString(f.Value)
		header.WriteString("\r\n")
	}
	header.WriteString("\r\n")
	if err := header.Flush(); err != nil {
		return err
	}
	if r.HasBody && len(r.Body) > 0 {
		if _, err := w.Write(r.Body); err != nil {
			return err
		}
	}
	return nil
}

// Head is the parsed status line and header section of one response.
type Head struct {
	Proto      string
	StatusCode int
	Header     http.Header

	ContentLength int64 // -1 when unknown
	Chunked       bool
	KeepAlive     bool
}

// NoBody reports whether the response carries no body regardless of any
// Content-Length header.
func (h *Head) NoBody() bool {
	return h.StatusCode == http.StatusNoContent || h.StatusCode == http.StatusNotModified
}

// Reusable reports whether the connection can go back to the pool once
// the body has been fully read.
func (h *Head) Reusable() bool {
	if !h.KeepAlive {
		return false
	}
	return h.NoBody() || h.Chunked || h.ContentLength >= 0
}

// BodyReader returns a reader delimiting the response body on br.
// A response with neither Content-Length nor chunked framing reads until
// EOF and leaves the connection unusable for a next request.
func (h *Head) BodyReader(br *bufio.Reader) io.Reader {
	switch {
	case h.NoBody():
		return strings.NewReader("")
	case h.Chunked:
		return chunked.NewReader(br)
	case h.ContentLength >= 0:
		return io.LimitReader(br, h.ContentLength)
	default:
		return br
	}
}

// ReadHead reads response sections from br until a final (non-interim)
// status line is seen, forwarding every raw line — status lines, header
// lines and the blank terminators, CRLF included — to onLine. Interim
// 1xx sections (e.g. "100 Continue") are read through.
func ReadHead(br *bufio.Reader, onLine func([]byte)) (*Head, error) {
	for {
		line, err := readLine(br)
		if err != nil {
			return nil, err
		}
		emit(onLine, line)

		head, err := parseStatusLine(line)
		if err != nil {
			return nil, err
		}
		if err := readFields(br, head, onLine); err != nil {
			return nil, err
		}
		// 101 switches protocols and owns the rest of the stream
		if head.StatusCode >= 100 && head.StatusCode < 200 && head.StatusCode != 101 {
			continue
		}
		if err := head.framing(); err != nil {
			return nil, err
		}
		return head, nil
	}
}

func parseStatusLine(line string) (*Head, error) {
	proto, status, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return nil, errors.New("malformed HTTP response")
	}
	status = strings.TrimLeft(status, " ")
	code, _, _ := strings.Cut(status, " ")
	if len(code) != 3 {
		return nil, errors.New("malformed HTTP status code " + code)
	}
	statusCode, err := strconv.Atoi(code)
	if err != nil || statusCode < 0 {
		return nil, errors.New("malformed HTTP status code")
	}
	return &Head{Proto: proto, StatusCode: statusCode, Header: http.Header{}}, nil
}

func readFields(br *bufio.Reader, head *Head, onLine func([]byte)) error {
	for {
		line, err := readLine(br)
		if err != nil {
			return err
		}
		emit(onLine, line)
		if len(line) == 0 {
			return nil
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue // not a field line, nothing for control flow
		}
		key := textproto.CanonicalMIMEHeaderKey(name)
		head.Header[key] = append(head.Header[key], strings.Trim(value, " \t"))
	}
}

// framing resolves body delimitation from the parsed fields.
func (h *Head) framing() error {
	if strings.EqualFold(h.Header.Get("Transfer-Encoding"), "chunked") {
		h.Chunked = true
	}

	h.ContentLength = -1
	contentLens := h.Header["Content-Length"]
	if len(contentLens) > 1 {
		// Hardening against response smuggling, per RFC 7230 section 3.3.2:
		// multiple Content-Length headers must agree.
		first := textproto.TrimString(contentLens[0])
		for _, ct := range contentLens[1:] {
			if first != textproto.TrimString(ct) {
				return fmt.Errorf("message cannot contain multiple Content-Length headers; got %q", contentLens)
			}
		}
		contentLens = contentLens[:1]
	}
	if !h.Chunked && len(contentLens) > 0 {
		n, err := strconv.ParseUint(textproto.TrimString(contentLens[0]), 10, 63)
		if err != nil {
			return fmt.Errorf("bad Content-Length %q", contentLens[0])
		}
		h.ContentLength = int64(n)
	}

	conn := strings.ToLower(h.Header.Get("Connection"))
	switch h.Proto {
	case "HTTP/1.1":
		h.KeepAlive = !strings.Contains(conn, "close")
	case "HTTP/1.0":
		h.KeepAlive = strings.Contains(conn, "keep-alive")
	}
	return nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadSlice('\n')
	if err != nil {
		if err == bufio.ErrBufferFull {
			return "", errors.New("response header line too long")
		}
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}
	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return string(line), nil
}

func emit(onLine func([]byte), line string) {
	if onLine == nil {
		return
	}
	buf := make([]byte, 0, len(line)+2)
	buf = append(buf, line...)
	buf = append(buf, '\r', '\n')
	onLine(buf)
}
