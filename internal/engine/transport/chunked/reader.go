// Package chunked decodes "Transfer-Encoding: chunked" response bodies.
package chunked

import (
	"bufio"
	"errors"
	"io"
)

var (
	ErrLineTooLong = errors.New("chunked: chunk size line too long")
	ErrBadFraming  = errors.New("chunked: malformed chunk framing")
)

// NewReader returns a Reader that yields the de-chunked body. When the
// terminal zero-size chunk is reached the Reader consumes any trailer
// section up to and including the blank line, so a keep-alive connection
// is left positioned at the next response.
func NewReader(r io.Reader) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{br: br}
}

type Reader struct {
	br        *bufio.Reader
	remaining int64
	done      bool
	err       error
}

func (c *Reader) Read(p []byte) (n int, err error) {
	if c.err != nil {
		return 0, c.err
	}
	if c.done {
		return 0, io.EOF
	}
	if c.remaining == 0 {
		if err := c.beginChunk(); err != nil {
			c.err = err
			return 0, err
		}
		if c.done {
			return 0, io.EOF
		}
	}
	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err = io.ReadFull(c.br, p)
	c.remaining -= int64(n)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			err = io.ErrUnexpectedEOF
		}
		c.err = err
		return n, err
	}
	if c.remaining == 0 {
		if err := c.readCRLF(); err != nil {
			c.err = err
			return n, err
		}
	}
	return n, nil
}

func (c *Reader) beginChunk() error {
	line, err := c.readLine()
	if err != nil {
		return err
	}
	// chunk extensions after ';' are ignored
	for i, b := range line {
		if b == ';' {
			line = line[:i]
			break
		}
	}
	size, err := parseHex(line)
	if err != nil {
		return err
	}
	if size == 0 {
		c.done = true
		return c.skipTrailer()
	}
	c.remaining = size
	return nil
}

func (c *Reader) skipTrailer() error {
	for {
		line, err := c.readLine()
		if err != nil {
			return err
		}
		if len(line) == 0 {
			return nil
		}
	}
}

func (c *Reader) readCRLF() error {
	cr, err := c.br.ReadByte()
	if err != nil {
		return unexpectedEOF(err)
	}
	lf, err := c.br.ReadByte()
	if err != nil {
		return unexpectedEOF(err)
	}
	if cr != '\r' || lf != '\n' {
		return ErrBadFraming
	}
	return nil
}

func (c *Reader) readLine() ([]byte, error) {
	line, err := c.br.ReadSlice('\n')
	if err != nil {
		if err == bufio.ErrBufferFull {
			return nil, ErrLineTooLong
		}
		return nil, unexpectedEOF(err)
	}
	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, nil
}

func parseHex(line []byte) (int64, error) {
	// 15 digits keep the size below 1<<60; a 16th digit could shift the
	// sign bit in and turn the size negative
	if len(line) == 0 || len(line) > 15 {
		return 0, ErrBadFraming
	}
	var size int64
	for _, b := range line {
		switch {
		case '0' <= b && b <= '9':
			b = b - '0'
		case 'a' <= b && b <= 'f':
			b = b - 'a' + 10
		case 'A' <= b && b <= 'F':
			b = b - 'A' + 10
		default:
			return 0, ErrBadFraming
		}
		size = size<<4 | int64(b)
	}
	return size, nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
