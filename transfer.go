// Package transfer is a small synchronous HTTP client: one session owns
// one transfer handle, applies a fixed configuration before every
// request, and accumulates each response into a structured result.
package transfer

import (
	"github.com/transferlib/go-transfer/internal"
)

type Config = internal.Config
type Field = internal.Field
type Response = internal.Response
type Session = internal.Session

type InitError = internal.InitError
type TransferError = internal.TransferError

var ErrSessionClosed = internal.ErrSessionClosed

// New constructs a Session with the given configuration.
func New(cfg Config) (*Session, error) {
	return internal.New(cfg)
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return internal.DefaultConfig()
}
