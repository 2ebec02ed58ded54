package internal

import "errors"

// ErrSessionClosed is returned, wrapped in the appropriate error kind,
// when a closed session is used.
var ErrSessionClosed = errors.New("session is closed")

// InitError reports a construction-time failure: process-wide engine
// initialization, handle allocation, or invalid configuration. No usable
// session exists when one is returned.
type InitError struct {
	Err error
}

func (e *InitError) Error() string { return "transfer: init: " + e.Err.Error() }
func (e *InitError) Unwrap() error { return e.Err }

// TransferError reports a failed transfer. The engine diagnostic is
// carried verbatim in Err. The session stays valid; the caller may issue
// the next request.
type TransferError struct {
	Err error
}

func (e *TransferError) Error() string { return "transfer: " + e.Err.Error() }
func (e *TransferError) Unwrap() error { return e.Err }
