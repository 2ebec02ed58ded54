package internal

import "errors"

// Config is the baseline applied to the session's handle before every
// request. It is replaced wholesale by Reconfigure, never mutated in
// place.
type Config struct {
	// TimeoutMS bounds the whole transfer, redirects included.
	TimeoutMS int64
	// FollowRedirects makes the engine chase Location headers.
	FollowRedirects bool
	// UserAgent is sent when non-empty.
	UserAgent string
	// VerifyPeer validates the server certificate chain.
	VerifyPeer bool
	// VerifyHost additionally requires the certificate to match the
	// requested host name.
	VerifyHost bool
}

// DefaultConfig returns the stock configuration: 15 second timeout,
// redirects followed, full TLS verification, no User-Agent.
func DefaultConfig() Config {
	return Config{
		TimeoutMS:       15000,
		FollowRedirects: true,
		VerifyPeer:      true,
		VerifyHost:      true,
	}
}

func (c Config) validate() error {
	if c.TimeoutMS <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}
