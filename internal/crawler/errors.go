package crawler

import "errors"

var (
	// ErrUnexpectedStatus is returned when a server answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrInvalidURL is returned when a base URL cannot be parsed or is not HTTP(S).
	ErrInvalidURL = errors.New("invalid URL: expected http or https")

	// ErrInvalidProxyAddress is returned when the proxy address is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)
