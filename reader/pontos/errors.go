package pontos

import "errors"

var (
	// ErrTransport marks network failures and non-2xx responses.
	ErrTransport = errors.New("pontos transport error")
	// ErrUnauthorized is wrapped together with ErrTransport when the hub
	// rejects the token.
	ErrUnauthorized = errors.New("pontos token rejected")
	// ErrDecode marks response bodies that do not match the expected rows.
	ErrDecode = errors.New("pontos decode error")
)

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsDecode reports whether err is a decode failure.
func IsDecode(err error) bool {
	return errors.Is(err, ErrDecode)
}
