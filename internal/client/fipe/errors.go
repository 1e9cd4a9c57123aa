package fipe

import (
	"errors"
	"fmt"
)

// ErrNoPrice is returned when a price lookup succeeds but carries no price.
var ErrNoPrice = errors.New("no price returned")

// ErrorKind classifies a failed FIPE call.
type ErrorKind int

const (
	// KindTransport is a network level failure.
	KindTransport ErrorKind = iota + 1
	// KindHTTPStatus is a non-200 response.
	KindHTTPStatus
	// KindMalformed is a body that could not be decoded into the expected shape.
	KindMalformed
	// KindAPI is an error envelope returned by FIPE with a 200 status.
	KindAPI
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindHTTPStatus:
		return "http_status"
	case KindMalformed:
		return "malformed"
	case KindAPI:
		return "api"
	}
	return "unknown"
}

// Error is returned by every Client operation that fails.
type Error struct {
	// Endpoint is the FIPE endpoint name, e.g. ConsultarModelos.
	Endpoint   string
	Kind       ErrorKind
	StatusCode int
	// Message is FIPE's own error text for KindAPI.
	Message string
	// RawBody is the response body, kept for diagnostics.
	RawBody string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("%s: non-200 response from FIPE API: %d", e.Endpoint, e.StatusCode)
	case KindAPI:
		return fmt.Sprintf("%s: FIPE API error: %s", e.Endpoint, e.Message)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Endpoint, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError returns the *Error wrapped in err, if any.
func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
