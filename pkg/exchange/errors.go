package exchange

import (
	"errors"
	"fmt"
)

var (
	ErrUnexpectedResponse = errors.New("unexpected exchange response")
	ErrNotSupported       = errors.New("operation not supported by exchange")
)

// ResponseError names the response that could not be interpreted.
type ResponseError struct {
	Op      string
	Field   string
	Payload any
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: missing or invalid %q in response %v", e.Op, e.Field, e.Payload)
}

func (e *ResponseError) Unwrap() error {
	return ErrUnexpectedResponse
}
