package transport

import (
	"errors"
	"fmt"
)

// TransportError marks a failure of the connection itself. Op names the
// failed operation ("dial", "send", "receive").
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e == nil || e.Err == nil {
		return "transport error"
	}
	return fmt.Sprintf("websocket %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewTransportError wraps err unless it already is a *TransportError.
func NewTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsTransportError(err) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}

func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}
