package protocol

import (
	"errors"
	"fmt"
)

// EncodingError reports a frame that could not be turned into an audio message.
type EncodingError struct {
	FrameLen int
	Err      error
}

func (e *EncodingError) Error() string {
	if e == nil || e.Err == nil {
		return "encoding error"
	}
	return fmt.Sprintf("encode frame (%d bytes): %v", e.FrameLen, e.Err)
}

func (e *EncodingError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func IsEncodingError(err error) bool {
	var target *EncodingError
	return errors.As(err, &target)
}

// ProtocolError reports an inbound message the client cannot interpret.
// Payload holds the offending message as received.
type ProtocolError struct {
	Payload []byte
	Err     error
}

func (e *ProtocolError) Error() string {
	if e == nil || e.Err == nil {
		return "protocol error"
	}
	return fmt.Sprintf("malformed message %s: %v", truncate(e.Payload, 64), e.Err)
}

func (e *ProtocolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func IsProtocolError(err error) bool {
	var target *ProtocolError
	return errors.As(err, &target)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return fmt.Sprintf("%q", b)
	}
	return fmt.Sprintf("%q...", b[:n])
}
