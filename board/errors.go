package board

import (
	"errors"
	"fmt"
)

// mutation attempted without a credential. Raised locally,
// before any request leaves the client.
var ErrUnauthorized = errors.New("operation requires a credential")

// a frame that could not be decoded into an event.
// always non-fatal to the stream.
type DecodeError struct {
	Reason string
}

func (self *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %s", self.Reason)
}

func newDecodeError(format string, a ...any) *DecodeError {
	return &DecodeError{
		Reason: fmt.Sprintf(format, a...),
	}
}

// a non-success response from the collaborator api.
// the message is the server-provided error body when available.
type RequestFailedError struct {
	StatusCode int
	Message    string
}

func (self *RequestFailedError) Error() string {
	if self.Message == "" {
		return fmt.Sprintf("request failed with status %d", self.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", self.StatusCode, self.Message)
}

// a transport-level failure, either on the live connection
// or on a mutation request
type NetworkError struct {
	Op  string
	Err error
}

func (self *NetworkError) Error() string {
	return fmt.Sprintf("network error (%s): %s", self.Op, self.Err)
}

func (self *NetworkError) Unwrap() error {
	return self.Err
}
