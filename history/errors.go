package history

import (
	"errors"
	"fmt"
)

// ErrKeyNotFound indicates the requested key does not exist.
var ErrKeyNotFound = errors.New("history: key not found")

// SerializationError wraps JSON marshaling/unmarshaling errors with context.
type SerializationError struct {
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("history: serialization error for key %q: %v", e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}
