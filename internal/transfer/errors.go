package transfer

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord matches every *MalformedRecordError via errors.Is.
var ErrMalformedRecord = errors.New("malformed log record")

var errTopicTooLong = errors.New("topic exceeds 32 bytes")

// MalformedRecordError reports a four-topic record whose topic or timestamp
// field is not a valid hex number.
type MalformedRecordError struct {
	Index int
	Field string
	Value string
	Err   error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("record %d: invalid %s %q: %v", e.Index, e.Field, e.Value, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}
