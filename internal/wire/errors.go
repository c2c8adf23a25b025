package wire

import (
	"errors"
	"fmt"
	"io"
)

// DataError reports malformed or truncated serialized data.
type DataError struct {
	// Offset is the byte offset at which the problem was detected.
	Offset int64

	// Msg describes what was being read.
	Msg string

	// Err is the underlying I/O error, if any.
	Err error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error at offset %d: %s: %v", e.Offset, e.Msg, e.Err)
	}
	return fmt.Sprintf("data error at offset %d: %s", e.Offset, e.Msg)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// IsDataError returns true if err (or anything it wraps) is a *DataError.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}

// IsTruncated returns true if err reports data that ended early.
func IsTruncated(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}
