package content

import (
	"errors"
	"fmt"
)

// ErrMalformed marks a single record that could not be turned into a Post.
// List calls skip such records; GetPost reports them inside a StoreError.
var ErrMalformed = errors.New("malformed post")

// StoreError is returned when the backing source cannot be read: the content
// directory is missing, a query fails or a record is malformed.
type StoreError struct {
	Op     string // store operation, e.g. "list" or "get"
	Source string // "fs", "sqlite" or "postgres"
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("content: %s %s: %v", e.Source, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err is, or wraps, a *StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

func storeErr(source, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Source: source, Err: err}
}
