package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery rejects empty/malformed queries before any retrieval.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrRetrievalFailed means every source failed for every query variant.
	ErrRetrievalFailed = errors.New("retrieval failed")
	ErrRecordNotFound  = errors.New("corpus record not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrTemporary       = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
