package library

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesByCode(t *testing.T) {
	err := newError(CodeOutOfStock, "book %d is out of stock", 3)

	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.NotErrorIs(t, err, ErrDuplicateBorrow)
	assert.Equal(t, "book 3 is out of stock", err.Error())

	wrapped := fmt.Errorf("borrow: %w", err)
	assert.ErrorIs(t, wrapped, ErrOutOfStock)
	assert.Equal(t, CodeOutOfStock, CodeOf(wrapped))
}

func TestStorageFailureUnwraps(t *testing.T) {
	cause := errors.New("disk gone")
	err := storageFailure("borrow", cause)

	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "borrow: disk gone", err.Error())
}

func TestIsRejection(t *testing.T) {
	for _, err := range []error{ErrNotFound, ErrDuplicateBorrow, ErrOutOfStock, ErrReferentialConflict, ErrInvalidStock} {
		assert.True(t, IsRejection(err), "%v", err)
	}
	for _, err := range []error{ErrTransientConflict, ErrStorageFailure, errors.New("plain")} {
		assert.False(t, IsRejection(err), "%v", err)
	}
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}
