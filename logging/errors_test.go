package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

type customError struct{}

func (*customError) Error() string { return "custom" }
func (*customError) Type() string  { return "CustomError" }

func TestContextError(t *testing.T) {
	inner := errors.New("refused")
	err := WrapError("dial", inner)

	assert.Equal(t, "dial: refused", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Nil(t, WrapError("dial", nil))
	assert.Nil(t, WrapErrorWithType("dial", nil, "X"))
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("plain"), "errorString"},
		{&fs.PathError{Op: "open", Path: "/x", Err: fs.ErrNotExist}, "PathError"},
		{WrapErrorWithType("op", errors.New("x"), "StorageError"), "StorageError"},
		{WrapError("op", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrNotExist}), "PathError"},
		{fmt.Errorf("wrapped: %w", &customError{}), "CustomError"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorType(tt.err))
	}
}
