package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewValidationError("group column is not categorical"),
			expected: "[VALIDATION] group column is not categorical",
		},
		{
			name:     "with cause",
			err:      NewParsingError("read csv", fmt.Errorf("line 3: wrong number of fields")),
			expected: "[PARSING] read csv: line 3: wrong number of fields",
		},
		{
			name:     "not found",
			err:      NewNotFoundError("column bill_length_mm"),
			expected: "[NOT_FOUND] column bill_length_mm not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewStorageError("write figure", cause)

	assert.True(t, stderrors.Is(err, cause))

	wrapped := fmt.Errorf("render stage: %w", err)
	var appErr *AppError
	assert.True(t, stderrors.As(wrapped, &appErr))
	assert.Equal(t, ErrTypeStorage, appErr.Type)
}

func TestAppError_WithContext(t *testing.T) {
	err := NewComputationError("scale", nil).WithContext("column", "body_mass_g")
	assert.Equal(t, "body_mass_g", err.Context["column"])

	bare := &AppError{Type: ErrTypeConfig}
	bare.WithContext("key", 1)
	assert.Equal(t, 1, bare.Context["key"])
}

func TestIsType(t *testing.T) {
	inner := NewComputationError("svd did not converge", nil)
	outer := NewRenderError("biplot", inner)
	wrapped := fmt.Errorf("stage render: %w", outer)

	assert.True(t, IsType(wrapped, ErrTypeRender))
	assert.True(t, IsType(wrapped, ErrTypeComputation))
	assert.False(t, IsType(wrapped, ErrTypeParsing))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrTypeRender))
	assert.False(t, IsType(nil, ErrTypeRender))

	assert.Equal(t, ErrTypeRender, TypeOf(wrapped))
	assert.Equal(t, ErrorType(""), TypeOf(fmt.Errorf("plain")))
}
