package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"codeberg.org/mutker/ressmon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	errFactory := errors.New()

	err := errFactory.New(errors.ErrInvalidInterval)
	assert.Equal(t, "Invalid interval value", err.Error())

	err = errFactory.WithData(errors.ErrSourceUnavailable, "memory")
	assert.Equal(t, "Mandatory metric source unavailable: memory", err.Error())

	err = errFactory.Wrap(errors.ErrReadConfig, stderrors.New("boom"))
	assert.Equal(t, "Failed to read config file: boom", err.Error())

	err = errFactory.WithMessage(errors.ErrInternal, "custom")
	assert.Equal(t, "custom", err.Error())
}

func TestErrorIsMatchesCode(t *testing.T) {
	errFactory := errors.New()
	sentinel := errFactory.New(errors.ErrCounterRegression)

	wrapped := fmt.Errorf("tick: %w", errFactory.WithData(errors.ErrCounterRegression, "core 3"))
	assert.True(t, errors.Is(wrapped, sentinel))
	assert.False(t, errors.Is(wrapped, errFactory.New(errors.ErrSourceUnavailable)))
}

func TestCodeOf(t *testing.T) {
	inner := stderrors.New("io")
	err := fmt.Errorf("outer: %w", errors.New().Wrap(errors.ErrWriteConfig, inner))

	code, ok := errors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrWriteConfig, code)
	assert.True(t, errors.Is(err, inner))

	_, ok = errors.CodeOf(inner)
	assert.False(t, ok)
}

func TestGetErrorMessageUnknownCode(t *testing.T) {
	assert.Equal(t, "mystery", errors.GetErrorMessage(errors.ErrorCode("mystery")))
}
