package delivery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	transient := &TransportError{Op: "data", Err: errors.New("connection reset")}
	canceled := &TransportError{Op: "rcpt", Err: context.Canceled}

	assert.True(t, IsRetryable(transient))
	assert.True(t, IsRetryable(fmt.Errorf("send: %w", transient)))
	assert.True(t, IsRetryable(errors.New("unclassified provider error")))

	assert.False(t, IsRetryable(canceled))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(context.DeadlineExceeded))
	assert.False(t, IsRetryable(&permanentError{msg: "rejected"}))
}

func TestTransportErrorUnwraps(t *testing.T) {
	cause := errors.New("broken pipe")
	err := &TransportError{Op: "dial", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "dial")
	assert.Contains(t, err.Error(), "broken pipe")
}
