package llm_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gatekeep-dev/gatekeep/llm"
)

func TestErrorClassification(t *testing.T) {
	base := fmt.Errorf("connection refused")

	transient := llm.NewTransientError(llm.KindTransport, base)
	assert.True(t, llm.IsTransient(transient))
	assert.Equal(t, llm.KindTransport, llm.KindOf(transient))
	assert.ErrorIs(t, transient, base)

	fatal := llm.NewFatalError(llm.KindInvalidResponse, base)
	assert.False(t, llm.IsTransient(fatal))
	assert.Equal(t, llm.KindInvalidResponse, llm.KindOf(fatal))
}

func TestErrorClassification_Wrapped(t *testing.T) {
	inner := llm.NewTransientError(llm.KindRateLimited, fmt.Errorf("429"))
	wrapped := fmt.Errorf("invoke sentinel: %w", inner)

	assert.True(t, llm.IsTransient(wrapped))
	assert.Equal(t, llm.KindRateLimited, llm.KindOf(wrapped))
}

func TestErrorClassification_ForeignError(t *testing.T) {
	err := errors.New("plain")
	assert.False(t, llm.IsTransient(err))
	assert.Equal(t, llm.ErrorKind(""), llm.KindOf(err))
	assert.False(t, llm.IsTransient(nil))
}
