package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := Fetch("https://img.itch.zone/a.png", 503, nil)
	assert.Equal(t, "fetch_error: unexpected status (status 503) [https://img.itch.zone/a.png]", err.Error())

	err = Fetch("https://x.itch.io", 0, stderrors.New("dial tcp: timeout"))
	assert.Contains(t, err.Error(), "request failed")
	assert.Contains(t, err.Error(), "dial tcp: timeout")
}

func TestClassification(t *testing.T) {
	wrapped := fmt.Errorf("listing: %w", NotFound("https://nobody.itch.io", "creator not found"))

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsFetch(wrapped))
	assert.Equal(t, ErrorTypeNotFound, TypeOf(wrapped))

	assert.True(t, IsParse(Parse("u", "bad html", nil)))
	assert.True(t, IsInvalidInput(InvalidInput("bad creator")))
	assert.Equal(t, ErrorTypeCanceled, TypeOf(fmt.Errorf("stop: %w", context.Canceled)))
	assert.Equal(t, ErrorTypeFetch, TypeOf(stderrors.New("boom")))
	assert.Equal(t, ErrorType(""), TypeOf(nil))
}

func TestUnwrap(t *testing.T) {
	inner := context.DeadlineExceeded
	err := Fetch("u", 0, inner)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCanceled(t *testing.T) {
	err := Canceled("https://dev.itch.io", context.Canceled)

	assert.True(t, IsCanceled(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsCanceled(fmt.Errorf("run: %w", context.Canceled)))
	assert.False(t, IsCanceled(Fetch("u", 500, nil)))
}
