package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesSentinel(t *testing.T) {
	err := Clone(ErrLinkExpired, "gone since yesterday")
	wrapped := fmt.Errorf("resolve: %w", err)

	assert.True(t, stderrors.Is(wrapped, ErrLinkExpired))
	assert.False(t, stderrors.Is(wrapped, ErrLinkRevoked))
	assert.Equal(t, "gone since yesterday", err.Message)
	assert.Equal(t, "link has expired", ErrLinkExpired.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(stderrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}

func TestUnavailableKeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Unavailable(cause, "")

	assert.True(t, HasCode(err, ErrStoreUnavailable.Code))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
}
