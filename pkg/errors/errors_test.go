package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Validation("missing").HTTPStatus)
	assert.Equal(t, http.StatusNotFound, NotFound("gone").HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, Configuration("OPENAI_API_KEY not set").HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, Upstream(stderrors.New("503"), "failed").HTTPStatus)
}

func TestAsAppErrorFindsWrapped(t *testing.T) {
	base := Configuration("IMAGE_API_KEY not set in environment.")
	wrapped := fmt.Errorf("image step: %w", base)

	got := AsAppError(wrapped)
	assert.Same(t, base, got)
	assert.True(t, IsCode(wrapped, CodeConfiguration))
	assert.False(t, IsCode(wrapped, CodeUpstream))
}

func TestDetailsFallsBackToCause(t *testing.T) {
	err := Upstream(stderrors.New("connection refused"), "Failed to contact OpenAI")
	assert.Equal(t, "connection refused", err.Details())

	err.WithDetail("custom")
	assert.Equal(t, "custom", err.Details())

	unknown := AsAppError(stderrors.New("plain"))
	assert.Equal(t, CodeUnknown, unknown.Code)
}
