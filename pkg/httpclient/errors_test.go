package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/otonielcp/eagles-fc-website-sub000/pkg/errors"
)

func responseWithBody(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseResponseError_StructuredNotFound(t *testing.T) {
	resp := responseWithBody(http.StatusNotFound, `{"error":{"code":"NOT_FOUND","message":"cart not found"}}`)

	err := ParseResponseError(resp, "cart")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestParseResponseError_StructuredBadRequest(t *testing.T) {
	resp := responseWithBody(http.StatusBadRequest, `{"error":{"code":"INVALID_INPUT","message":"bad payload"}}`)

	err := ParseResponseError(resp, "cart")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "cart: bad payload")
}

func TestParseResponseError_StructuredServiceUnavailable(t *testing.T) {
	resp := responseWithBody(http.StatusServiceUnavailable, `{"error":{"code":"SERVICE_UNAVAILABLE","message":"maintenance"}}`)

	err := ParseResponseError(resp, "cart")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))
}

func TestParseResponseError_UnstructuredBody(t *testing.T) {
	resp := responseWithBody(http.StatusBadGateway, "upstream exploded")

	err := ParseResponseError(resp, "cart")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cart returned status 502")
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestParseResponseError_Structured5xx(t *testing.T) {
	resp := responseWithBody(http.StatusInternalServerError, `{"error":{"code":"INTERNAL_ERROR","message":"boom"}}`)

	err := ParseResponseError(resp, "cart")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cart server error")
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(http.StatusBadRequest))
	assert.True(t, IsClientError(http.StatusConflict))
	assert.False(t, IsClientError(http.StatusOK))
	assert.False(t, IsClientError(http.StatusInternalServerError))
}
