package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStatus(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected int
	}{
		{KindCredentialFormat, http.StatusUnauthorized},
		{KindMissingCredentials, http.StatusUnauthorized},
		{KindPayloadParse, http.StatusBadRequest},
		{KindUpstream, http.StatusBadGateway},
		{KindMethodNotAllowed, http.StatusMethodNotAllowed},
		{KindConfiguration, http.StatusInternalServerError},
		{KindInternal, http.StatusInternalServerError},
		{Kind("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, DefaultStatus(tt.kind))
			assert.Equal(t, tt.expected, New(tt.kind, "msg").Status)
		})
	}
}

func TestError_Body(t *testing.T) {
	err := New(KindUpstream, "Collector rejected events").
		WithDetails("HTTP 500: boom").
		With("collectorStatus", 500)

	body := err.Body()
	assert.Equal(t, "Collector rejected events", body["error"])
	assert.Equal(t, "HTTP 500: boom", body["details"])
	assert.Equal(t, 500, body["collectorStatus"])
	assert.Equal(t, "Collector rejected events: HTTP 500: boom", err.Error())
}

func TestError_BodyWithoutDetails(t *testing.T) {
	body := New(KindMissingCredentials, "AWS credentials required").Body()

	assert.Equal(t, "AWS credentials required", body["error"])
	assert.NotContains(t, body, "details")
}

func TestError_FieldsCannotOverrideMessage(t *testing.T) {
	body := New(KindInternal, "real").With("error", "spoofed").Body()
	assert.Equal(t, "real", body["error"])
}

func TestError_WithCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := New(KindUpstream, "Failed to forward events").WithCause(cause)

	assert.Equal(t, cause.Error(), err.Details)
	assert.ErrorIs(t, err, cause)

	explicit := New(KindUpstream, "x").WithDetails("kept").WithCause(cause)
	assert.Equal(t, "kept", explicit.Details)
}

func TestError_WithStatus(t *testing.T) {
	err := New(KindUpstream, "Model invocation failed").WithStatus(http.StatusInternalServerError)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, KindUpstream, err.Kind)
}

func TestFrom(t *testing.T) {
	original := New(KindPayloadParse, "Invalid JSON payload")
	wrapped := fmt.Errorf("handler: %w", original)

	got := From(wrapped)
	require.NotNil(t, got)
	assert.Same(t, original, got)

	internal := From(errors.New("secret-bearing panic text"))
	assert.Equal(t, KindInternal, internal.Kind)
	assert.Equal(t, http.StatusInternalServerError, internal.Status)
	assert.Equal(t, "Internal server error", internal.Message)
	assert.Empty(t, internal.Details)
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("wrap: %w", New(KindConfiguration, "Collector not configured"))

	assert.True(t, IsKind(err, KindConfiguration))
	assert.False(t, IsKind(err, KindUpstream))
	assert.False(t, IsKind(errors.New("plain"), KindInternal))
}
