package envelope

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/addin-proxy/common/apierror"
	"github.com/telhawk-systems/addin-proxy/common/middleware"
)

func assertCORS(t *testing.T, headers map[string]string) {
	t.Helper()
	for _, name := range []string{
		middleware.HeaderAllowOrigin,
		middleware.HeaderAllowMethods,
		middleware.HeaderAllowHeaders,
		middleware.HeaderMaxAge,
		middleware.HeaderAllowCredentials,
	} {
		assert.NotEmpty(t, headers[name], "missing %s", name)
	}
}

func TestResponder_JSON(t *testing.T) {
	r := NewResponder(middleware.DefaultCORSConfig())

	resp := r.JSON("https://outlook.office.com", http.StatusOK, map[string]int{"count": 3})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"count":3}`, resp.Body)
	assert.False(t, resp.IsBase64Encoded)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assertCORS(t, resp.Headers)
}

func TestResponder_JSONEncodeFailure(t *testing.T) {
	r := NewResponder(middleware.DefaultCORSConfig())

	resp := r.JSON("", http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, resp.Body, "Failed to encode response")
	assertCORS(t, resp.Headers)
}

func TestResponder_Error(t *testing.T) {
	r := NewResponder(middleware.DefaultCORSConfig())

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "classified error",
			err:            apierror.New(apierror.KindMissingCredentials, "AWS credentials required"),
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "AWS credentials required",
		},
		{
			name:           "unclassified error is hidden",
			err:            errors.New("runtime detail"),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := r.Error("https://outlook.office.com", tt.err)

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			assertCORS(t, resp.Headers)

			var body map[string]any
			require.NoError(t, resp.DecodeBody(&body))
			assert.Equal(t, tt.expectedError, body["error"])
			assert.NotContains(t, resp.Body, "runtime detail")
		})
	}
}

func TestResponder_Preflight(t *testing.T) {
	resp := NewResponder(middleware.DefaultCORSConfig()).Preflight("https://outlook.office.com")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assertCORS(t, resp.Headers)
}

func TestRequest_Helpers(t *testing.T) {
	req := &Request{Method: "options", Headers: http.Header{}}
	req.Headers.Set("origin", "https://outlook.office.com")

	assert.True(t, req.IsPreflight())
	assert.Equal(t, "https://outlook.office.com", req.Origin())

	empty := &Request{Method: http.MethodPost}
	assert.False(t, empty.IsPreflight())
	assert.Empty(t, empty.Header("Authorization"))
}

func TestNewHTTPHandler(t *testing.T) {
	var seen *Request
	h := HandlerFunc(func(ctx context.Context, req *Request) Response {
		seen = req
		return NewResponder(middleware.DefaultCORSConfig()).JSON(req.Origin(), http.StatusAccepted, map[string]string{"ok": "yes"})
	})

	srv := httptest.NewServer(NewHTTPHandler(h, NewResponder(middleware.DefaultCORSConfig()), 0))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(`{"a":1}`))
	require.NoError(t, err)
	req.Header.Set("Origin", "https://outlook.office.com")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.JSONEq(t, `{"ok":"yes"}`, string(body))
	assert.Equal(t, "*", resp.Header.Get(middleware.HeaderAllowOrigin))

	require.NotNil(t, seen)
	assert.Equal(t, http.MethodPost, seen.Method)
	assert.Equal(t, `{"a":1}`, string(seen.Body))
}

func TestNewHTTPHandler_BodyTooLarge(t *testing.T) {
	called := false
	h := HandlerFunc(func(ctx context.Context, req *Request) Response {
		called = true
		return Response{StatusCode: http.StatusOK}
	})

	handler := NewHTTPHandler(h, NewResponder(middleware.DefaultCORSConfig()), 8)

	req := httptest.NewRequest(http.MethodPost, "/telemetry", strings.NewReader(`{"too":"large"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(middleware.HeaderAllowOrigin))
}
