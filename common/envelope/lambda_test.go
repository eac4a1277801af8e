package envelope

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/addin-proxy/common/middleware"
)

type recordingHandler struct {
	req       *Request
	requestID string
}

func (h *recordingHandler) Handle(ctx context.Context, req *Request) Response {
	h.req = req
	h.requestID = middleware.GetRequestID(ctx)
	return NewResponder(middleware.DefaultCORSConfig()).JSON(req.Origin(), http.StatusOK, map[string]string{"ok": "yes"})
}

func TestLambdaV1(t *testing.T) {
	h := &recordingHandler{}
	fn := LambdaV1(h)

	resp, err := fn(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Headers: map[string]string{
			"authorization": "Bearer AKIA123:secret456",
			"origin":        "https://outlook.office.com",
		},
		MultiValueHeaders: map[string][]string{
			"x-forwarded-for": {"10.0.0.1", "10.0.0.2"},
		},
		Body: `{"input":"hi"}`,
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID: "gw-req-1",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"ok":"yes"}`, resp.Body)
	assert.False(t, resp.IsBase64Encoded)
	assert.Equal(t, "false", resp.Headers[middleware.HeaderAllowCredentials])

	require.NotNil(t, h.req)
	assert.Equal(t, "Bearer AKIA123:secret456", h.req.Header("Authorization"))
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, h.req.Headers.Values("X-Forwarded-For"))
	assert.Equal(t, `{"input":"hi"}`, string(h.req.Body))
	assert.Equal(t, "gw-req-1", h.requestID)
}

func TestLambdaV2_Base64Body(t *testing.T) {
	h := &recordingHandler{}
	fn := LambdaV2(h)

	event := events.APIGatewayV2HTTPRequest{
		Headers:         map[string]string{"content-type": "application/json"},
		Body:            base64.StdEncoding.EncodeToString([]byte(`[{"event":"a"}]`)),
		IsBase64Encoded: true,
	}
	event.RequestContext.HTTP.Method = http.MethodOptions
	event.RequestContext.RequestID = "gw-req-2"

	resp, err := fn(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, h.req.IsPreflight())
	assert.Equal(t, `[{"event":"a"}]`, string(h.req.Body))
	assert.Equal(t, "gw-req-2", h.requestID)
}

func TestDecodeEventBody(t *testing.T) {
	assert.Equal(t, []byte("plain"), decodeEventBody("plain", false))
	assert.Equal(t, []byte("hello"), decodeEventBody(base64.StdEncoding.EncodeToString([]byte("hello")), true))
	assert.Equal(t, []byte("%%%"), decodeEventBody("%%%", true))
}
