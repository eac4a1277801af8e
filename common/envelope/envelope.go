// Package envelope holds the transport-neutral request and response shapes
// both proxies work with. A handler sees a Request and returns a Response;
// adapters translate to and from net/http and API Gateway events.
package envelope

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/telhawk-systems/addin-proxy/common/apierror"
	"github.com/telhawk-systems/addin-proxy/common/middleware"
)

// Request is one inbound proxy request.
type Request struct {
	Method  string
	Headers http.Header
	Body    []byte
}

// Header returns the first value of the named header.
func (r *Request) Header(name string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(name)
}

// Origin returns the browser Origin header.
func (r *Request) Origin() string {
	return r.Header("Origin")
}

// IsPreflight reports whether the request is a CORS preflight.
func (r *Request) IsPreflight() bool {
	return strings.EqualFold(r.Method, http.MethodOptions)
}

// Response is the uniform envelope returned on every code path.
type Response struct {
	StatusCode      int               `json:"statusCode"`
	Headers         map[string]string `json:"headers"`
	Body            string            `json:"body"`
	IsBase64Encoded bool              `json:"isBase64Encoded"`
}

// Write copies the envelope onto an http.ResponseWriter.
func (r Response) Write(w http.ResponseWriter) {
	for k, v := range r.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(r.StatusCode)
	_, _ = w.Write([]byte(r.Body))
}

// DecodeBody unmarshals the JSON body into v.
func (r Response) DecodeBody(v any) error {
	return json.Unmarshal([]byte(r.Body), v)
}

// Handler turns a Request into a Response. Implementations never fail: every
// error is already folded into the returned envelope.
type Handler interface {
	Handle(ctx context.Context, req *Request) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req *Request) Response {
	return f(ctx, req)
}

// Responder builds envelopes carrying the full CORS header set.
type Responder struct {
	cors middleware.CORSConfig
}

// NewResponder returns a Responder applying the given CORS policy.
func NewResponder(cors middleware.CORSConfig) *Responder {
	return &Responder{cors: cors}
}

// JSON builds a response with data marshalled as the body.
func (r *Responder) JSON(origin string, status int, data any) Response {
	headers := r.cors.Headers(origin)
	headers["Content-Type"] = "application/json"

	body, err := json.Marshal(data)
	if err != nil {
		return Response{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers,
			Body:       `{"error":"Failed to encode response"}`,
		}
	}

	return Response{
		StatusCode: status,
		Headers:    headers,
		Body:       string(body),
	}
}

// Error builds the response for err; unclassified errors become a generic 500.
func (r *Responder) Error(origin string, err error) Response {
	apiErr := apierror.From(err)
	return r.JSON(origin, apiErr.Status, apiErr.Body())
}

// Preflight acknowledges a CORS preflight.
func (r *Responder) Preflight(origin string) Response {
	return r.JSON(origin, http.StatusOK, map[string]string{"message": "CORS preflight OK"})
}
