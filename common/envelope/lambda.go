package envelope

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/telhawk-systems/addin-proxy/common/middleware"
)

// LambdaV1 adapts h to API Gateway REST (payload format 1.0) proxy events.
func LambdaV1(h Handler) func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		headers := make(http.Header)
		for k, values := range event.MultiValueHeaders {
			for _, v := range values {
				headers.Add(k, v)
			}
		}
		for k, v := range event.Headers {
			headers.Set(k, v)
		}

		ctx = middleware.WithRequestID(ctx, event.RequestContext.RequestID)
		resp := h.Handle(ctx, &Request{
			Method:  event.HTTPMethod,
			Headers: headers,
			Body:    decodeEventBody(event.Body, event.IsBase64Encoded),
		})

		return events.APIGatewayProxyResponse{
			StatusCode:      resp.StatusCode,
			Headers:         resp.Headers,
			Body:            resp.Body,
			IsBase64Encoded: resp.IsBase64Encoded,
		}, nil
	}
}

// LambdaV2 adapts h to API Gateway HTTP API (payload format 2.0) events.
func LambdaV2(h Handler) func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return func(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		headers := make(http.Header)
		for k, v := range event.Headers {
			headers.Set(k, v)
		}

		ctx = middleware.WithRequestID(ctx, event.RequestContext.RequestID)
		resp := h.Handle(ctx, &Request{
			Method:  event.RequestContext.HTTP.Method,
			Headers: headers,
			Body:    decodeEventBody(event.Body, event.IsBase64Encoded),
		})

		return events.APIGatewayV2HTTPResponse{
			StatusCode:      resp.StatusCode,
			Headers:         resp.Headers,
			Body:            resp.Body,
			IsBase64Encoded: resp.IsBase64Encoded,
		}, nil
	}
}

// decodeEventBody undoes the gateway's base64 wrapping. A body that claims to
// be base64 but is not is passed through and fails later as bad JSON.
func decodeEventBody(body string, isBase64 bool) []byte {
	if !isBase64 {
		return []byte(body)
	}
	decoded, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return []byte(body)
	}
	return decoded
}
