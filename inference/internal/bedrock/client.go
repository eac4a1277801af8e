// Package bedrock calls the managed inference API with credentials supplied
// by the caller of each request.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/telhawk-systems/addin-proxy/inference/pkg/credentials"
)

// InvokeInput describes one model invocation.
type InvokeInput struct {
	ModelID string
	Body    []byte
	Stream  bool
}

// Invoker performs a single upstream call. It never retries.
type Invoker interface {
	Invoke(ctx context.Context, creds *credentials.Credentials, in InvokeInput) (Body, error)
}

// Config holds process-scoped settings for the upstream client.
type Config struct {
	Region   string
	Endpoint string
}

// Client invokes models through the bedrock runtime API. A new SDK client is
// built per call because the credentials belong to the request.
type Client struct {
	region     string
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	return &Client{
		region:     cfg.Region,
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{},
	}
}

func (c *Client) runtime(creds *credentials.Credentials) *bedrockruntime.Client {
	region := c.region
	if creds.Region != "" {
		region = creds.Region
	}

	opts := bedrockruntime.Options{
		Region:      region,
		Credentials: awscreds.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
		Retryer:     aws.NopRetryer{},
		HTTPClient:  c.httpClient,
	}
	if c.endpoint != "" {
		opts.BaseEndpoint = aws.String(c.endpoint)
	}
	return bedrockruntime.New(opts)
}

// Invoke calls the model. The returned Body must be drained within ctx.
func (c *Client) Invoke(ctx context.Context, creds *credentials.Credentials, in InvokeInput) (Body, error) {
	if creds == nil {
		return nil, errors.New("no credentials supplied")
	}
	if creds.Region != "" && !credentials.ValidRegion(creds.Region) {
		return nil, errors.New("credentials carry an invalid region")
	}
	rt := c.runtime(creds)

	if in.Stream {
		out, err := rt.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
			ModelId:     aws.String(in.ModelID),
			Body:        in.Body,
			ContentType: aws.String("application/json"),
			Accept:      aws.String("application/json"),
		})
		if err != nil {
			return nil, describeError(err)
		}
		return ChunkStream{Source: &eventStreamSource{stream: out.GetStream()}}, nil
	}

	out, err := rt.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(in.ModelID),
		Body:        in.Body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, describeError(err)
	}
	return BytesBody(out.Body), nil
}

// describeError reduces SDK errors to code and message, dropping request
// metadata and signing details.
func describeError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.New("upstream request timed out")
	}
	return err
}

type eventStreamSource struct {
	stream *bedrockruntime.InvokeModelWithResponseStreamEventStream
}

func (s *eventStreamSource) Next(ctx context.Context) ([]byte, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev, ok := <-s.stream.Events():
			if !ok {
				if err := s.stream.Err(); err != nil {
					return nil, describeError(err)
				}
				return nil, io.EOF
			}
			if chunk, ok := ev.(*types.ResponseStreamMemberChunk); ok {
				return chunk.Value.Bytes, nil
			}
		}
	}
}

func (s *eventStreamSource) Close() error {
	return s.stream.Close()
}
