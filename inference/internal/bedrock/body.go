package bedrock

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Body is an upstream response body that can be drained into one string.
// Implementations: StringBody, BytesBody, ChunkStream.
type Body interface {
	Drain(ctx context.Context) (string, error)
}

// StringBody is a body that is already text.
type StringBody string

func (b StringBody) Drain(ctx context.Context) (string, error) {
	return string(b), nil
}

// BytesBody is a fully buffered body.
type BytesBody []byte

func (b BytesBody) Drain(ctx context.Context) (string, error) {
	if !utf8.Valid(b) {
		return "", errors.New("response body is not valid UTF-8")
	}
	return string(b), nil
}

// ChunkSource yields response chunks until it returns io.EOF.
type ChunkSource interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// ChunkStream is a body delivered in pieces. Drain reads every chunk before
// decoding, so a multi-byte rune split across chunks is reassembled.
type ChunkStream struct {
	Source ChunkSource
}

func (b ChunkStream) Drain(ctx context.Context) (string, error) {
	defer b.Source.Close()

	var buf bytes.Buffer
	for {
		chunk, err := b.Source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read response stream: %w", err)
		}
		buf.Write(chunk)
	}

	if !utf8.Valid(buf.Bytes()) {
		return "", errors.New("response stream is not valid UTF-8")
	}
	return buf.String(), nil
}

// DecodeJSON parses drained text. A single JSON value is returned as is; a
// sequence of values (one per stream chunk) is returned as a JSON array.
func DecodeJSON(text string) (json.RawMessage, error) {
	dec := json.NewDecoder(strings.NewReader(text))

	var values []json.RawMessage
	for {
		var v json.RawMessage
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode response JSON: %w", err)
		}
		values = append(values, v)
	}

	switch len(values) {
	case 0:
		return nil, errors.New("decode response JSON: empty response body")
	case 1:
		return values[0], nil
	default:
		out, err := json.Marshal(values)
		if err != nil {
			return nil, fmt.Errorf("encode response chunks: %w", err)
		}
		return out, nil
	}
}
