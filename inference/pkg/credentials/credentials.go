// Package credentials turns the bearer token sent by the add-in into the
// AWS credentials used for one upstream call.
//
// Three token formats are understood, sniffed in this order:
//
//	b64:<base64 of another token>                       one level of indirection
//	aws-credentials:<base64 JSON>                       {"accessKeyId","secretAccessKey","sessionToken"?,"region"?}
//	<accessKeyId>:<secretAccessKey>[:<sessionToken>]    direct
package credentials

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/telhawk-systems/addin-proxy/common/logging"
)

const (
	// IndirectPrefix marks a token whose remainder is a base64-encoded token.
	IndirectPrefix = "b64:"
	// LabeledPrefix marks a token whose remainder is base64-encoded JSON.
	LabeledPrefix = "aws-credentials:"

	// maxDepth counts parse levels: the token itself plus one unwrapped layer.
	maxDepth = 2
)

// Credentials are the per-request upstream credentials. They live for one
// request and are never logged beyond Redacted.
type Credentials struct {
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	SessionToken    string `json:"sessionToken,omitempty"`
	Region          string `json:"region,omitempty"`
}

// Redacted returns the loggable prefix of the access key id.
func (c *Credentials) Redacted() string {
	return logging.RedactPrefix(c.AccessKeyID)
}

// String never prints secret material.
func (c *Credentials) String() string {
	return fmt.Sprintf("Credentials{AccessKeyID: %s}", c.Redacted())
}

// FormatError reports a token that is empty, malformed or incomplete.
// Reason never quotes the token.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "invalid credential format: " + e.Reason
}

func formatErr(format string, args ...any) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// Parse converts a bearer token into Credentials.
func Parse(token string) (*Credentials, error) {
	return parse(token, 1)
}

func parse(token string, depth int) (*Credentials, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, formatErr("empty token")
	}

	switch {
	case strings.HasPrefix(token, IndirectPrefix):
		if depth >= maxDepth {
			return nil, formatErr("nested indirection is not supported")
		}
		decoded, err := decodeBase64(strings.TrimPrefix(token, IndirectPrefix))
		if err != nil {
			return nil, formatErr("indirect token is not valid base64")
		}
		if !utf8.Valid(decoded) {
			return nil, formatErr("indirect token is not valid UTF-8")
		}
		return parse(string(decoded), depth+1)

	case strings.HasPrefix(token, LabeledPrefix):
		return parseLabeled(strings.TrimPrefix(token, LabeledPrefix))

	case strings.Contains(token, ":"):
		return parseDirect(token)
	}

	return nil, formatErr("unrecognized token format")
}

func parseLabeled(segment string) (*Credentials, error) {
	decoded, err := decodeBase64(segment)
	if err != nil {
		return nil, formatErr("labeled token payload is not valid base64")
	}

	var creds Credentials
	if err := json.Unmarshal(decoded, &creds); err != nil {
		return nil, formatErr("labeled token payload is not a JSON object")
	}

	creds.AccessKeyID = strings.TrimSpace(creds.AccessKeyID)
	creds.SecretAccessKey = strings.TrimSpace(creds.SecretAccessKey)
	creds.SessionToken = strings.TrimSpace(creds.SessionToken)
	creds.Region = strings.TrimSpace(creds.Region)

	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return nil, formatErr("labeled token must contain accessKeyId and secretAccessKey")
	}
	if creds.Region != "" && !ValidRegion(creds.Region) {
		return nil, formatErr("labeled token region is not a valid region name")
	}
	return &creds, nil
}

// regionPattern matches region names such as us-east-1 or us-gov-west-1.
// The region becomes part of the upstream host name, so nothing looser is
// accepted.
var regionPattern = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-[0-9]+$`)

// ValidRegion reports whether region is a well-formed region name.
func ValidRegion(region string) bool {
	return len(region) <= 32 && regionPattern.MatchString(region)
}

func parseDirect(token string) (*Credentials, error) {
	parts := strings.Split(token, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, formatErr("expected accessKeyId:secretAccessKey[:sessionToken], got %d parts", len(parts))
	}

	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return nil, formatErr("part %d of the direct token is empty", i+1)
		}
	}

	creds := &Credentials{
		AccessKeyID:     parts[0],
		SecretAccessKey: parts[1],
	}
	if len(parts) == 3 {
		creds.SessionToken = parts[2]
	}
	return creds, nil
}

// decodeBase64 accepts standard and URL-safe alphabets, padded or not.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty base64 segment")
	}

	var lastErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		decoded, err := enc.DecodeString(s)
		if err == nil {
			return decoded, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// EncodeLabeled builds an aws-credentials: token for creds.
func EncodeLabeled(creds Credentials) (string, error) {
	payload, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("marshal credentials: %w", err)
	}
	return LabeledPrefix + base64.StdEncoding.EncodeToString(payload), nil
}

// EncodeDirect builds the colon-delimited token for creds. Region cannot be
// expressed in this format and is dropped.
func EncodeDirect(creds Credentials) string {
	if creds.SessionToken != "" {
		return creds.AccessKeyID + ":" + creds.SecretAccessKey + ":" + creds.SessionToken
	}
	return creds.AccessKeyID + ":" + creds.SecretAccessKey
}

// EncodeIndirect wraps an existing token in one level of indirection.
func EncodeIndirect(token string) string {
	return IndirectPrefix + base64.StdEncoding.EncodeToString([]byte(token))
}
