package logging

import "log/slog"

// Common field names for consistent logging across both proxies.
const (
	FieldService    = "service"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldOrigin     = "origin"
	FieldStatus     = "status"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldCredential = "access_key_prefix"
	FieldModelID    = "model_id"
	FieldCount      = "count"

	FieldCollectorCode = "collector_code"
)

// credentialPrefixLen is how much of an access key id may appear in a log line.
const credentialPrefixLen = 4

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Origin returns a slog attribute for the browser Origin header.
func Origin(origin string) slog.Attr {
	return slog.String(FieldOrigin, origin)
}

// CollectorCode returns a slog attribute for a collector acknowledgement code.
func CollectorCode(code int) slog.Attr {
	return slog.Int(FieldCollectorCode, code)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// ModelID returns a slog attribute for the upstream model identifier.
func ModelID(id string) slog.Attr {
	return slog.String(FieldModelID, id)
}

// Count returns a slog attribute for a number of items.
func Count(n int) slog.Attr {
	return slog.Int(FieldCount, n)
}

// CredentialPrefix returns a slog attribute carrying only the first few
// characters of an access key id followed by an ellipsis.
func CredentialPrefix(accessKeyID string) slog.Attr {
	return slog.String(FieldCredential, RedactPrefix(accessKeyID))
}

// RedactPrefix keeps at most four leading characters of s.
func RedactPrefix(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	if len(r) <= credentialPrefixLen {
		return "***"
	}
	return string(r[:credentialPrefixLen]) + "..."
}
