package middleware

import (
	"strconv"
	"strings"
)

// CORS response header names.
const (
	HeaderAllowOrigin      = "Access-Control-Allow-Origin"
	HeaderAllowMethods     = "Access-Control-Allow-Methods"
	HeaderAllowHeaders     = "Access-Control-Allow-Headers"
	HeaderMaxAge           = "Access-Control-Max-Age"
	HeaderAllowCredentials = "Access-Control-Allow-Credentials"
)

// CORSConfig holds the CORS policy attached to every proxy response.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age" yaml:"max_age"`
}

// DefaultCORSConfig is the policy used when nothing is configured.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		MaxAge:         86400,
	}
}

// Headers returns the complete CORS header set for a request from origin.
// All five headers are always present, whatever the origin: an allowed origin
// is echoed back, otherwise the wildcard or the first configured origin is used.
// Credentials are never allowed.
func (c CORSConfig) Headers(origin string) map[string]string {
	maxAge := "300"
	if c.MaxAge > 0 {
		maxAge = strconv.Itoa(c.MaxAge)
	}

	headers := map[string]string{
		HeaderAllowOrigin:      c.resolveOrigin(origin),
		HeaderAllowMethods:     strings.Join(c.AllowedMethods, ", "),
		HeaderAllowHeaders:     strings.Join(c.AllowedHeaders, ", "),
		HeaderMaxAge:           maxAge,
		HeaderAllowCredentials: "false",
	}
	if headers[HeaderAllowOrigin] != "*" {
		headers["Vary"] = "Origin"
	}
	return headers
}

func (c CORSConfig) resolveOrigin(origin string) string {
	if len(c.AllowedOrigins) == 0 {
		return "*"
	}

	wildcard := false
	if origin != "" {
		for _, allowed := range c.AllowedOrigins {
			switch {
			case allowed == "*":
				wildcard = true
			case strings.HasPrefix(allowed, "*."):
				// "*.example.com" matches "https://app.example.com"
				if strings.HasSuffix(origin, strings.TrimPrefix(allowed, "*")) {
					return origin
				}
			case origin == allowed:
				return origin
			}
		}
	} else {
		for _, allowed := range c.AllowedOrigins {
			if allowed == "*" {
				wildcard = true
			}
		}
	}

	if wildcard {
		return "*"
	}
	// Browsers reject the response when this does not match their origin.
	return c.AllowedOrigins[0]
}
