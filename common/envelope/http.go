package envelope

import (
	"errors"
	"io"
	"net/http"

	"github.com/telhawk-systems/addin-proxy/common/apierror"
)

// DefaultMaxBodyBytes bounds inbound request bodies in server mode.
const DefaultMaxBodyBytes = 6 << 20

// NewHTTPHandler exposes h as an http.Handler.
func NewHTTPHandler(h Handler, responder *Responder, maxBodyBytes int64) http.Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responder.Error(origin, apierror.New(apierror.KindPayloadParse, "Request body too large").
					WithStatus(http.StatusRequestEntityTooLarge)).Write(w)
				return
			}
			responder.Error(origin, apierror.New(apierror.KindPayloadParse, "Failed to read request body")).Write(w)
			return
		}

		req := &Request{
			Method:  r.Method,
			Headers: r.Header.Clone(),
			Body:    body,
		}
		h.Handle(r.Context(), req).Write(w)
	})
}
