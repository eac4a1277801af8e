package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telhawk-systems/addin-proxy/common/apierror"
	"github.com/telhawk-systems/addin-proxy/common/envelope"
	"github.com/telhawk-systems/addin-proxy/common/middleware"
)

// Routes are the proxy handlers mounted by NewRouter.
type Routes struct {
	Inference envelope.Handler
	Telemetry envelope.Handler
}

// NewRouter constructs a ServeMux with both proxies, health and metrics registered.
func NewRouter(routes Routes, responder *envelope.Responder, maxBodyBytes int64) http.Handler {
	mux := http.NewServeMux()

	if routes.Inference != nil {
		mux.Handle("/inference", envelope.NewHTTPHandler(postOnly(routes.Inference, responder), responder, maxBodyBytes))
	}
	if routes.Telemetry != nil {
		mux.Handle("/telemetry", envelope.NewHTTPHandler(postOnly(routes.Telemetry, responder), responder, maxBodyBytes))
	}

	// Health endpoints
	mux.HandleFunc("/healthz", health)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}

// postOnly rejects anything but POST and preflight with a CORS-carrying 405.
func postOnly(h envelope.Handler, responder *envelope.Responder) envelope.Handler {
	return envelope.HandlerFunc(func(ctx context.Context, req *envelope.Request) envelope.Response {
		if req.Method != http.MethodPost && !req.IsPreflight() {
			resp := responder.Error(req.Origin(), apierror.Errorf(apierror.KindMethodNotAllowed, "Method %s not allowed", req.Method))
			resp.Headers["Allow"] = "POST, OPTIONS"
			return resp
		}
		return h.Handle(ctx, req)
	})
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
