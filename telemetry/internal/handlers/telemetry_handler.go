package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/telhawk-systems/addin-proxy/common/apierror"
	"github.com/telhawk-systems/addin-proxy/common/envelope"
	"github.com/telhawk-systems/addin-proxy/common/logging"
	"github.com/telhawk-systems/addin-proxy/common/middleware"
	"github.com/telhawk-systems/addin-proxy/telemetry/internal/collector"
	"github.com/telhawk-systems/addin-proxy/telemetry/internal/metrics"
	"github.com/telhawk-systems/addin-proxy/telemetry/internal/normalizer"
	"github.com/telhawk-systems/addin-proxy/telemetry/pkg/hec"
)

// Forwarder delivers canonical events to the collector.
type Forwarder interface {
	Forward(ctx context.Context, events []hec.Event) (*collector.Result, error)
}

// Mirror receives a copy of every successfully forwarded batch.
type Mirror interface {
	Publish(ctx context.Context, requestID string, events []hec.Event) error
}

type TelemetryHandler struct {
	forwarder Forwarder
	mirror    Mirror
	defaults  normalizer.Defaults
	responder *envelope.Responder
	logger    *logging.Logger
}

// NewTelemetryHandler creates the handler. A nil forwarder means the collector
// is not configured and every request fails with a configuration error; a nil
// mirror disables mirroring.
func NewTelemetryHandler(forwarder Forwarder, mirror Mirror, defaults normalizer.Defaults, responder *envelope.Responder, logger *logging.Logger) *TelemetryHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &TelemetryHandler{
		forwarder: forwarder,
		mirror:    mirror,
		defaults:  defaults,
		responder: responder,
		logger:    logger,
	}
}

// SuccessResponse is the body returned once the collector accepted the events.
type SuccessResponse struct {
	Message           string `json:"message"`
	Count             int    `json:"count"`
	CollectorResponse any    `json:"collectorResponse"`
}

// rawCollectorResponse is reported when the collector reply is not JSON.
type rawCollectorResponse struct {
	Status int    `json:"status"`
	Text   string `json:"text"`
}

// Handle forwards one telemetry request to the collector. A body that
// decodes to an empty array or null is answered 400 "No events supplied", and
// a batch holding an event without a body is answered 400 "Invalid event";
// neither reaches the collector.
func (h *TelemetryHandler) Handle(ctx context.Context, req *envelope.Request) envelope.Response {
	origin := req.Origin()

	if req.IsPreflight() {
		metrics.RequestsTotal.WithLabelValues(metrics.OutcomePreflight).Inc()
		return h.responder.Preflight(origin)
	}

	if h.forwarder == nil {
		metrics.RequestsTotal.WithLabelValues(metrics.OutcomeConfigError).Inc()
		h.logger.ErrorContext(ctx, "telemetry collector not configured", logging.Method(req.Method), logging.Origin(origin))
		return h.responder.Error(origin, apierror.New(apierror.KindConfiguration, "Server configuration error").
			WithDetails("Telemetry collector URL and token must be configured"))
	}

	metrics.EventBytesTotal.Add(float64(len(req.Body)))

	payload, err := decodePayload(req.Body)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(metrics.OutcomeBadRequest).Inc()
		h.logger.WarnContext(ctx, "invalid telemetry payload", logging.Origin(origin), logging.Error(err))
		return h.responder.Error(origin, apierror.New(apierror.KindPayloadParse, "Invalid JSON payload").WithCause(err))
	}

	var events []hec.Event
	if payload != nil {
		events = normalizer.NormalizePayload(payload, h.defaults)
	}
	if len(events) == 0 {
		metrics.RequestsTotal.WithLabelValues(metrics.OutcomeBadRequest).Inc()
		return h.responder.Error(origin, apierror.New(apierror.KindPayloadParse, "No events supplied").
			WithDetails(hec.ErrNoData.Text))
	}
	for i := range events {
		if err := hec.ValidateEvent(events[i]); err != nil {
			metrics.RequestsTotal.WithLabelValues(metrics.OutcomeBadRequest).Inc()
			return h.responder.Error(origin, apierror.New(apierror.KindPayloadParse, "Invalid event").
				WithDetails(fmt.Sprintf("event %d: %s", i, err)))
		}
	}

	start := time.Now()
	result, err := h.forwarder.Forward(ctx, events)
	metrics.ForwardDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(metrics.OutcomeUpstreamError).Inc()
		return h.responder.Error(origin, h.upstreamError(ctx, origin, err))
	}

	metrics.CollectorResponses.WithLabelValues(strconv.Itoa(result.StatusCode)).Inc()
	metrics.EventsForwarded.Add(float64(len(events)))
	metrics.RequestsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()

	h.logger.InfoContext(ctx, "telemetry forwarded",
		logging.Method(req.Method),
		logging.Origin(origin),
		logging.Count(len(events)),
		logging.Status(result.StatusCode))

	h.publishMirror(ctx, events)

	return h.responder.JSON(origin, http.StatusOK, SuccessResponse{
		Message:           "Events forwarded",
		Count:             len(events),
		CollectorResponse: collectorResponse(result),
	})
}

func (h *TelemetryHandler) upstreamError(ctx context.Context, origin string, err error) *apierror.Error {
	var statusErr *collector.StatusError
	if errors.As(err, &statusErr) {
		metrics.CollectorResponses.WithLabelValues(strconv.Itoa(statusErr.StatusCode)).Inc()
		apiErr := apierror.New(apierror.KindUpstream, "Collector rejected events").
			WithDetails(statusErr.Body).
			With("collectorStatus", statusErr.StatusCode)

		attrs := []any{logging.Origin(origin), logging.Status(statusErr.StatusCode)}
		if resp, ok := hec.ParseResponse([]byte(statusErr.Body)); ok {
			apiErr = apiErr.With("collectorCode", resp.Code).With("collectorText", resp.Text)
			attrs = append(attrs, logging.CollectorCode(resp.Code))
		}
		h.logger.ErrorContext(ctx, "collector rejected events", attrs...)
		return apiErr
	}

	h.logger.ErrorContext(ctx, "failed to reach collector", logging.Origin(origin), logging.Error(err))
	return apierror.New(apierror.KindUpstream, "Failed to forward events to collector").WithCause(err)
}

// publishMirror never affects the response.
func (h *TelemetryHandler) publishMirror(ctx context.Context, events []hec.Event) {
	if h.mirror == nil {
		return
	}
	if err := h.mirror.Publish(ctx, middleware.GetRequestID(ctx), events); err != nil {
		metrics.MirrorErrors.Inc()
		h.logger.WarnContext(ctx, "failed to mirror telemetry", logging.Error(err))
	}
}

// decodePayload parses exactly one JSON value, keeping numbers exact.
func decodePayload(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("unexpected end of JSON input")
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid character after top-level value")
	}
	return payload, nil
}

func collectorResponse(result *collector.Result) any {
	if json.Valid(result.Body) {
		return json.RawMessage(result.Body)
	}
	return rawCollectorResponse{Status: result.StatusCode, Text: string(result.Body)}
}

var _ envelope.Handler = (*TelemetryHandler)(nil)
