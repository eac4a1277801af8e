package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/telhawk-systems/addin-proxy/common/apierror"
	"github.com/telhawk-systems/addin-proxy/common/envelope"
	"github.com/telhawk-systems/addin-proxy/common/logging"
	"github.com/telhawk-systems/addin-proxy/inference/internal/bedrock"
	"github.com/telhawk-systems/addin-proxy/inference/internal/metrics"
	"github.com/telhawk-systems/addin-proxy/inference/pkg/credentials"
)

const bearerPrefix = "Bearer "

// Config holds the process-scoped settings of the inference proxy.
type Config struct {
	DefaultModelID string
	Timeout        time.Duration
}

type InferenceHandler struct {
	invoker   bedrock.Invoker
	responder *envelope.Responder
	logger    *logging.Logger
	cfg       Config
}

func NewInferenceHandler(invoker bedrock.Invoker, responder *envelope.Responder, logger *logging.Logger, cfg Config) *InferenceHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &InferenceHandler{
		invoker:   invoker,
		responder: responder,
		logger:    logger,
		cfg:       cfg,
	}
}

// Handle proxies one model invocation using the caller's own credentials.
func (h *InferenceHandler) Handle(ctx context.Context, req *envelope.Request) envelope.Response {
	origin := req.Origin()

	if req.IsPreflight() {
		metrics.RequestsTotal.WithLabelValues(metrics.OutcomePreflight).Inc()
		return h.responder.Preflight(origin)
	}

	token, ok := bearerToken(req.Header("Authorization"))
	if !ok {
		metrics.RequestsTotal.WithLabelValues(metrics.OutcomeMissingCredentials).Inc()
		h.logger.WarnContext(ctx, "inference request without credentials",
			logging.Method(req.Method), logging.Origin(origin))
		return h.responder.Error(origin, apierror.New(apierror.KindMissingCredentials, "AWS credentials required").
			WithDetails("Send Authorization: Bearer <accessKeyId:secretAccessKey[:sessionToken]>"))
	}

	creds, err := credentials.Parse(token)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(metrics.OutcomeInvalidCredentials).Inc()
		h.logger.WarnContext(ctx, "inference request with malformed credentials",
			logging.Method(req.Method), logging.Origin(origin), logging.Error(err))
		return h.responder.Error(origin, apierror.New(apierror.KindCredentialFormat, "Invalid AWS credentials format").
			WithCause(err))
	}

	in := h.buildInput(req.Body)

	h.logger.InfoContext(ctx, "invoking model",
		logging.Method(req.Method),
		logging.Origin(origin),
		logging.CredentialPrefix(creds.AccessKeyID),
		logging.ModelID(in.ModelID))

	result, err := h.invoke(ctx, creds, in)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(metrics.OutcomeUpstreamError).Inc()
		metrics.UpstreamErrors.Inc()
		h.logger.ErrorContext(ctx, "model invocation failed",
			logging.Origin(origin),
			logging.CredentialPrefix(creds.AccessKeyID),
			logging.ModelID(in.ModelID),
			logging.Error(err))
		return h.responder.Error(origin, apierror.New(apierror.KindUpstream, "Model invocation failed").
			WithStatus(http.StatusInternalServerError).
			WithCause(err))
	}

	metrics.RequestsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return h.responder.JSON(origin, http.StatusOK, result)
}

// invoke performs the single upstream call and fully drains its body before
// the timeout elapses.
func (h *InferenceHandler) invoke(ctx context.Context, creds *credentials.Credentials, in bedrock.InvokeInput) (json.RawMessage, error) {
	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}

	mode := "invoke"
	if in.Stream {
		mode = "stream"
	}
	start := time.Now()
	defer func() {
		metrics.UpstreamDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}()

	body, err := h.invoker.Invoke(ctx, creds, in)
	if err != nil {
		return nil, err
	}
	text, err := body.Drain(ctx)
	if err != nil {
		return nil, err
	}
	return bedrock.DecodeJSON(text)
}

// buildInput extracts the routing keys from a JSON object body and passes the
// rest through untouched. Anything that is not a JSON object is forwarded as is
// to the default model.
func (h *InferenceHandler) buildInput(body []byte) bedrock.InvokeInput {
	in := bedrock.InvokeInput{
		ModelID: h.cfg.DefaultModelID,
		Body:    body,
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return in
	}

	if raw, ok := fields["modelId"]; ok {
		var modelID string
		if json.Unmarshal(raw, &modelID) == nil && strings.TrimSpace(modelID) != "" {
			in.ModelID = strings.TrimSpace(modelID)
		}
		delete(fields, "modelId")
	}
	if raw, ok := fields["stream"]; ok {
		var stream bool
		if json.Unmarshal(raw, &stream) == nil {
			in.Stream = stream
		}
		delete(fields, "stream")
	}

	forwarded, err := json.Marshal(fields)
	if err != nil {
		return in
	}
	in.Body = forwarded
	return in
}

func bearerToken(header string) (string, bool) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

var _ envelope.Handler = (*InferenceHandler)(nil)
