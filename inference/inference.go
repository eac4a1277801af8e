// Package inference assembles the inference proxy: a model-runtime client that
// signs each call with the caller's own credentials, behind the envelope handler.
package inference

import (
	"github.com/telhawk-systems/addin-proxy/common/config"
	"github.com/telhawk-systems/addin-proxy/common/envelope"
	"github.com/telhawk-systems/addin-proxy/common/logging"
	"github.com/telhawk-systems/addin-proxy/inference/internal/bedrock"
	"github.com/telhawk-systems/addin-proxy/inference/internal/handlers"
)

// ServiceName is the value of the service log field.
const ServiceName = "inference"

// NewHandler builds the inference handler from process configuration.
func NewHandler(cfg config.InferenceConfig, responder *envelope.Responder, logger *logging.Logger) envelope.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	client := bedrock.NewClient(bedrock.Config{
		Region:   cfg.Region,
		Endpoint: cfg.Endpoint,
	})
	return handlers.NewInferenceHandler(client, responder, logger.With(logging.Service(ServiceName)), handlers.Config{
		DefaultModelID: cfg.DefaultModelID,
		Timeout:        cfg.Timeout,
	})
}
