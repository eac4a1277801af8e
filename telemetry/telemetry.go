// Package telemetry assembles the telemetry proxy: normalization, forwarding
// to the collector and the optional NATS mirror.
package telemetry

import (
	"errors"

	"github.com/telhawk-systems/addin-proxy/common/config"
	"github.com/telhawk-systems/addin-proxy/common/envelope"
	"github.com/telhawk-systems/addin-proxy/common/logging"
	"github.com/telhawk-systems/addin-proxy/telemetry/internal/collector"
	"github.com/telhawk-systems/addin-proxy/telemetry/internal/handlers"
	"github.com/telhawk-systems/addin-proxy/telemetry/internal/mirror"
	"github.com/telhawk-systems/addin-proxy/telemetry/internal/normalizer"
)

// ServiceName is the value of the service log field.
const ServiceName = "telemetry"

// Service is a wired telemetry proxy.
type Service struct {
	Handler envelope.Handler
	nats    *mirror.NATSPublisher
}

// New builds the telemetry proxy. A missing or invalid collector
// configuration does not stop start-up: the handler answers every request
// with a configuration error instead. The mirror is best effort and is
// skipped when NATS cannot be reached.
func New(cfg config.TelemetryConfig, responder *envelope.Responder, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.With(logging.Service(ServiceName))

	svc := &Service{}

	var forwarder handlers.Forwarder
	client, err := collector.New(collector.Config{
		URL:           cfg.Collector.URL,
		Token:         cfg.Collector.Token,
		Timeout:       cfg.Collector.Timeout,
		TLSSkipVerify: cfg.Collector.TLSSkipVerify,
	})
	switch {
	case errors.Is(err, collector.ErrNotConfigured):
		logger.Warn("Telemetry collector not configured; requests will be rejected")
	case err != nil:
		logger.Warn("Invalid telemetry collector configuration; requests will be rejected", logging.Error(err))
	default:
		forwarder = client
		logger.Info("Telemetry collector configured", "endpoint", client.Endpoint())
	}

	var eventMirror handlers.Mirror
	if cfg.Mirror.Enabled {
		natsCfg := mirror.DefaultNATSConfig()
		natsCfg.URL = cfg.Mirror.URL
		publisher, err := mirror.ConnectNATS(natsCfg, logger)
		if err != nil {
			logger.Warn("Telemetry mirror disabled", logging.Error(err))
		} else {
			svc.nats = publisher
			m := mirror.New(publisher, cfg.Mirror.Subject)
			eventMirror = m
			logger.Info("Telemetry mirror enabled", "subject", m.Subject())
		}
	}

	svc.Handler = handlers.NewTelemetryHandler(forwarder, eventMirror, normalizer.Defaults{
		Index:      cfg.Defaults.Index,
		Host:       cfg.Defaults.Host,
		Source:     cfg.Defaults.Source,
		SourceType: cfg.Defaults.SourceType,
	}, responder, logger)

	return svc
}

// Close releases the mirror connection, if any.
func (s *Service) Close() error {
	if s.nats == nil {
		return nil
	}
	return s.nats.Close()
}
