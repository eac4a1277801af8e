package cli

import (
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/addin-proxy/common/envelope"
	"github.com/telhawk-systems/addin-proxy/inference"
	"github.com/telhawk-systems/addin-proxy/telemetry"
)

// lambdaStart is replaced in tests.
var lambdaStart = lambda.Start

func newLambdaCommand(a *app) *cobra.Command {
	var payloadVersion string

	cmd := &cobra.Command{
		Use:       "lambda inference|telemetry",
		Short:     "Run one proxy as an API Gateway Lambda function",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{inference.ServiceName, telemetry.ServiceName},
		RunE: func(cmd *cobra.Command, args []string) error {
			if payloadVersion != "1.0" && payloadVersion != "2.0" {
				return fmt.Errorf("unsupported payload version %q (supported: 1.0, 2.0)", payloadVersion)
			}
			if err := a.load(); err != nil {
				return err
			}

			handler, closeFn, err := buildProxy(a, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			a.logger.Info("Starting Lambda handler", "proxy", args[0], "payload_version", payloadVersion)
			if payloadVersion == "2.0" {
				lambdaStart(envelope.LambdaV2(handler))
			} else {
				lambdaStart(envelope.LambdaV1(handler))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&payloadVersion, "payload-version", "1.0", "API Gateway payload format version: 1.0 or 2.0")
	return cmd
}

func buildProxy(a *app, name string) (envelope.Handler, func(), error) {
	switch name {
	case inference.ServiceName:
		return inference.NewHandler(a.cfg.Inference, a.responder(), a.logger), func() {}, nil
	case telemetry.ServiceName:
		svc := telemetry.New(a.cfg.Telemetry, a.responder(), a.logger)
		return svc.Handler, func() { _ = svc.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown proxy %q (expected %s or %s)", name, inference.ServiceName, telemetry.ServiceName)
	}
}
