// Package cli implements the addin-proxy command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/addin-proxy/common/config"
	"github.com/telhawk-systems/addin-proxy/common/envelope"
	"github.com/telhawk-systems/addin-proxy/common/logging"
)

// Version is set at build time.
var Version = "0.1.0"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *logging.Logger
}

func (a *app) load() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(a.logger)
	return nil
}

func (a *app) responder() *envelope.Responder {
	return envelope.NewResponder(a.cfg.CORS)
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "addin-proxy",
		Short: "Backend proxies for the Outlook add-in",
		Long: `addin-proxy hosts the two backend proxies used by the Outlook add-in:

  inference  forwards model invocations using the caller's own cloud credentials
  telemetry  forwards add-in telemetry to the HTTP Event Collector

Run both behind one HTTP listener with "serve", or one per function with "lambda".`,
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./config.yaml or /etc/addin-proxy/config.yaml)")

	rootCmd.AddCommand(
		newServeCommand(a),
		newLambdaCommand(a),
		newCredentialsCommand(),
		newConfigCommand(a),
	)

	return rootCmd
}

func Execute() error {
	return NewRootCommand().Execute()
}
