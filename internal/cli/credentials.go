package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/addin-proxy/inference/pkg/credentials"
)

func newCredentialsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Build and check inference bearer tokens",
	}
	cmd.AddCommand(newCredentialsEncodeCommand(), newCredentialsCheckCommand())
	return cmd
}

func newCredentialsEncodeCommand() *cobra.Command {
	var (
		creds    credentials.Credentials
		format   string
		indirect bool
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode credentials as a bearer token",
		Example: `  addin-proxy credentials encode --access-key-id AKIA... --secret-access-key ... --format labeled --region eu-west-1
  addin-proxy credentials encode --access-key-id AKIA... --secret-access-key ... --indirect`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
				return errors.New("--access-key-id and --secret-access-key are required")
			}

			var token string
			switch format {
			case "labeled":
				var err error
				if token, err = credentials.EncodeLabeled(creds); err != nil {
					return err
				}
			case "direct":
				if creds.Region != "" {
					return errors.New("--region requires --format labeled")
				}
				if strings.Contains(creds.AccessKeyID+creds.SecretAccessKey+creds.SessionToken, ":") {
					return errors.New("direct format cannot carry values containing ':'; use --format labeled")
				}
				token = credentials.EncodeDirect(creds)
			default:
				return fmt.Errorf("unknown format %q (supported: labeled, direct)", format)
			}

			if indirect {
				token = credentials.EncodeIndirect(token)
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&creds.AccessKeyID, "access-key-id", "", "access key id")
	cmd.Flags().StringVar(&creds.SecretAccessKey, "secret-access-key", "", "secret access key")
	cmd.Flags().StringVar(&creds.SessionToken, "session-token", "", "session token for temporary credentials")
	cmd.Flags().StringVar(&creds.Region, "region", "", "region override (labeled format only)")
	cmd.Flags().StringVar(&format, "format", "direct", "token format: direct or labeled")
	cmd.Flags().BoolVar(&indirect, "indirect", false, "wrap the token in one level of b64: indirection")
	return cmd
}

func newCredentialsCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [token]",
		Short: "Check that a bearer token parses, printing only redacted fields",
		Long:  "Parses a token given as an argument or on stdin. Secret values are never printed.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read token: %w", err)
				}
				token = strings.TrimSpace(string(data))
			}
			token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))

			creds, err := credentials.Parse(token)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "access key id:  %s\n", creds.Redacted())
			fmt.Fprintf(out, "session token:  %t\n", creds.SessionToken != "")
			if creds.Region != "" {
				fmt.Fprintf(out, "region:         %s\n", creds.Region)
			}
			return nil
		},
	}
}
