package listingctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/sandeepkv93/admin-listing-engine/internal/config"
	"github.com/sandeepkv93/admin-listing-engine/internal/observability"
	"github.com/sandeepkv93/admin-listing-engine/internal/security"
	"github.com/sandeepkv93/admin-listing-engine/internal/tools/common"
	"github.com/sandeepkv93/admin-listing-engine/internal/tools/ui"
)

const toolName = "listingctl"

type options struct {
	baseURL      string
	envFile      string
	subject      string
	role         string
	token        string
	viewID       string
	otelEndpoint string
	ci           bool
	timeout      time.Duration

	meterProvider *sdkmetric.MeterProvider
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   toolName,
		Short: "Operate and exercise the admin listing engine",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := common.LoadEnvFile(opts.envFile); err != nil {
				return err
			}
			return opts.initMetrics(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.meterProvider == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return opts.meterProvider.Shutdown(ctx)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().StringVar(&opts.subject, "subject", "listingctl", "token subject when signing locally")
	cmd.PersistentFlags().StringVar(&opts.role, "role", "admin", "role claim when signing locally")
	cmd.PersistentFlags().StringVar(&opts.token, "token", "", "access token; signed from JWT_* env when empty")
	cmd.PersistentFlags().StringVar(&opts.viewID, "view", "listingctl", "X-View-Id sent with listing requests")
	cmd.PersistentFlags().StringVar(&opts.otelEndpoint, "otel-endpoint", "", "OTLP gRPC endpoint for tool metrics; disabled when empty")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall command timeout in --ci mode")
	cmd.AddCommand(
		newTokenCommand(opts),
		newProbeCommand(opts),
		newChurnCommand(opts),
		newFixtureUpstreamCommand(opts),
		newObscheckCommand(opts),
	)
	return cmd
}

func (o *options) initMetrics(ctx context.Context) error {
	if strings.TrimSpace(o.otelEndpoint) == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := &config.Config{
		OTELServiceName:           toolName,
		OTELEnvironment:           "tools",
		OTELExporterOTLPEndpoint:  o.otelEndpoint,
		OTELExporterOTLPInsecure:  true,
		OTELMetricsEnabled:        true,
		OTELMetricsExportInterval: 5 * time.Second,
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	mp, err := observability.InitMetrics(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init tool metrics: %w", err)
	}
	o.meterProvider = mp
	return nil
}

// accessToken returns --token or signs one with the server's JWT settings.
func (o *options) accessToken() (string, error) {
	if o.token != "" {
		return o.token, nil
	}
	secret := os.Getenv("JWT_ACCESS_SECRET")
	if len(secret) < 32 {
		return "", errors.New("JWT_ACCESS_SECRET must be set (or pass --token)")
	}
	mgr := security.NewJWTManager(envOr("JWT_ISSUER", "admin-listing-engine"), envOr("JWT_AUDIENCE", "admin-dashboard"), secret)
	return mgr.SignAccessToken(o.subject, o.role, 15*time.Minute)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// execute runs fn under the interactive UI or, with --ci, prints a JSON
// result and exits non-zero on failure.
func execute(cmd *cobra.Command, opts *options, command string, fn func(context.Context) ([]string, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	title := toolName + " " + command
	start := time.Now()
	var (
		details []string
		err     error
	)
	if opts.ci {
		cctx, cancel := context.WithTimeout(ctx, opts.timeout)
		details, err = fn(cctx)
		cancel()
	} else {
		details, err = ui.Run(ctx, title, opts.timeout, fn)
	}
	elapsed := time.Since(start)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	observability.RecordToolCommandRun(ctx, toolName, command, outcome)
	observability.RecordToolCommandDuration(ctx, toolName, command, outcome, elapsed)
	if opts.ci {
		if werr := common.WriteCIResult(cmd.OutOrStdout(), common.NewCIResult(title, details, elapsed, err)); werr != nil {
			return werr
		}
		if err != nil {
			os.Exit(4)
		}
		return nil
	}
	return err
}

func newTokenCommand(opts *options) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a local access token for --subject and --role",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("JWT_ACCESS_SECRET")
			if len(secret) < 32 {
				return errors.New("JWT_ACCESS_SECRET must be at least 32 chars")
			}
			mgr := security.NewJWTManager(envOr("JWT_ISSUER", "admin-listing-engine"), envOr("JWT_AUDIENCE", "admin-dashboard"), secret)
			tok, err := mgr.SignAccessToken(opts.subject, opts.role, ttl)
			if err != nil {
				return err
			}
			if opts.ci {
				return common.WriteCIResult(cmd.OutOrStdout(), common.NewCIResult(toolName+" token", []string{tok}, 0, nil))
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 15*time.Minute, "token lifetime")
	return cmd
}
