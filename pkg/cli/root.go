package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/config"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/logging"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/retry"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "text" | "json" | "yaml"
	LogLevel   string
	NoColor    bool
	Version    string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{Version: version}

	cmd := &cobra.Command{
		Use:   "pagelist",
		Short: "Dynamic page lists over a wiki database",
		Long: `pagelist evaluates dynamic page list requests against a MediaWiki-style
database and returns the matching pages, with headings and diagnostics.

Run it as an HTTP service (serve), evaluate one request from the shell
(query), prepare a database (migrate) or browse the option catalog (params).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.NoColor {
				color.NoColor = true
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "config.yaml", "configuration file (environment variables override it)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override the configured log level")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewParamsCommand(opts))

	return cmd
}

// loadConfig reads the configuration and builds the process logger.
func loadConfig(opts *RootOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFile(opts.ConfigPath, opts.Version)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to create logger", err)
	}
	return cfg, logger, nil
}

// openExecutor connects to the configured wiki database, retrying
// transient failures such as a database that is still starting.
func openExecutor(ctx context.Context, cfg *config.Config, logger *zap.Logger) (datasource.QueryExecutor, error) {
	factory := datasource.NewAdapterFactory(logger)

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = max(cfg.Database.ConnectRetries, 0)

	exec, err := retry.DoWithResult(ctx, retryCfg, logger, func() (datasource.QueryExecutor, error) {
		exec, err := factory.NewQueryExecutor(ctx, cfg.Database.Type, cfg.Database.ConnectionMap())
		if err != nil {
			return nil, err
		}
		if err := exec.TestConnection(ctx); err != nil {
			exec.Close()
			return nil, fmt.Errorf("%s", logging.SanitizeError(err))
		}
		return exec, nil
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to connect to the wiki database", err)
	}
	return exec, nil
}
