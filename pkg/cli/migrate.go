package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/database"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the wiki tables and the uncategorized-pages view",
		Long: `Apply the bundled schema migrations to the configured database.

The schema covers the tables page lists read (page, categorylinks,
pagelinks, templatelinks, imagelinks, externallinks, revision) and the
dpl_clview view used for uncategorized pages. Migrations create
unprefixed tables, so table_prefix must be empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			db, dialect, err := database.OpenForMigrations(cmd.Context(), cfg.Database)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open database", err)
			}

			if status {
				version, dirty, err := database.MigrationVersion(db, dialect, logger)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read migration status", err)
				}
				out := struct {
					Dialect string `json:"dialect" yaml:"dialect"`
					Version uint   `json:"version" yaml:"version"`
					Dirty   bool   `json:"dirty" yaml:"dirty"`
				}{dialect, version, dirty}
				if rootOpts.Format != "text" {
					return encode(cmd.OutOrStdout(), rootOpts.Format, out)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s schema version %d", dialect, version)
				if dirty {
					fmt.Fprint(cmd.OutOrStdout(), " "+criticalFormat("(dirty)"))
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			}

			if err := database.RunMigrations(db, dialect, logger); err != nil {
				return WrapExitError(ExitCommandError, "migration failed", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", dialect)
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "print the applied schema version instead of migrating")
	return cmd
}
