// Package cli provides the playroomctl administration commands.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klamlamwork/playroom/internal/config"
	"github.com/klamlamwork/playroom/internal/store"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	cfg *config.Config
	st  *store.Store
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "playroomctl",
	Short: "Administer the playroom database",
	Long: `playroomctl manages the playroom database: it applies the schema,
loads YAML fixtures and issues API tokens for local testing.

Connection settings come from the same environment variables as the
API server (DB_DRIVER, DB_DSN, JWT_SECRET, ...).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if st != nil {
			st.Close()
			st = nil
		}
	},
}

// openStore connects and migrates. Only commands that touch the database call it.
func openStore(ctx context.Context) (*store.Store, error) {
	s, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	st = s
	return s, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tokenCmd)
}
