package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klamlamwork/playroom/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load a YAML fixture into the database",
	Long: `Load accounts, kids, activities, courses, routines and completions
from a YAML fixture. Records are written in dependency order.

Examples:
  playroomctl seed fixtures/family.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	fixture, err := seed.LoadFile(args[0])
	if err != nil {
		return err
	}

	s, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	if err := seed.Apply(cmd.Context(), s, fixture); err != nil {
		return fmt.Errorf("apply fixture: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d accounts and %d activities from %s\n",
		len(fixture.Accounts), len(fixture.Activities), args[0])
	return nil
}
