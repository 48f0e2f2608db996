package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/klamlamwork/playroom/internal/middleware"
)

var (
	tokenAccountID int64
	tokenTTL       time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token for an account",
	Long: `Issue an HS256 token signed with JWT_SECRET. Send it as a bearer token
or set it as the playroom_token cookie for the chat page.

Examples:
  playroomctl token --account-id 1
  playroomctl token --account-id 1 --ttl 1h`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().Int64Var(&tokenAccountID, "account-id", 0, "account to issue the token for")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default JWT_EXPIRATION)")
}

func runToken(cmd *cobra.Command, args []string) error {
	if tokenAccountID <= 0 {
		return errors.New("--account-id is required")
	}
	ttl := tokenTTL
	if ttl <= 0 {
		ttl = cfg.JWTExpiration
	}

	token, err := middleware.IssueToken(cfg.JWTSecret, tokenAccountID, ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
