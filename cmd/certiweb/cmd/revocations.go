package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/certiweb/go-auth/config"
)

var revocationsCmd = &cobra.Command{
	Use:   "revocations",
	Short: "Maintain the revoked token list",
}

var revocationsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete revocations whose tokens have expired",
	Long: `Only applies to the database backend. Redis entries expire on their own
together with the token they block.`,
	Args: cobra.NoArgs,
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		if cfg.Revocation.Backend != config.RevocationDatabase {
			fmt.Fprintf(cobraCmd.OutOrStdout(), "Nothing to purge for backend %q\n", cfg.Revocation.Backend)
			return nil
		}

		ctx := cobraCmd.Context()
		svc, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		purged, err := svc.repo.RevokedTokens().DeleteExpired(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("failed to purge revocations: %w", err)
		}

		fmt.Fprintf(cobraCmd.OutOrStdout(), "Purged %d revocation(s)\n", purged)
		return nil
	},
}

func init() {
	revocationsCmd.AddCommand(revocationsPurgeCmd)
}
