package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migratePasswordsCmd = &cobra.Command{
	Use:   "migrate-passwords",
	Short: "Hash any stored password that is not a bcrypt hash yet",
	Args:  cobra.NoArgs,
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		ctx := cobraCmd.Context()

		svc, err := openServices(ctx, cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		migrated, err := svc.auther.MigratePasswords(ctx)
		if err != nil {
			return fmt.Errorf("failed to migrate passwords: %w", err)
		}

		fmt.Fprintf(cobraCmd.OutOrStdout(), "Migrated %d password(s)\n", migrated)
		return nil
	},
}
