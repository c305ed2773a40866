package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	auth "github.com/certiweb/go-auth"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect user accounts",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered users",
	Args:  cobra.NoArgs,
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		ctx := cobraCmd.Context()

		svc, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		users, err := svc.repo.Users().ListUsers(ctx)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		if len(users) == 0 {
			fmt.Fprintln(cobraCmd.OutOrStdout(), "No users found")
			return nil
		}

		return pterm.DefaultTable.WithHasHeader().WithData(usersTable(users)).Render()
	},
}

func init() {
	usersCmd.AddCommand(usersListCmd)
}

func usersTable(users []*auth.User) pterm.TableData {
	table := pterm.TableData{{"ID", "Name", "Email", "Role", "Plan", "Hashed"}}
	for _, u := range users {
		hashed := "no"
		if auth.IsHashed(u.PasswordHash) {
			hashed = "yes"
		}
		table = append(table, []string{
			u.ID.String(),
			u.Name,
			u.Email,
			string(u.Role),
			u.Plan,
			hashed,
		})
	}
	return table
}
