package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	adminUsername string
	adminEmail    string
	adminToken    bool
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create a superuser account",
	Long: `Create an active superuser. Superusers have admin rights regardless of
their role field and can obtain a token through the normal signup flow.

Examples:
  yamdbctl create-admin --username root --email root@example.com
  yamdbctl create-admin --username root --email root@example.com --token`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminUsername == "" || adminEmail == "" {
			return errors.New("--username and --email are required")
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		accounts, tokens, err := accountService(db)
		if err != nil {
			return err
		}
		account, err := accounts.CreateSuperuser(cmd.Context(), adminUsername, adminEmail)
		if err != nil {
			return fmt.Errorf("creating superuser: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created superuser %s (%s)\n", account.Username, account.ID)

		if adminToken {
			token, err := tokens.Generate(account.ID)
			if err != nil {
				return fmt.Errorf("issuing token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
		}
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "", "Username of the new superuser")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Email of the new superuser")
	createAdminCmd.Flags().BoolVar(&adminToken, "token", false, "Print an access token for the new account")
	rootCmd.AddCommand(createAdminCmd)
}
