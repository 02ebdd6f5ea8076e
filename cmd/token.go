package cmd

import (
	"fmt"

	"github.com/frahmantamala/invoice-management/internal/auth"
	"github.com/spf13/cobra"
)

var (
	tokenUser  string
	tokenEmail string
)

// tokenCmd mints an access token for local development; production tokens
// come from the identity provider sharing the same secret.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		token, err := auth.NewVerifierFromConfig(cfg.Security).GenerateAccessToken(tokenUser, tokenEmail)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id placed in the token subject")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "optional email claim")
	_ = tokenCmd.MarkFlagRequired("user")
}
