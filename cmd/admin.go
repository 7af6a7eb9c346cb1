package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/privacy-assess/internal/auth"
)

// adminPasswordEnv supplies the password when --password is omitted, so it
// stays out of shell history.
const adminPasswordEnv = "PRIVACY_ADMIN_PASSWORD"

var (
	adminUsername string
	adminPassword string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage administrator accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an administrator account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("admin"); err != nil {
			return err
		}
		password := adminPassword
		if password == "" {
			password = os.Getenv(adminPasswordEnv)
		}
		if password == "" {
			return eris.Errorf("password is required (--password or %s)", adminPasswordEnv)
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		admin, err := st.CreateAdmin(cmd.Context(), adminUsername, hash)
		if err != nil {
			return eris.Wrapf(err, "create admin %s", adminUsername)
		}
		zap.L().Info("admin created", zap.String("username", admin.Username), zap.String("id", admin.ID))
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminUsername, "username", "", "admin username (required)")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "admin password (default from "+adminPasswordEnv+")")
	_ = adminCreateCmd.MarkFlagRequired("username")
	adminCmd.AddCommand(adminCreateCmd)
	rootCmd.AddCommand(adminCmd)
}
