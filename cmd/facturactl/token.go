package main

import (
	"fmt"
	"time"

	"github.com/optica/backend/internal/infrastructure/auth"
	"github.com/spf13/cobra"
)

func newTokenCmd(c *cli) *cobra.Command {
	var (
		employeeID int64
		username   string
		roles      []string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for an employee",
		Long: `Signs an access token with the configured JWT secret. Useful for
scripts and for calling the API from curl during support work.`,
		Example: `  facturactl token --employee-id 7 --username cmejia`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if employeeID <= 0 {
				return fmt.Errorf("--employee-id must be positive")
			}
			if username == "" {
				return fmt.Errorf("--username is required")
			}

			token, expiresAt, err := auth.NewJWTService(c.cfg.JWT).Issue(auth.Grant{
				EmployeeID: employeeID,
				Username:   username,
				Roles:      roles,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().Int64Var(&employeeID, "employee-id", 0, "Employee id carried in the token")
	cmd.Flags().StringVar(&username, "username", "", "Username carried in the token")
	cmd.Flags().StringSliceVar(&roles, "roles", nil, "Comma separated roles")
	return cmd
}
