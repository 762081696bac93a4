package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUsersCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "confirm <username>",
		Short: "Mark an account as confirmed without email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, db, err := opts.dependencies()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := deps.UserService.ConfirmUsername(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "User %s confirmed\n", args[0])
			return nil
		},
	})
	return cmd
}
