package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"library-ledger/library"
)

// NewUserCommand creates the user command group.
func NewUserCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage borrowing members",
	}
	cmd.AddCommand(newUserAddCommand(opts))
	cmd.AddCommand(newUserEditCommand(opts))
	cmd.AddCommand(newUserListCommand(opts))
	cmd.AddCommand(newUserDeleteCommand(opts))
	return cmd
}

func newUserAddCommand(opts *RootOptions) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Register a user",
		Args:  cobra.ExactArgs(1),
		RunE: opts.withManager(func(cmd *cobra.Command, args []string, mgr *library.LibraryManager, out *OutputFormatter) error {
			if !cmd.Flags().Changed("password") {
				var err error
				if password, err = promptPassword(cmd, fmt.Sprintf("Enter password for %s: ", args[0])); err != nil {
					return err
				}
			}
			id, err := mgr.AddUser(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			return out.Success(map[string]any{"id": id, "username": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Added user '%s' with ID %d\n", args[0], id)
			})
		}),
	}
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func newUserEditCommand(opts *RootOptions) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "edit <user-id>",
		Short: "Rename a user or reset their password",
		Args:  cobra.ExactArgs(1),
		RunE: opts.withManager(func(cmd *cobra.Command, args []string, mgr *library.LibraryManager, out *OutputFormatter) error {
			id, err := parseID("user", args[0])
			if err != nil {
				return err
			}
			u, err := mgr.GetUser(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("username") {
				username = u.Username
			}
			if err := mgr.EditUser(cmd.Context(), id, username, password); err != nil {
				return err
			}
			return out.Success(map[string]any{"id": id, "username": username}, func(w io.Writer) {
				fmt.Fprintf(w, "User %d updated (%s).\n", id, username)
			})
		}),
	}
	cmd.Flags().StringVar(&username, "username", "", "new username")
	cmd.Flags().StringVar(&password, "password", "", "new password (unchanged when empty)")
	return cmd
}

func newUserListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: opts.withManager(func(cmd *cobra.Command, _ []string, mgr *library.LibraryManager, out *OutputFormatter) error {
			users, err := mgr.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			return out.Success(users, func(w io.Writer) {
				if len(users) == 0 {
					fmt.Fprintln(w, "No users registered.")
					return
				}
				fmt.Fprintf(w, "%-5s %-30s\n", "ID", "Username")
				fmt.Fprintln(w, strings.Repeat("-", 36))
				for _, u := range users {
					fmt.Fprintf(w, "%-5d %-30s\n", u.ID, u.Username)
				}
			})
		}),
	}
}

func newUserDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user who holds no books",
		Args:  cobra.ExactArgs(1),
		RunE: opts.withManager(func(cmd *cobra.Command, args []string, mgr *library.LibraryManager, out *OutputFormatter) error {
			id, err := parseID("user", args[0])
			if err != nil {
				return err
			}
			if err := mgr.DeleteUser(cmd.Context(), id); err != nil {
				return err
			}
			return out.Success(map[string]int64{"deleted_user_id": id}, func(w io.Writer) {
				fmt.Fprintf(w, "User %d deleted.\n", id)
			})
		}),
	}
}

// NewAdminCommand creates the admin command group.
func NewAdminCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}

	var password string
	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an administrator",
		Args:  cobra.ExactArgs(1),
		RunE: opts.withManager(func(cmd *cobra.Command, args []string, mgr *library.LibraryManager, out *OutputFormatter) error {
			if !cmd.Flags().Changed("password") {
				var err error
				if password, err = promptPassword(cmd, fmt.Sprintf("Enter password for admin %s: ", args[0])); err != nil {
					return err
				}
			}
			id, err := mgr.AddAdmin(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			return out.Success(map[string]any{"id": id, "username": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Added admin '%s' with ID %d\n", args[0], id)
			})
		}),
	}
	add.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	cmd.AddCommand(add)
	return cmd
}
