package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRegisterCmd(s *state) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "register EMAIL",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")

	cmd.RunE = s.withApp(func(cmd *cobra.Command, args []string, app *App) error {
		out := cmd.OutOrStdout()
		in := s.reader(cmd)

		password, err := GetPassword(in, "Password", out)
		if err != nil {
			return err
		}
		confirm, err := GetPassword(in, "Repeat password", out)
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}

		u, err := app.Auth.Register(cmd.Context(), name, args[0], password)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s registered %s\n", success.Sprint("✓"), highlight.Sprint(u.Email))
		fmt.Fprintf(out, "%s\n", muted.Sprint("run `vaultdrop login "+u.Email+"` to start a session"))
		return nil
	})
	return cmd
}

func newLoginCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login [EMAIL]",
		Short: "Start a session",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.RunE = s.withApp(func(cmd *cobra.Command, args []string, app *App) error {
		out := cmd.OutOrStdout()
		in := s.reader(cmd)

		var email string
		if len(args) == 1 {
			email = args[0]
		} else {
			var err error
			if email, err = GetSimpleText(in, "Email", out); err != nil {
				return err
			}
		}
		password, err := GetPassword(in, "Password", out)
		if err != nil {
			return err
		}

		if err := app.Auth.Login(cmd.Context(), email, password); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s logged in as %s\n", success.Sprint("✓"), highlight.Sprint(email))
		return nil
	})
	return cmd
}

func newLogoutCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = s.withApp(func(cmd *cobra.Command, args []string, app *App) error {
		if err := app.Auth.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s logged out\n", success.Sprint("✓"))
		return nil
	})
	return cmd
}

func newWhoamiCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in account",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = s.withApp(func(cmd *cobra.Command, args []string, app *App) error {
		if app.Email == "" {
			fmt.Fprintln(cmd.OutOrStdout(), muted.Sprint("not logged in"))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), highlight.Sprint(app.Email))
		return nil
	})
	return cmd
}
