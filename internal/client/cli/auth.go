package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/voternet/internal/common"
)

func (a *App) pingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "OK")
			return nil
		},
	}
}

// credentials returns the email from the flag or a prompt, and the password
// from a prompt. The caller wipes the password.
func (a *App) credentials(email string) (string, []byte, error) {
	if email == "" {
		var err error
		if email, err = GetSimpleText(a.reader, "Email", a.out); err != nil {
			return "", nil, err
		}
	}
	password, err := GetPassword(a.reader, a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

func (a *App) registerCommand() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a voter account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, password, err := a.credentials(email)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			resp, err := a.client.Register(cmd.Context(), email, string(password))
			if err != nil {
				return err
			}
			return a.print(resp)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func (a *App) loginCommand() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, password, err := a.credentials(email)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			token, err := a.client.Login(cmd.Context(), email, string(password))
			if err != nil {
				return err
			}
			if err := a.tokens.Save(token); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged in")
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func (a *App) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.tokens.Clear(); err != nil {
				return err
			}
			a.client.SetAccessToken("")
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}
