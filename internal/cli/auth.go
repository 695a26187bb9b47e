package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Kavirubc/cofound/internal/session"
	"github.com/Kavirubc/cofound/pkg/models"
)

const tokenEnv = "COFOUND_ACCESS_TOKEN"

func newLoginCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login <user-id>",
		Short: "Sign in as an existing member",
		Long: `Fetches the member's profile and stores it as the current session.
The access token defaults to $COFOUND_ACCESS_TOKEN.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			if token == "" {
				token = os.Getenv(tokenEnv)
			}
			tokens := models.AuthTokens{AccessToken: token}
			probe := &session.Session{Tokens: tokens}

			user, err := a.client(probe).GetProfile(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load profile: %w", err)
			}
			if user.ID == "" {
				user.ID = args[0]
			}

			if _, err := a.sessions.Login(*user, tokens); err != nil {
				return err
			}
			a.printer.Success("Logged in as %s (%s)", displayName(user), user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "access token sent as a bearer token")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			if err := a.sessions.Logout(); err != nil {
				return err
			}
			a.printer.Success("Logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in member",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			user, err := a.sessions.CurrentUser()
			if errors.Is(err, session.ErrNoSession) {
				a.printer.Info("Not logged in")
				return nil
			}
			if err != nil {
				return err
			}
			a.printer.Print("%s (%s) - %s", displayName(user), user.ID, user.ProfileType)
			return nil
		},
	}
}

func displayName(u *models.User) string {
	if u.FullName != "" {
		return u.FullName
	}
	return "unnamed member"
}
