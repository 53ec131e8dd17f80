package commands

import (
	"fmt"

	"github.com/oikonomos/ledger-service/internal/auth"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func newUserCommand(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage operator accounts",
	}
	cmd.AddCommand(newUserCreateCommand(env))
	return cmd
}

func newUserCreateCommand(env *environment) *cobra.Command {
	var (
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an operator that can sign in to the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			repo, closeRepo, err := env.openRepository(cmd.Context(), env.cfg)
			if err != nil {
				return err
			}
			defer multierr.AppendInvoke(&err, multierr.Invoke(closeRepo))

			identity, err := auth.NewService(repo, nil, env.logger, auth.Config{
				JWTSecret:       env.cfg.JWTSecret,
				AccessTokenTTL:  env.cfg.AccessTokenTTL(),
				RefreshTokenTTL: env.cfg.RefreshTokenTTL(),
			})
			if err != nil {
				return err
			}
			user, err := identity.CreateUser(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(out(cmd), "created user %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address used to sign in")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
