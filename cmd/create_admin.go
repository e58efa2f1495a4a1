package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/matchdesk/clock"
	"github.com/Dosada05/matchdesk/models"
	"github.com/Dosada05/matchdesk/repositories"
	"github.com/Dosada05/matchdesk/services"
	"github.com/spf13/cobra"
)

func newCreateAdminCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long:  "Creates an administrator even when public sign-up is disabled.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}

			dbConn, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDatabase(dbConn)

			authService := services.NewAuthService(
				repositories.NewIdentityRepository(dbConn),
				repositories.NewTeamRepository(dbConn),
				cfg.AllowAdminSignup,
				clock.New(),
				logger,
			)
			identity, err := authService.CreateAdmin(cmd.Context(), models.Credentials{Email: email, Password: password})
			if err != nil {
				return err
			}

			logger.Info("administrator created", slog.String("id", identity.ID.String()), slog.String("email", identity.Email))
			fmt.Fprintln(cmd.OutOrStdout(), identity.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Administrator e-mail")
	cmd.Flags().StringVar(&password, "password", "", "Administrator password")
	return cmd
}
