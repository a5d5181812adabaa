package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/GTDGit/tripquote_api/internal/config"
	"github.com/GTDGit/tripquote_api/internal/database"
	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/repository"
	"github.com/GTDGit/tripquote_api/internal/service"
)

// CreateUserCommand creates the create-user command used to bootstrap the
// first admin account. It reads DB settings from the same environment as the API.
func CreateUserCommand() *cobra.Command {
	var email, password, name, role string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a platform account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := database.Connect(context.Background(), &cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			auth := service.NewAuthService(repository.NewUserRepository(db), nil)
			user, err := auth.CreateUser(ctx, email, password, name, models.Role(role))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (%s)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (min 8 characters)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "Role: admin, operator, supplier or agent")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
