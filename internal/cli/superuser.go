package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SuperuserOptions holds flags for create-superuser
type SuperuserOptions struct {
	Email    string
	Password string
	Name     string
}

// ErrMissingCredentials is returned when email or password is empty
var ErrMissingCredentials = errors.New("email and password are required")

// NewCreateSuperuserCommand creates the create-superuser command
func NewCreateSuperuserCommand() *cobra.Command {
	opts := &SuperuserOptions{}

	cmd := &cobra.Command{
		Use:   "create-superuser",
		Short: "Create a profile that can manage every tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			profile, err := CreateSuperuser(cmd.Context(), db, *opts)
			if err != nil {
				return err
			}
			logger.GetLogger().Info("Superuser created",
				zap.Uint("profile_id", profile.ID),
				zap.String("email", profile.Email))
			fmt.Fprintf(cmd.OutOrStdout(), "superuser %s created\n", profile.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "login email (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "login password (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "Administrator", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

// CreateSuperuser creates a tenantless admin profile with the superuser flag
func CreateSuperuser(ctx context.Context, db *gorm.DB, opts SuperuserOptions) (*model.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(opts.Email))
	if email == "" || opts.Password == "" {
		return nil, ErrMissingCredentials
	}

	var role model.Role
	if err := db.WithContext(ctx).Where("name = ?", model.RoleAdmin).First(&role).Error; err != nil {
		return nil, fmt.Errorf("admin role not found, run migrate first: %w", err)
	}

	profile := &model.Profile{
		RoleID:      role.ID,
		Email:       email,
		FullName:    opts.Name,
		IsSuperuser: true,
		Active:      true,
	}
	if err := profile.SetPassword(opts.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, fmt.Errorf("create superuser: %w", err)
	}
	profile.Role = role
	return profile, nil
}
