package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/xelth-com/loci/internal/models"
	"github.com/xelth-com/loci/internal/utils"
)

type createUserFlags struct {
	username    string
	email       string
	password    string
	name        string
	staff       bool
	superuser   bool
	permissions []string
}

func newCreateUserCmd() *cobra.Command {
	var flags createUserFlags

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an API user",
		Long: "Creates a user that can log in to the API. Staff users need " +
			models.PermViewLocation + " or " + models.PermChangeLocation + " to access locations.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreateUser(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.username, "username", "u", "", "Username (required)")
	cmd.Flags().StringVarP(&flags.email, "email", "e", "", "Email address (required)")
	cmd.Flags().StringVarP(&flags.password, "password", "p", "", "Password (required)")
	cmd.Flags().StringVar(&flags.name, "name", "", "Display name")
	cmd.Flags().BoolVar(&flags.staff, "staff", false, "Mark the user as staff")
	cmd.Flags().BoolVar(&flags.superuser, "superuser", false, "Grant every permission")
	cmd.Flags().StringSliceVar(&flags.permissions, "perm", nil, "Permission codename (repeatable)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runCreateUser(cmd *cobra.Command, flags createUserFlags) error {
	return withDeps(cmd.Context(), func(d *Deps) error {
		user, err := createUser(cmd.Context(), d.DB, userFixture{
			Username:    flags.username,
			Email:       flags.email,
			Password:    flags.password,
			Name:        flags.name,
			Staff:       flags.staff,
			Superuser:   flags.superuser,
			Permissions: flags.permissions,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created user %s (%s)\n", user.Username, user.ID)
		return nil
	})
}

var errUserExists = errors.New("user already exists")

// createUser hashes the password and stores the user. It fails with
// errUserExists when the username or email is taken.
func createUser(ctx context.Context, db *gorm.DB, u userFixture) (*models.UserAuth, error) {
	if u.Username == "" || u.Email == "" || u.Password == "" {
		return nil, errors.New("username, email and password are required")
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.UserAuth{}).
		Where("username = ? OR email = ?", u.Username, u.Email).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("checking existing users: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%s: %w", u.Username, errUserExists)
	}

	hash, err := utils.HashPassword(u.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	user := &models.UserAuth{
		Username:    u.Username,
		Email:       u.Email,
		Password:    hash,
		Name:        u.Name,
		IsActive:    true,
		IsStaff:     u.Staff || u.Superuser,
		IsSuperuser: u.Superuser,
		Permissions: u.Permissions,
	}
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return user, nil
}
