package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"assetdb-api/internal/apperr"
	"assetdb-api/internal/models"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func newCreateUserCmd() *cobra.Command {
	var (
		name  string
		email string
		role  string
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a login; the password is read from ASSETDB_PASSWORD",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return usageError{errors.New("--email is required")}
			}
			password := os.Getenv("ASSETDB_PASSWORD")
			if len(password) < 8 {
				return usageError{errors.New("ASSETDB_PASSWORD must be set to at least 8 characters")}
			}
			if !models.IsValidRole(role) {
				return usageError{fmt.Errorf("invalid --role %q: want admin or user", role)}
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}

			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()
			if e.db == nil {
				return usageError{apperr.Validation("create-user needs STORE_DRIVER=postgres")}
			}

			u := &models.User{
				Name:         strings.TrimSpace(name),
				Email:        strings.ToLower(strings.TrimSpace(email)),
				PasswordHash: string(hash),
				Role:         role,
			}
			if err := e.store.CreateUser(cmd.Context(), u); err != nil {
				return err
			}
			return writeJSON(u)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Login email (required)")
	cmd.Flags().StringVar(&role, "role", models.RoleUser, "Role (admin or user)")
	return cmd
}
