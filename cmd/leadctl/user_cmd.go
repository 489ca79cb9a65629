package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/omnilead/internal/middleware"
	"github.com/capitalize-ai/omnilead/internal/model"
	"github.com/capitalize-ai/omnilead/internal/service"
	"github.com/capitalize-ai/omnilead/internal/store"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff users",
	}
	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var req model.RegisterRequest
	var role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff user (use this to bootstrap the first admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				req.Password = os.Getenv("LEADCTL_PASSWORD")
			}
			req.Role = model.Role(role)
			if err := middleware.ValidateStruct(&req); err != nil {
				return err
			}

			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			hash, err := service.HashPassword(req.Password)
			if err != nil {
				return err
			}
			user := &model.User{
				Email:        req.Email,
				PasswordHash: hash,
				FullName:     req.FullName,
				Role:         req.Role,
				Phone:        req.Phone,
				Active:       true,
			}
			if err := st.CreateUser(cmd.Context(), user); err != nil {
				if errors.Is(err, store.ErrDuplicateEmail) {
					return fmt.Errorf("user %s already exists", req.Email)
				}
				return err
			}
			return writeJSON(user)
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "Login email (required)")
	cmd.Flags().StringVar(&req.FullName, "name", "", "Full name (required)")
	cmd.Flags().StringVar(&role, "role", string(model.RoleAdmin), "Role: admin, analyst, counselor or sales")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "Phone in E.164 format, used for SMS alerts")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password; defaults to $LEADCTL_PASSWORD")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
