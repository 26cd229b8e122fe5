package repository

import (
	"context"
	"errors"
	"time"

	"citizenconnect/apperrors"
	"citizenconnect/models"
)

// EnsureAdmin creates the admin account for email, or promotes the existing
// account. It reports whether a new account was created.
func EnsureAdmin(ctx context.Context, users UserStore, email, password string) (bool, error) {
	existing, err := users.GetByEmail(ctx, email)
	if err == nil {
		if existing.Role == models.RoleAdmin {
			return false, nil
		}
		return false, users.SetRole(ctx, existing.ID, models.RoleAdmin)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return false, err
	}
	if password == "" {
		return false, &apperrors.ValidationError{Fields: map[string]string{"password": "ADMIN_PASSWORD is required to create the admin account"}}
	}

	now := time.Now()
	admin := models.User{
		Name:      "Administrator",
		Email:     email,
		Role:      models.RoleAdmin,
		Password:  password,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := admin.HashPassword(); err != nil {
		return false, err
	}
	if err := users.Create(ctx, &admin); err != nil {
		return false, err
	}
	return true, nil
}
