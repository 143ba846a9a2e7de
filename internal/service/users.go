package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mvolkov/biotap/internal/auth"
	"github.com/mvolkov/biotap/internal/link"
	"github.com/mvolkov/biotap/internal/models"
	"github.com/mvolkov/biotap/internal/user"
)

// UpdateUser applies the non-nil fields of the request to the account.
// A new email must not collide with another account.
func (s *Service) UpdateUser(ctx context.Context, usr *user.User, request *models.UserUpdateRequest) (*user.User, error) {
	if request.Email != nil && *request.Email != usr.Email {
		if _, err := s.db.GetUserByEmail(ctx, *request.Email); err == nil {
			return nil, models.ErrEmailTaken
		} else if !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf(
				"in internal/service/users.go/UpdateUser(): error while `s.db.GetUserByEmail()` calling: %w",
				err,
			)
		}
		usr.Email = *request.Email
	}

	if request.FullName != nil {
		usr.FullName = *request.FullName
	}
	if request.IsActive != nil {
		usr.IsActive = *request.IsActive
	}

	now := time.Now()
	usr.UpdatedAt = &now
	if err := s.db.UpdateUser(ctx, usr, nil); err != nil {
		return nil, fmt.Errorf(
			"in internal/service/users.go/UpdateUser(): error while `s.db.UpdateUser()` calling: %w",
			err,
		)
	}

	return usr, nil
}

// ChangePassword verifies the current password before storing the new one.
func (s *Service) ChangePassword(ctx context.Context, usr *user.User, request *models.PasswordChangeRequest) error {
	if !auth.VerifyPassword(usr.HashedPassword, request.CurrentPassword) {
		return models.ErrWrongPassword
	}

	hashedPassword, err := auth.HashPassword(request.NewPassword)
	if err != nil {
		return fmt.Errorf(
			"in internal/service/users.go/ChangePassword(): error while `auth.HashPassword()` calling: %w",
			err,
		)
	}

	now := time.Now()
	usr.HashedPassword = hashedPassword
	usr.UpdatedAt = &now
	if err := s.db.UpdateUser(ctx, usr, nil); err != nil {
		return fmt.Errorf(
			"in internal/service/users.go/ChangePassword(): error while `s.db.UpdateUser()` calling: %w",
			err,
		)
	}

	return nil
}

// DeleteUser removes the account with its links and click history.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	if err := s.db.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf(
			"in internal/service/users.go/DeleteUser(): error while `s.db.DeleteUser()` calling: %w",
			err,
		)
	}

	return nil
}

// GetPublicProfile returns an active user with their active links,
// ordered for display. Inactive or missing users yield ErrNotFound.
func (s *Service) GetPublicProfile(ctx context.Context, username string) (*user.User, []link.Link, error) {
	usr, err := s.db.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, models.ErrNotFound
		}
		return nil, nil, fmt.Errorf(
			"in internal/service/users.go/GetPublicProfile(): error while `s.db.GetUserByUsername()` calling: %w",
			err,
		)
	}
	if !usr.IsActive {
		return nil, nil, models.ErrNotFound
	}

	links, err := s.db.GetActiveUserLinks(ctx, usr.ID)
	if err != nil {
		return nil, nil, fmt.Errorf(
			"in internal/service/users.go/GetPublicProfile(): error while `s.db.GetActiveUserLinks()` calling: %w",
			err,
		)
	}

	return usr, links, nil
}
