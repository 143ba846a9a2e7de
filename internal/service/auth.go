package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mvolkov/biotap/internal/auth"
	"github.com/mvolkov/biotap/internal/logger"
	"github.com/mvolkov/biotap/internal/models"
	"github.com/mvolkov/biotap/internal/user"
)

// Register creates a new account and issues its first access token. The
// welcome email is best-effort: a delivery failure never fails the
// registration.
func (s *Service) Register(ctx context.Context, request *models.RegisterRequest) (*user.User, *models.TokenResponse, error) {
	if _, err := s.db.GetUserByUsername(ctx, request.Username); err == nil {
		return nil, nil, models.ErrUsernameTaken
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, nil, fmt.Errorf(
			"in internal/service/auth.go/Register(): error while `s.db.GetUserByUsername()` calling: %w",
			err,
		)
	}

	if _, err := s.db.GetUserByEmail(ctx, request.Email); err == nil {
		return nil, nil, models.ErrEmailTaken
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, nil, fmt.Errorf(
			"in internal/service/auth.go/Register(): error while `s.db.GetUserByEmail()` calling: %w",
			err,
		)
	}

	hashedPassword, err := auth.HashPassword(request.Password)
	if err != nil {
		return nil, nil, fmt.Errorf(
			"in internal/service/auth.go/Register(): error while `auth.HashPassword()` calling: %w",
			err,
		)
	}

	now := time.Now()
	usr := &user.User{
		ID:             uuid.New().String(),
		Username:       request.Username,
		Email:          request.Email,
		FullName:       request.FullName,
		HashedPassword: hashedPassword,
		IsActive:       true,
		CreatedAt:      now,
	}
	if err := s.db.CreateUser(ctx, usr, nil); err != nil {
		return nil, nil, fmt.Errorf(
			"in internal/service/auth.go/Register(): error while `s.db.CreateUser()` calling: %w",
			err,
		)
	}

	if err := s.mailer.SendWelcome(ctx, usr); err != nil {
		logger.Log.Debugln("welcome email was not sent", "userID", usr.ID, "error", err)
	}

	token, err := s.issueToken(usr.ID)
	if err != nil {
		return nil, nil, err
	}

	return usr, token, nil
}

// Login verifies the credentials and issues an access token.
func (s *Service) Login(ctx context.Context, request *models.LoginRequest) (*user.User, *models.TokenResponse, error) {
	usr, err := s.db.GetUserByUsername(ctx, request.Username)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf(
			"in internal/service/auth.go/Login(): error while `s.db.GetUserByUsername()` calling: %w",
			err,
		)
	}

	if !auth.VerifyPassword(usr.HashedPassword, request.Password) {
		return nil, nil, models.ErrInvalidCredentials
	}
	if !usr.IsActive {
		return nil, nil, models.ErrInactiveUser
	}

	token, err := s.issueToken(usr.ID)
	if err != nil {
		return nil, nil, err
	}

	return usr, token, nil
}

// RequestPasswordReset stores a single-use reset token and emails it to
// the account owner. It reports success even when no account matches
// the email, so the endpoint does not leak which addresses exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := s.db.GetUserByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf(
			"in internal/service/auth.go/RequestPasswordReset(): error while `s.db.GetUserByEmail()` calling: %w",
			err,
		)
	}

	rawToken, err := generateResetToken()
	if err != nil {
		return err
	}

	resetToken := &models.PasswordResetToken{
		UserID:    usr.ID,
		Token:     rawToken,
		ExpiresAt: time.Now().Add(s.resetTokenTTL),
	}
	if err := s.db.CreatePasswordResetToken(ctx, resetToken, nil); err != nil {
		return fmt.Errorf(
			"in internal/service/auth.go/RequestPasswordReset(): error while `s.db.CreatePasswordResetToken()` calling: %w",
			err,
		)
	}

	if err := s.mailer.SendPasswordReset(ctx, usr, rawToken); err != nil {
		return fmt.Errorf(
			"in internal/service/auth.go/RequestPasswordReset(): error while `s.mailer.SendPasswordReset()` calling: %w",
			err,
		)
	}

	return nil
}

// ConfirmPasswordReset replaces the password of the token owner and
// burns the token, both inside one transaction.
func (s *Service) ConfirmPasswordReset(ctx context.Context, rawToken, newPassword string) error {
	resetToken, err := s.db.GetValidPasswordResetToken(ctx, rawToken)
	if err != nil {
		if errors.Is(err, models.ErrInvalidResetToken) {
			return err
		}
		return fmt.Errorf(
			"in internal/service/auth.go/ConfirmPasswordReset(): error while `s.db.GetValidPasswordResetToken()` calling: %w",
			err,
		)
	}

	usr, err := s.db.GetUserByID(ctx, resetToken.UserID)
	if err != nil {
		return fmt.Errorf(
			"in internal/service/auth.go/ConfirmPasswordReset(): error while `s.db.GetUserByID()` calling: %w",
			err,
		)
	}

	hashedPassword, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf(
			"in internal/service/auth.go/ConfirmPasswordReset(): error while `auth.HashPassword()` calling: %w",
			err,
		)
	}

	transaction, err := s.db.BeginTransaction()
	if err != nil {
		return fmt.Errorf(
			"in internal/service/auth.go/ConfirmPasswordReset(): error while `s.db.BeginTransaction()` calling: %w",
			err,
		)
	}

	usr.HashedPassword = hashedPassword
	if err := s.db.UpdateUser(ctx, usr, transaction); err != nil {
		if rollbackErr := s.db.RollbackTransaction(transaction); rollbackErr != nil {
			logger.Log.Debugln("error while `s.db.RollbackTransaction()` calling:", rollbackErr)
		}
		return fmt.Errorf(
			"in internal/service/auth.go/ConfirmPasswordReset(): error while `s.db.UpdateUser()` calling: %w",
			err,
		)
	}
	if err := s.db.MarkPasswordResetTokenUsed(ctx, resetToken.ID, transaction); err != nil {
		if rollbackErr := s.db.RollbackTransaction(transaction); rollbackErr != nil {
			logger.Log.Debugln("error while `s.db.RollbackTransaction()` calling:", rollbackErr)
		}
		return fmt.Errorf(
			"in internal/service/auth.go/ConfirmPasswordReset(): error while `s.db.MarkPasswordResetTokenUsed()` calling: %w",
			err,
		)
	}

	if err := s.db.CommitTransaction(transaction); err != nil {
		return fmt.Errorf(
			"in internal/service/auth.go/ConfirmPasswordReset(): error while `s.db.CommitTransaction()` calling: %w",
			err,
		)
	}

	return nil
}

func (s *Service) issueToken(userID string) (*models.TokenResponse, error) {
	token, err := s.tokens.BuildToken(userID)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/service/auth.go/issueToken(): error while `s.tokens.BuildToken()` calling: %w",
			err,
		)
	}

	return &models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	}, nil
}

func generateResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf(
			"in internal/service/auth.go/generateResetToken(): error while `rand.Read()` calling: %w",
			err,
		)
	}

	return hex.EncodeToString(buf), nil
}
