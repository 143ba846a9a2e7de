// Package auth provides password hashing, JWT access token management
// and the middleware that authenticates API requests. Tokens are
// carried in the Authorization header, with or without the "Bearer"
// prefix.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mvolkov/biotap/internal/logger"
	"github.com/mvolkov/biotap/internal/models"
	"github.com/mvolkov/biotap/internal/user"
)

type userKeeper interface {
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
}

// Auth issues and verifies access tokens and hashes passwords.
type Auth struct {
	db userKeeper

	// signingSecretKey is the key used to sign JWTs.
	signingSecretKey []byte

	tokenTTL time.Duration
}

// Claims represents the JWT claims used by the system.
// It embeds standard JWT claims and adds a user-specific identifier.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserKey is the context key used to store and retrieve the authenticated user.
const UserKey ContextKey = "authUser"

// ErrNoToken is returned when a request carries no usable token.
var ErrNoToken = errors.New("missing or invalid access token")

// New creates a new Auth handler with the given user data access layer,
// JWT signing secret and token lifetime.
func New(db userKeeper, signingSecretKey []byte, tokenTTL time.Duration) *Auth {
	return &Auth{
		db:               db,
		signingSecretKey: signingSecretKey,
		tokenTTL:         tokenTTL,
	}
}

// HashPassword returns the bcrypt hash of a plain text password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("in internal/auth/auth.go/HashPassword(): error while `bcrypt.GenerateFromPassword()` calling: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword reports whether a plain password matches a bcrypt hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BuildToken issues a signed access token for the given user ID.
func (a *Auth) BuildToken(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(a.signingSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies a token string and returns the user ID it carries.
func (a *Auth) ParseToken(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingSecretKey, nil
		},
	)
	if err != nil || !token.Valid || claims.UserID == "" {
		return "", ErrNoToken
	}

	return claims.UserID, nil
}

// RequireUser is an HTTP middleware that authenticates incoming requests
// using the JWT found in the Authorization header. It fetches the user
// from storage, rejects disabled accounts and stores the user in the
// request context.
func (a *Auth) RequireUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		tokenString := tokenFromHeader(request)
		if tokenString == "" {
			http.Error(response, ErrNoToken.Error(), http.StatusUnauthorized)
			return
		}

		userID, err := a.ParseToken(tokenString)
		if err != nil {
			http.Error(response, ErrNoToken.Error(), http.StatusUnauthorized)
			return
		}

		usr, err := a.db.GetUserByID(request.Context(), userID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				http.Error(response, ErrNoToken.Error(), http.StatusUnauthorized)
				return
			}
			logger.Log.Debugln("Error calling the `a.db.GetUserByID()`: ", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}

		if !usr.IsActive {
			http.Error(response, models.ErrInactiveUser.Error(), http.StatusBadRequest)
			return
		}

		ctx := context.WithValue(request.Context(), UserKey, usr)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// UserFromContext returns the authenticated user stored by RequireUser.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	usr, ok := ctx.Value(UserKey).(*user.User)
	return usr, ok
}

func tokenFromHeader(request *http.Request) string {
	header := request.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
}
