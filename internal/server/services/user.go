// Package services contains server-side business logic. This file implements
// UserService, which handles registration and login with bcrypt-hashed
// passwords and JWT access tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/geocapsule/internal/common"
	"github.com/dmitrijs2005/geocapsule/internal/server/auth"
	"github.com/dmitrijs2005/geocapsule/internal/server/config"
	"github.com/dmitrijs2005/geocapsule/internal/server/models"
	"github.com/dmitrijs2005/geocapsule/internal/server/repositories/users"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserService provides authentication-related operations:
// - Register: create accounts
// - Login: verify credentials and mint access tokens
type UserService struct {
	users                       users.Repository
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using the users repository and
// server config.
func NewUserService(db *sql.DB, cfg *config.Config) *UserService {
	return &UserService{
		users:                       users.NewPostgresRepository(db),
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Register creates a new user with the given login and password. A taken
// login yields common.ErrLoginAlreadyExists.
func (s *UserService) Register(ctx context.Context, login string, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{ID: uuid.NewString(), Login: login, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrLoginAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return user, nil
}

// Login verifies the provided password against the stored hash and, on
// success, returns a new access token. Unknown logins and wrong passwords
// both yield common.ErrInvalidLoginOrPassword.
func (s *UserService) Login(ctx context.Context, login string, password string) (string, error) {
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrInvalidLoginOrPassword
		}
		return "", common.ErrInternal
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return "", common.ErrInvalidLoginOrPassword
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", common.ErrInternal
	}
	return token, nil
}
