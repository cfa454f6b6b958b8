// Package services contains server-side business logic. This file implements
// UserService, which handles registration, credential verification, session
// token issuance, and the per-user login activity history.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/univx/authcore/internal/common"
	"github.com/univx/authcore/internal/dbx"
	"github.com/univx/authcore/internal/server/activity"
	"github.com/univx/authcore/internal/server/auth"
	"github.com/univx/authcore/internal/server/config"
	"github.com/univx/authcore/internal/server/models"
	"github.com/univx/authcore/internal/server/repositories/repomanager"
)

// ClientInfo carries the connection metadata of the request that triggered
// an operation, recorded into the user's activity history.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// UserService provides authentication-related operations:
//   - Register: create users and issue a first session token
//   - Login: verify credentials, update activity history, mint tokens
//   - GetByID: fetch a user for authenticated requests
//   - UpdatePassword: rotate a user's password hash
type UserService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	jwtSecret     []byte
	tokenValidity time.Duration
	maxActivity   int
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:            db,
		repomanager:   m,
		jwtSecret:     []byte(cfg.SecretKey),
		tokenValidity: cfg.TokenValidityDuration,
		maxActivity:   cfg.MaxActivityEntries,
	}
}

// Register creates a new user with a salted password hash and an initial
// activity entry, then issues a session token. A taken email yields
// common.ErrorAlreadyExists, missing fields common.ErrorValidation.
func (s *UserService) Register(ctx context.Context, username, email, password string, client ClientInfo) (*models.User, string, error) {
	if username == "" || email == "" || password == "" {
		return nil, "", common.ErrorValidation
	}

	repo := s.repomanager.Users(s.db)

	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, "", common.ErrorAlreadyExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, "", fmt.Errorf("error checking email: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", common.ErrorInternal
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Activity: []models.ActivityEntry{
			activity.NewEntry(client.IP, client.UserAgent, models.ActivityRegister),
		},
	}

	// The unique index still backstops the email check under racing registrations.
	created, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, "", common.ErrorAlreadyExists
		}
		return nil, "", fmt.Errorf("error creating user: %w", err)
	}

	token, err := s.generateToken(created)
	if err != nil {
		return nil, "", common.ErrorInternal
	}
	return created, token, nil
}

// Login verifies the email/password pair, records the login in the user's
// activity history, and issues a session token. Unknown email and wrong
// password are indistinguishable to the caller: both yield
// common.ErrorUnauthorized.
//
// The history read-modify-write runs inside a transaction holding the user's
// row lock, so two simultaneous logins for the same user serialize instead of
// losing an update.
func (s *UserService) Login(ctx context.Context, email, password string, client ClientInfo) (*models.User, string, error) {
	if email == "" || password == "" {
		return nil, "", common.ErrorValidation
	}

	var user *models.User
	err := dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		u, err := repo.GetByEmailForUpdate(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error searching user: %w", err)
		}

		if !auth.CheckPassword(password, u.PasswordHash) {
			return common.ErrorUnauthorized
		}

		entry := activity.NewEntry(client.IP, client.UserAgent, models.ActivityLogin)
		u.Activity = activity.Record(u.Activity, entry, s.maxActivity)

		if err := repo.UpdateActivity(ctx, u.ID, u.Activity); err != nil {
			return fmt.Errorf("error updating activity: %w", err)
		}

		user = u
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return nil, "", common.ErrorUnauthorized
		}
		return nil, "", err
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, "", common.ErrorInternal
	}
	return user, token, nil
}

// GetByID returns the user record for an authenticated subject.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// UpdatePassword verifies the current password and stores a new hash.
// A wrong current password yields common.ErrorUnauthorized.
func (s *UserService) UpdatePassword(ctx context.Context, id, current, newPassword string) error {
	if current == "" || newPassword == "" {
		return common.ErrorValidation
	}

	return dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorNotFound
			}
			return fmt.Errorf("error searching user: %w", err)
		}

		if !auth.CheckPassword(current, user.PasswordHash) {
			return common.ErrorUnauthorized
		}

		hash, err := auth.HashPassword(newPassword)
		if err != nil {
			return common.ErrorInternal
		}

		if err := repo.UpdatePassword(ctx, user.ID, hash); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}
		return nil
	})
}

func (s *UserService) generateToken(user *models.User) (string, error) {
	return auth.GenerateToken(user.ID, user.Email, s.jwtSecret, s.tokenValidity)
}
