// Package auth handles account registration and credential verification.
// Successful logins are exchanged for signed access tokens by the caller;
// this package never mints tokens itself.
package auth

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/foodbridge/foodbridge/internal/database"
	"github.com/foodbridge/foodbridge/internal/notify"
	"github.com/foodbridge/foodbridge/pkg/identity"
	"github.com/foodbridge/foodbridge/pkg/models"
)

const bcryptCost = 12

const dispatchTimeout = 10 * time.Second

// Service handles authentication operations.
type Service struct {
	db         *database.DB
	dispatcher notify.Dispatcher
}

// New creates a new auth service.
func New(db *database.DB, dispatcher notify.Dispatcher) *Service {
	return &Service{db: db, dispatcher: dispatcher}
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func CheckPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// Signup registers a new account and its profile. The email is normalized
// before storage so Gmail aliases cannot create duplicate accounts. On
// success a welcome email event is published best-effort.
func (s *Service) Signup(ctx context.Context, email, password, fullName, phone, location string) (*models.User, error) {
	email = identity.NormalizeEmail(email)

	existing, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	profile := &models.Profile{
		ID:        user.ID,
		FullName:  fullName,
		Phone:     phone,
		Location:  location,
		CreatedAt: now,
	}
	if err := s.db.CreateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	s.dispatch(notify.Event{
		ID:        uuid.New().String(),
		Type:      notify.EventUserWelcomed,
		UserID:    user.ID,
		UserName:  fullName,
		UserEmail: email,
	})

	return user, nil
}

// Login verifies credentials and returns the account on success.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.db.GetUserByEmail(ctx, identity.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// dispatch publishes ev detached from the request; a failed welcome email
// never fails the signup.
func (s *Service) dispatch(ev notify.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := s.dispatcher.Dispatch(ctx, ev); err != nil {
			log.Printf("auth: failed to publish %s event for %s: %v", ev.Type, ev.UserID, err)
		}
	}()
}
