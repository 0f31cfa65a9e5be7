// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth provides operator authentication for the worker: bcrypt
// password verification with account lockout, plus optional TOTP as a second
// factor.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/docenty/hunmin/internal/storage"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidCredentials covers bad username and bad password alike, so
	// responses never reveal which accounts exist.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountLocked is returned while a lockout window is active.
	ErrAccountLocked = errors.New("account locked")

	// ErrTOTPRequired is returned when the account has a second factor
	// enrolled and no code was supplied.
	ErrTOTPRequired = errors.New("totp code required")

	// ErrWeakPassword rejects passwords under the minimum length.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
)

const minPasswordLen = 8

// AccountStore is the slice of the storage API the service needs.
type AccountStore interface {
	CreateAccount(ctx context.Context, a storage.Account) error
	GetAccount(ctx context.Context, username string) (storage.Account, error)
	UpdateAccount(ctx context.Context, a storage.Account) error
}

// =============================================================================
// SERVICE
// =============================================================================

// Config carries the authentication policy knobs.
type Config struct {
	BcryptCost       int
	TOTPIssuer       string
	MaxLoginAttempts int
	LockoutDuration  time.Duration
}

// Service authenticates operators against stored accounts.
type Service struct {
	store AccountStore
	cfg   Config

	now func() time.Time
}

// NewService creates an auth service. Zero config fields fall back to safe
// defaults.
func NewService(store AccountStore, cfg Config) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.TOTPIssuer == "" {
		cfg.TOTPIssuer = "hunmin"
	}
	if cfg.MaxLoginAttempts == 0 {
		cfg.MaxLoginAttempts = 3
	}
	if cfg.LockoutDuration == 0 {
		cfg.LockoutDuration = 15 * time.Minute
	}
	return &Service{store: store, cfg: cfg, now: time.Now}
}

// Register creates a new operator account.
func (s *Service) Register(ctx context.Context, username, password string) error {
	if username == "" {
		return errors.New("username is required")
	}
	if len(password) < minPasswordLen {
		return ErrWeakPassword
	}

	if _, err := s.store.GetAccount(ctx, username); err == nil {
		return fmt.Errorf("account %s already exists", username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.store.CreateAccount(ctx, storage.Account{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	})
}

// Authenticate verifies a username/password pair, and the TOTP code when the
// account has one enrolled. Consecutive failures lock the account for the
// configured duration; a successful login clears the counter.
func (s *Service) Authenticate(ctx context.Context, username, password, totpCode string) error {
	account, err := s.store.GetAccount(ctx, username)
	if err != nil {
		return ErrInvalidCredentials
	}

	now := s.now()
	if !account.LockedUntil.IsZero() {
		if now.Before(account.LockedUntil) {
			return fmt.Errorf("%w until %s", ErrAccountLocked, account.LockedUntil.Format(time.RFC3339))
		}
		// Lockout expired.
		account.LockedUntil = time.Time{}
		account.FailedAttempts = 0
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return s.recordFailure(ctx, account)
	}

	if account.TOTPSecret != "" {
		if totpCode == "" {
			return ErrTOTPRequired
		}
		if !totp.Validate(totpCode, account.TOTPSecret) {
			return s.recordFailure(ctx, account)
		}
	}

	account.FailedAttempts = 0
	account.LockedUntil = time.Time{}
	if err := s.store.UpdateAccount(ctx, account); err != nil {
		return fmt.Errorf("clear failure counter: %w", err)
	}
	return nil
}

func (s *Service) recordFailure(ctx context.Context, account storage.Account) error {
	account.FailedAttempts++
	if account.FailedAttempts >= s.cfg.MaxLoginAttempts {
		account.LockedUntil = s.now().Add(s.cfg.LockoutDuration)
	}
	if err := s.store.UpdateAccount(ctx, account); err != nil {
		return fmt.Errorf("record failed attempt: %w", err)
	}
	if !account.LockedUntil.IsZero() {
		return fmt.Errorf("%w until %s", ErrAccountLocked, account.LockedUntil.Format(time.RFC3339))
	}
	return ErrInvalidCredentials
}

// =============================================================================
// TOTP ENROLLMENT
// =============================================================================

// EnrollTOTP generates and stores a TOTP secret for the account, returning
// the otpauth:// provisioning URL for the operator's authenticator app.
func (s *Service) EnrollTOTP(ctx context.Context, username string) (string, error) {
	account, err := s.store.GetAccount(ctx, username)
	if err != nil {
		return "", err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.cfg.TOTPIssuer,
		AccountName: username,
	})
	if err != nil {
		return "", fmt.Errorf("generate totp key: %w", err)
	}

	account.TOTPSecret = key.Secret()
	if err := s.store.UpdateAccount(ctx, account); err != nil {
		return "", fmt.Errorf("store totp secret: %w", err)
	}
	return key.URL(), nil
}

// DisableTOTP removes the enrolled second factor.
func (s *Service) DisableTOTP(ctx context.Context, username string) error {
	account, err := s.store.GetAccount(ctx, username)
	if err != nil {
		return err
	}
	account.TOTPSecret = ""
	return s.store.UpdateAccount(ctx, account)
}
