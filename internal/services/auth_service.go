// Package services – AuthService
//
// This file implements registration, login and profile lookup. Usernames are
// NFC-normalized and emails lowercased before they reach the unique indexes,
// so visually identical inputs collide as expected. Passwords are hashed by an
// injected PasswordHasher and sessions are minted by an injected TokenIssuer.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-task-backend/internal/domain"
	"github.com/tbourn/go-task-backend/internal/repo"
)

// Field limits for user accounts. Passwords are capped at 72 bytes, the
// longest input bcrypt takes into account.
const (
	MaxUsernameLen = 80
	MaxEmailLen    = 100
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

// UserRepo defines the repository contract required by AuthService.
type UserRepo interface {
	// CreateUser inserts u; a unique violation is reported as repo.ErrDuplicate.
	CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error

	// GetUserByID fetches a user by primary key.
	GetUserByID(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error)

	// GetUserByUsername fetches a user by exact (normalized) username.
	GetUserByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) ([]byte, error)
	Check(hash []byte, password string) (bool, error)
}

// TokenIssuer mints access tokens whose subject is the user id.
type TokenIssuer interface {
	Issue(userID uint) (string, time.Time, error)
}

// Registration is the input of Register.
type Registration struct {
	Username string
	Email    string
	Password string
}

// Session is the outcome of a successful Register or Login.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService provides account operations.
type AuthService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the user repository used by this service.
	Repo UserRepo
	// Hasher hashes passwords on registration and checks them on login.
	Hasher PasswordHasher
	// Tokens issues the access token returned in a Session.
	Tokens TokenIssuer
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, r UserRepo, h PasswordHasher, t TokenIssuer) *AuthService {
	return &AuthService{
		DB:     db,
		Repo:   r,
		Hasher: h,
		Tokens: t,
	}
}

// Register creates an account and returns a session for it.
// A taken username or email yields a conflict_error.
func (s *AuthService) Register(ctx context.Context, in Registration) (*Session, error) {
	username := normalizeUsername(in.Username)
	if n := utf8.RuneCountInString(username); n == 0 || n > MaxUsernameLen {
		return nil, invalidField("username", "must be between 1 and %d characters", MaxUsernameLen)
	}
	email := normalizeEmail(in.Email)
	if email == "" || len(email) > MaxEmailLen || !strings.Contains(email, "@") {
		return nil, invalidField("email", "must be a valid address of at most %d characters", MaxEmailLen)
	}
	if n := len(in.Password); n < MinPasswordLen || n > MaxPasswordLen {
		return nil, invalidField("password", "must be between %d and %d bytes", MinPasswordLen, MaxPasswordLen)
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &domain.User{Username: username, Email: email, Password: hash}
	if err := s.Repo.CreateUser(ctx, s.DB, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, duplicateUser(username)
		}
		return nil, err
	}
	return s.session(u)
}

// Login verifies credentials and returns a fresh session.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	username = normalizeUsername(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.Repo.GetUserByUsername(ctx, s.DB, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	ok, err := s.Hasher.Check(u.Password, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

// GetUser returns the account identified by id.
func (s *AuthService) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	u, err := s.Repo.GetUserByID(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *AuthService) session(u *domain.User) (*Session, error) {
	tok, exp, err := s.Tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: tok, ExpiresAt: exp}, nil
}

// normalizeEmail trims and lowercases an address. A Caser keeps state, so a
// new one is built per call.
func normalizeEmail(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

// normalizeUsername trims whitespace and applies Unicode NFC.
func normalizeUsername(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
