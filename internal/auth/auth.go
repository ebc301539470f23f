// Package auth issues and verifies session tokens and password hashes.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/zapponejosh/parish-api/internal/database"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned for malformed, expired or foreign tokens.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrWeakPassword is returned when a password is too short.
	ErrWeakPassword = errors.New("password must be at least 8 characters")

	// ErrInvalidUser is returned when account fields are malformed.
	ErrInvalidUser = errors.New("invalid user")
)

const (
	minPasswordLen = 8
	issuer         = "parish-api"
)

// Claims is the JWT payload.
type Claims struct {
	UserID int64         `json:"uid"`
	Role   database.Role `json:"role"`
	jwt.RegisteredClaims
}

// Service signs users in and resolves tokens back to users.
type Service struct {
	db     *database.DB
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates an auth service. An empty secret is replaced with a
// random one, so tokens do not survive a restart.
func NewService(db *database.DB, secret string, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("auth: generate secret: %v", err))
		}
		logger.Warn("JWT_SECRET not set, using an ephemeral signing key")
	}
	return &Service{
		db:     db,
		secret: key,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken signs a token for u and returns it with its expiry.
func (s *Service) IssueToken(u *database.User) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)

	claims := Claims{
		UserID: u.ID,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// ParseToken verifies a token's signature and expiry.
func (s *Service) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Login checks credentials and returns a signed token with the user.
func (s *Service) Login(ctx context.Context, email, password string) (string, *database.User, error) {
	u, err := s.db.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		s.logger.Warn("failed login", slog.Int64("user_id", u.ID))
		return "", nil, ErrInvalidCredentials
	}

	token, _, err := s.IssueToken(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Authenticate resolves a token to the current state of its user. Tokens of
// deleted users are rejected.
func (s *Service) Authenticate(ctx context.Context, token string) (*database.User, error) {
	claims, err := s.ParseToken(token)
	if err != nil {
		return nil, err
	}
	u, err := s.db.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	return u, err
}

// NewUser is the input for CreateUser.
type NewUser struct {
	Email    string        `json:"email"`
	Name     string        `json:"name"`
	Password string        `json:"password"`
	Role     database.Role `json:"role"`
}

// CreateUser validates the input, hashes the password and stores the account.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (*database.User, error) {
	email := strings.TrimSpace(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email %q", ErrInvalidUser, in.Email)
	}
	if in.Role != "" && !in.Role.IsValid() {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidUser, in.Role)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &database.User{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		Role:         in.Role,
		PasswordHash: hash,
	}
	if err := s.db.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user created", slog.Int64("user_id", u.ID), slog.String("role", string(u.Role)))
	return u, nil
}

// HasRole reports whether u holds one of roles.
func HasRole(u *database.User, roles ...database.Role) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
