package auth

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwren/castellan/internal/dependencies/clock"
	"github.com/jwren/castellan/internal/model"
	"github.com/jwren/castellan/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUsernameExists     = errors.New("username already exists")
)

// Claims are the contents of a lobby auth token
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Config holds configuration for the auth service
type Config struct {
	TokenDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		TokenDuration: 24 * time.Hour,
	}
}

// Service handles account registration, login and auth-token validation.
// Tokens carry only the username; the profile (block list, permissions) is
// always re-read from storage so it cannot go stale across reconnects.
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	secret  []byte

	tokenDuration time.Duration
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, secret []byte, cfg Config) *Service {
	if cfg.TokenDuration == 0 {
		cfg.TokenDuration = DefaultConfig().TokenDuration
	}
	return &Service{
		storage:       storage,
		clock:         clock,
		secret:        secret,
		tokenDuration: cfg.TokenDuration,
	}
}

// Register creates a new account and returns its profile
func (s *Service) Register(ctx context.Context, username model.Username, password, email string) (*model.UserDetails, error) {
	_, err := s.storage.GetUser(ctx, username)
	if err == nil {
		return nil, ErrUsernameExists
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.UserDetails{
		Username:     username,
		EmailHash:    gravatarHash(email),
		PasswordHash: string(hash),
		BlockList:    []string{},
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and returns a signed auth token plus profile
func (s *Service) Login(ctx context.Context, username model.Username, password string) (string, *model.UserDetails, error) {
	user, err := s.storage.GetUser(ctx, username)
	if errors.Is(err, model.ErrUserNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// IssueToken signs an auth token for the given user
func (s *Service) IssueToken(user *model.UserDetails) (string, error) {
	now := s.clock.Now()
	claims := Claims{
		Username: string(user.Username),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user.Username),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenDuration)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ValidateToken verifies a token and loads the authenticated user's
// current profile
func (s *Service) ValidateToken(ctx context.Context, tokenStr string) (*model.UserDetails, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Username == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.storage.GetUser(ctx, model.Username(claims.Username))
	if err != nil {
		return nil, err
	}
	return user, nil
}

// gravatarHash computes the avatar hash for an email address
func gravatarHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}
