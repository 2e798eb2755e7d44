package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"potencialize/internal/apperr"
	"potencialize/internal/models"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// Claims is the JWT payload. Permissions are resolved per request from the
// registry, so role edits apply without re-login.
type Claims struct {
	UserID int64  `json:"user_id"`
	RoleID string `json:"role_id"`
	jwt.RegisteredClaims
}

type AuthService struct {
	deps   Deps
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewAuthService(deps Deps, secret string, ttl time.Duration, issuer string) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{deps: deps.withDefaults(), secret: []byte(secret), ttl: ttl, issuer: issuer}
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt generate: %w", err)
	}
	return string(b), nil
}

type LoginResult struct {
	Token       string      `json:"token"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        models.User `json:"user"`
	Permissions []string    `json:"permissions"`
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	u, err := s.deps.Store.Repos().Users.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.Active {
		return nil, apperr.Forbidden("active account")
	}
	token, exp, err := s.Issue(u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: *u, Permissions: s.deps.Registry.Permissions(u)}, nil
}

func (s *AuthService) Issue(u *models.User) (string, time.Time, error) {
	now := s.deps.Now()
	exp := now.Add(s.ttl)
	claims := Claims{
		UserID: u.ID,
		RoleID: u.RoleID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, exp, nil
}

// Parse accepts only HMAC-signed tokens from this issuer.
func (s *AuthService) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithLeeway(2 * time.Minute), jwt.WithTimeFunc(s.deps.Now)}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}

func (s *AuthService) Permissions(u *models.User) []string {
	return s.deps.Registry.Permissions(u)
}

// Actor loads the user behind a token. Deactivated users are rejected even
// with a valid token.
func (s *AuthService) Actor(ctx context.Context, claims *Claims) (*models.User, error) {
	u, err := s.deps.Store.Repos().Users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, apperr.Forbidden("active account")
	}
	return u, nil
}
