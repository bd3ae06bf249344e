// Package auth implements single-admin authentication: a bcrypt password
// stored in the settings table and short-lived JWT session tokens.
package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenExpiry = 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoPasswordSet      = errors.New("no password has been set")
	ErrPasswordRequired   = errors.New("password is required")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
)

const (
	passwordSettingKey = "auth_password_hash"
	//nolint:gosec // setting name, not a credential
	jwtSecretSettingKey = "auth_jwt_secret"
)

// Service handles authentication operations.
type Service struct {
	db        *sql.DB
	jwtSecret []byte
}

// Claims are the JWT session claims.
type Claims struct {
	jwt.RegisteredClaims
}

// NewService creates an auth service. An empty jwtSecret is loaded from the
// settings table, generated and persisted on first start.
func NewService(db *sql.DB, jwtSecret string) (*Service, error) {
	secret := []byte(jwtSecret)

	if len(secret) == 0 {
		var err error
		secret, err = loadOrGenerateSecret(db)
		if err != nil {
			return nil, err
		}
	}

	return &Service{
		db:        db,
		jwtSecret: secret,
	}, nil
}

func loadOrGenerateSecret(db *sql.DB) ([]byte, error) {
	var stored string
	err := db.QueryRow(`SELECT value FROM settings WHERE key = ?`, jwtSecretSettingKey).Scan(&stored)

	switch {
	case err == nil && stored != "":
		secret, decErr := hex.DecodeString(stored)
		if decErr != nil {
			return nil, fmt.Errorf("failed to decode stored JWT secret: %w", decErr)
		}
		return secret, nil

	case errors.Is(err, sql.ErrNoRows) || (err == nil && stored == ""):
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		_, err := db.Exec(`
			INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
			jwtSecretSettingKey, hex.EncodeToString(secret))
		if err != nil {
			return nil, fmt.Errorf("failed to persist JWT secret: %w", err)
		}
		return secret, nil

	default:
		return nil, fmt.Errorf("failed to load JWT secret: %w", err)
	}
}

// SetPassword sets or updates the admin password.
func (s *Service) SetPassword(ctx context.Context, password string) error {
	if password == "" {
		return ErrPasswordRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		passwordSettingKey, string(hash))
	if err != nil {
		return fmt.Errorf("failed to save password: %w", err)
	}
	return nil
}

// ValidatePassword checks the provided password against the stored hash.
func (s *Service) ValidatePassword(ctx context.Context, password string) error {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, passwordSettingKey).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoPasswordSet
		}
		return fmt.Errorf("failed to load password hash: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// IsPasswordSet reports whether the admin password has been configured.
func (s *Service) IsPasswordSet(ctx context.Context) bool {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM settings WHERE key = ?`, passwordSettingKey).Scan(&count)
	return err == nil && count > 0
}

// GenerateToken creates a new session token.
func (s *Service) GenerateToken() (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "collectarr",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a session token.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
