package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/apperr"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/repository"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

var errInvalidCredentials = apperr.Unauthorized("Invalid email or password.")

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	ParseToken(tokenString string) (*models.Principal, error)
	EnsureUser(ctx context.Context, email, password, role string) (bool, error)
}

type authService struct {
	repo     repository.AuthRepository
	secret   []byte
	tokenTTL time.Duration
	logger   *zap.Logger
}

func NewAuthService(repo repository.AuthRepository, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) AuthService {
	return &authService{
		repo:     repo,
		secret:   []byte(jwtSecret),
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// Login verifies credentials and returns a signed HS256 token.
func (s *authService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", errInvalidCredentials
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			// Burn comparable time so unknown emails are not distinguishable.
			_ = verifyPassword(dummyHash, password)
			return "", errInvalidCredentials
		}
		return "", err
	}

	if !verifyPassword(user.PasswordHash, password) {
		return "", errInvalidCredentials
	}

	now := time.Now()
	claims := &models.Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		s.logger.Error("Failed to generate JWT token", zap.Error(err))
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("User logged in successfully.", zap.Int64("user_id", user.ID))
	return tokenString, nil
}

// ParseToken validates the token and returns the caller it names.
func (s *authService) ParseToken(tokenString string) (*models.Principal, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthorized("Token expired.")
		}
		return nil, apperr.Unauthorized("Invalid authentication credentials.")
	}
	if !token.Valid || claims.Subject == "" {
		return nil, apperr.Unauthorized("Invalid authentication credentials.")
	}

	role := claims.Role
	if role == "" {
		role = models.DefaultRole
	}
	return &models.Principal{Email: claims.Subject, Role: role}, nil
}

// EnsureUser creates the user if no account with that email exists. It
// reports whether a user was created.
func (s *authService) EnsureUser(ctx context.Context, email, password, role string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, apperr.InvalidInput("Email and password are required.")
	}
	if role == "" {
		role = models.DefaultRole
	}

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return false, nil
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return false, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.CreateUser(ctx, &models.User{Email: email, PasswordHash: hash, Role: role}); err != nil {
		return false, err
	}
	s.logger.Info("User created", zap.String("role", role))
	return true, nil
}

// dummyHash is verified against when the email is unknown.
var dummyHash, _ = hashPassword("cyber-guard-dummy-password")

// hashPassword uses Argon2id: $argon2id$v=19$m=65536,t=1,p=4$BASE64_SALT$BASE64_HASH
func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s", argon2.Version, argonMemory, argonTime, argonThreads, encodedSalt, encodedHash), nil
}

// verifyPassword compares a plaintext password with an encoded Argon2id hash.
func verifyPassword(encoded, password string) bool {
	// ["", "argon2id", "v=19", "m=65536,t=1,p=4", "salt", "hash"]
	sections := strings.Split(encoded, "$")
	if len(sections) != 6 || sections[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(sections[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}
	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(sections[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(sections[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(sections[5])
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(password), salt, t, m, p, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
