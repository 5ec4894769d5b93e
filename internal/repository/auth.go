package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/apperr"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
)

type AuthRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CountUsers(ctx context.Context) (int, error)
}

type authRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewAuthRepository(db *sqlx.DB, logger *zap.Logger) AuthRepository {
	return &authRepository{db: db, logger: logger}
}

func (r *authRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = storageClock.Now()
	query := r.db.Rebind(`INSERT INTO users (email, password_hash, role, created_at) VALUES (?, ?, ?, ?) RETURNING id`)
	err := write(ctx, func() error {
		return r.db.QueryRowxContext(ctx, query, user.Email, user.PasswordHash, user.Role, user.CreatedAt).Scan(&user.ID)
	})
	if err != nil {
		r.logger.Error("Failed to create user", zap.Error(err))
		return err
	}
	return nil
}

// GetUserByEmail returns a NotFound error when no such user exists.
func (r *authRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(`SELECT id, email, password_hash, role, created_at FROM users WHERE email = ?`)
	err := read(ctx, func() error {
		return r.db.GetContext(ctx, &user, query, strings.ToLower(strings.TrimSpace(email)))
	})
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("User not found.")
		}
		return nil, err
	}
	return &user, nil
}

func (r *authRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := read(ctx, func() error {
		return r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
