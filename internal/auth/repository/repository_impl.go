package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/telecomservice/internal/auth/domain"
	"github.com/smallbiznis/telecomservice/pkg/db"
	"gorm.io/gorm"
)

type userRepo struct {
	db *gorm.DB
}

type sessionRepo struct {
	db *gorm.DB
}

// New returns the user and session repositories over one connection.
func New(conn *gorm.DB) (domain.Repository, domain.SessionRepository) {
	return &userRepo{db: conn}, &sessionRepo{db: conn}
}

// first loads one row matching query or returns notFound.
func first[T any](ctx context.Context, conn *gorm.DB, notFound error, query string, args ...any) (*T, error) {
	var row T
	err := conn.WithContext(ctx).Where(query, args...).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, notFound
	case err != nil:
		return nil, err
	}
	return &row, nil
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&count).Error
	return count, err
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrUserExists
		}
		return err
	}
	return nil
}

func (r *userRepo) FindByLogin(ctx context.Context, login string) (*domain.User, error) {
	return first[domain.User](ctx, r.db, domain.ErrUserNotFound, "login = ?", strings.TrimSpace(login))
}

func (r *userRepo) FindByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	return first[domain.User](ctx, r.db, domain.ErrUserNotFound, "id = ?", id)
}

func (r *sessionRepo) CreateSession(ctx context.Context, session *domain.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepo) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	return first[domain.Session](ctx, r.db, domain.ErrSessionNotFound, "session_token_hash = ?", tokenHash)
}

func (r *sessionRepo) UpdateLastSeen(ctx context.Context, sessionID snowflake.ID, lastSeen time.Time) error {
	return r.touch(ctx, r.db.WithContext(ctx).Where("id = ?", sessionID), "last_seen_at", lastSeen)
}

// RevokeSession keeps the first revocation time when called twice.
func (r *sessionRepo) RevokeSession(ctx context.Context, sessionID snowflake.ID, revokedAt time.Time) error {
	err := r.touch(ctx, r.db.WithContext(ctx).Where("id = ? AND revoked_at IS NULL", sessionID), "revoked_at", revokedAt)
	if errors.Is(err, domain.ErrSessionNotFound) {
		if _, lookupErr := first[domain.Session](ctx, r.db, domain.ErrSessionNotFound, "id = ?", sessionID); lookupErr == nil {
			return nil
		}
	}
	return err
}

func (r *sessionRepo) touch(_ context.Context, scoped *gorm.DB, column string, value time.Time) error {
	res := scoped.Model(&domain.Session{}).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
