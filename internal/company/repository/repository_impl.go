package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/telecomservice/internal/company/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, company *domain.Company) error {
	return r.db.WithContext(ctx).Create(company).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Company, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repository) FindByName(ctx context.Context, name string) (*domain.Company, error) {
	return r.first(ctx, "name = ?", strings.TrimSpace(name))
}

func (r *repository) first(ctx context.Context, query string, args ...any) (*domain.Company, error) {
	var company domain.Company
	err := r.db.WithContext(ctx).Where(query, args...).Take(&company).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []snowflake.ID) ([]domain.Company, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.Company
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
