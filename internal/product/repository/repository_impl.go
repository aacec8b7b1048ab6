package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/telecomservice/internal/product/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) WithTx(tx *gorm.DB) domain.Repository {
	return &repo{db: tx}
}

func (r *repo) CreateCategory(ctx context.Context, category *domain.ProductCategory) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *repo) CreateTemplate(ctx context.Context, template *domain.ProductTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

func (r *repo) FindRootCategory(ctx context.Context, name, code string) (*domain.ProductCategory, error) {
	var category domain.ProductCategory
	err := r.db.WithContext(ctx).
		Where("parent_id IS NULL").
		Where("(code = ? OR name = ?)", strings.TrimSpace(code), strings.TrimSpace(name)).
		Order("id ASC").
		Take(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repo) FindCategoryByID(ctx context.Context, id snowflake.ID) (*domain.ProductCategory, error) {
	var category domain.ProductCategory
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

const serviceColumns = `t.id AS template_id, t.name AS name, t.default_code AS default_code,
	c.id AS category_id, c.name AS category_name, c.code AS category_code, c.parent_id AS category_parent_id`

func (r *repo) servicesQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("product_templates AS t").
		Select(serviceColumns).
		Joins("JOIN product_categories AS c ON c.id = t.category_id")
}

func (r *repo) FindService(ctx context.Context, filter domain.ServiceFilter) (*domain.TelecomService, error) {
	stmt := r.servicesQuery(ctx).
		Where("t.active = ?", true).
		Where("c.parent_id = ?", filter.RootID).
		Where("(t.company_id IS NULL OR t.company_id = ?)", filter.CompanyID)

	switch {
	case filter.ID != nil:
		stmt = stmt.Where("t.id = ?", *filter.ID)
	case strings.TrimSpace(filter.Name) != "":
		stmt = stmt.Where("t.name = ?", strings.TrimSpace(filter.Name))
	default:
		return nil, nil
	}

	var rows []domain.TelecomService
	if err := stmt.Order("t.id ASC").Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) FindServicesByID(ctx context.Context, ids []snowflake.ID) ([]domain.TelecomService, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []domain.TelecomService
	if err := r.servicesQuery(ctx).Where("t.id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
