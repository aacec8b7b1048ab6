package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ServiceFilter constrains template lookups to one category subtree and one company's visibility.
type ServiceFilter struct {
	RootID    snowflake.ID
	CompanyID snowflake.ID
	ID        *snowflake.ID
	Name      string
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateCategory(ctx context.Context, category *ProductCategory) error
	CreateTemplate(ctx context.Context, template *ProductTemplate) error
	FindRootCategory(ctx context.Context, name, code string) (*ProductCategory, error)
	FindCategoryByID(ctx context.Context, id snowflake.ID) (*ProductCategory, error)
	FindService(ctx context.Context, filter ServiceFilter) (*TelecomService, error)
	FindServicesByID(ctx context.Context, ids []snowflake.ID) ([]TelecomService, error)
}
