// Package repository provides a generic gorm store for single-table models.
package repository

import (
	"context"

	"github.com/smallbiznis/telecomservice/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic gorm-backed store for a single model type.
// Filters passed as *T match on their non-zero fields.
type Repository[T any] interface {
	WithTx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, filter *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	BatchCreate(ctx context.Context, resources []*T) error
	Update(ctx context.Context, id any, changes any) (int64, error)
	Delete(ctx context.Context, id any) (int64, error)
}
