package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, company *Company) error
	FindByID(ctx context.Context, id snowflake.ID) (*Company, error)
	FindByName(ctx context.Context, name string) (*Company, error)
	FindByIDs(ctx context.Context, ids []snowflake.ID) ([]Company, error)
}
