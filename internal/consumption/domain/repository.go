package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// DefaultOrder is the listing order: newest consumption first.
const DefaultOrder = "consumption_timestamp desc, id desc"

// Filter narrows a record query. Zero values do not filter.
type Filter struct {
	Since *time.Time
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id snowflake.ID) (*ConsumptionRecord, error)
	Query(ctx context.Context, filter Filter, limit, offset int, order string) ([]ConsumptionRecord, error)
	Insert(ctx context.Context, record *ConsumptionRecord) error
	InsertMany(ctx context.Context, records []*ConsumptionRecord) error
	Update(ctx context.Context, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, id snowflake.ID) error
}
