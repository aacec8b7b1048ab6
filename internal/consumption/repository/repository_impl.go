package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/telecomservice/internal/consumption/domain"
	"github.com/smallbiznis/telecomservice/pkg/db/option"
	"github.com/smallbiznis/telecomservice/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Repository[domain.ConsumptionRecord]
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{store: repository.ProvideStore[domain.ConsumptionRecord](db)}
}

func (r *repo) WithTx(tx *gorm.DB) domain.Repository {
	return &repo{store: r.store.WithTx(tx)}
}

// FindByID returns nil, nil when the record does not exist.
func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.ConsumptionRecord, error) {
	return r.store.FindOne(ctx, nil, option.WithWhere("id = ?", id))
}

func (r *repo) Query(ctx context.Context, filter domain.Filter, limit, offset int, order string) ([]domain.ConsumptionRecord, error) {
	opts := []option.QueryOption{}
	if filter.Since != nil {
		opts = append(opts, option.WithWhere("consumption_timestamp >= ?", filter.Since.UTC()))
	}
	if order == "" {
		order = domain.DefaultOrder
	}
	opts = append(opts,
		option.WithOrder(order),
		option.WithLimit(limit),
		option.WithOffset(offset),
	)

	rows, err := r.store.Find(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ConsumptionRecord, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *repo) Insert(ctx context.Context, record *domain.ConsumptionRecord) error {
	return r.store.Create(ctx, record)
}

func (r *repo) InsertMany(ctx context.Context, records []*domain.ConsumptionRecord) error {
	return r.store.BatchCreate(ctx, records)
}

func (r *repo) Update(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	affected, err := r.store.Update(ctx, id, fields)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, id snowflake.ID) error {
	affected, err := r.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
