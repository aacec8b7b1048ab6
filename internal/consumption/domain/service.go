package domain

import "context"

type Service interface {
	Create(ctx context.Context, params Params) (*Record, error)
	CreateMany(ctx context.Context, params []Params) ([]Record, error)
	Get(ctx context.Context, id any) (*Record, error)
	List(ctx context.Context, req ListRequest) ([]Record, error)
	Update(ctx context.Context, id any, params Params) (*Record, error)
	Delete(ctx context.Context, id any) error
	// OnChange previews a record without persisting it.
	OnChange(ctx context.Context, params Params) (*Record, error)
}

type ListRequest struct {
	Limit      int
	Offset     int
	DateFilter any
}
