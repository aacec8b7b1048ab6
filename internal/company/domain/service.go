package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, name string) (*Company, error)
	Get(ctx context.Context, id snowflake.ID) (*Company, error)
	EnsureByName(ctx context.Context, name string) (*Company, error)
	// Exists reports whether an active company with the id exists.
	Exists(ctx context.Context, id snowflake.ID) (bool, error)
	Names(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]string, error)
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrNotFound    = errors.New("not_found")
)
