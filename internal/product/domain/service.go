package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateCategory(ctx context.Context, req CreateCategoryRequest) (*ProductCategory, error)
	CreateTemplate(ctx context.Context, req CreateTemplateRequest) (*ProductTemplate, error)
	// EnsureRootCategory returns the Telecom root, creating it when missing.
	EnsureRootCategory(ctx context.Context) (*ProductCategory, error)
	RootCategoryID(ctx context.Context) (snowflake.ID, error)
	ResolveTelecomService(ctx context.Context, companyID snowflake.ID, ref ServiceRef) (*TelecomService, error)
	TelecomServices(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]TelecomService, error)
}

// ServiceRef names a template by id, by name, or both. The id is tried first.
type ServiceRef struct {
	ID   *snowflake.ID
	Name string
}

type CreateCategoryRequest struct {
	Name     string
	Code     string
	ParentID *snowflake.ID
}

type CreateTemplateRequest struct {
	Name        string
	DefaultCode string
	CategoryID  snowflake.ID
	CompanyID   *snowflake.ID
}

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidCategory     = errors.New("invalid_category")
	ErrNotFound            = errors.New("not_found")
	ErrRootCategoryMissing = errors.New("root_category_missing")
)
