package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/telecomservice/internal/cache"
	"github.com/smallbiznis/telecomservice/internal/clock"
	"github.com/smallbiznis/telecomservice/internal/company/domain"
	"github.com/smallbiznis/telecomservice/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	companyCacheSize = 256
	companyCacheTTL  = time.Minute
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	log   *zap.Logger
	clock clock.Clock
	genID *snowflake.Node
	repo  domain.Repository
	byID  cache.Cache[snowflake.ID, domain.Company]
}

func NewService(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("company.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
		byID:  cache.NewLRU[snowflake.ID, domain.Company]("telecom_company", companyCacheSize, companyCacheTTL),
	}
}

func (s *Service) Create(ctx context.Context, name string) (*domain.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	company := domain.Company{ID: s.genID.Generate(), Name: name, Active: true, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.Create(ctx, &company); err != nil {
		return nil, err
	}
	s.byID.Set(company.ID, company)
	s.log.Info("company created", zap.Stringer("company_id", company.ID), zap.String("name", name))
	return &company, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Company, error) {
	if cached, ok := s.byID.Get(id); ok {
		return &cached, nil
	}
	company, err := s.repo.FindByID(ctx, id)
	switch {
	case err != nil:
		return nil, err
	case company == nil:
		return nil, domain.ErrNotFound
	}
	s.byID.Set(company.ID, *company)
	return company, nil
}

// EnsureByName returns the named company, creating it when missing. A
// concurrent creator winning the unique index is treated as success.
func (s *Service) EnsureByName(ctx context.Context, name string) (*domain.Company, error) {
	if existing, err := s.repo.FindByName(ctx, name); err != nil || existing != nil {
		return existing, err
	}
	created, err := s.Create(ctx, name)
	if db.IsDuplicateKeyErr(err) {
		return s.repo.FindByName(ctx, name)
	}
	return created, err
}

func (s *Service) Exists(ctx context.Context, id snowflake.ID) (bool, error) {
	if id == 0 {
		return false, nil
	}
	company, err := s.Get(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return company.Active, nil
}

// Names resolves display names, reading only the ids missing from the cache.
func (s *Service) Names(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]string, error) {
	names := make(map[snowflake.ID]string, len(ids))
	var missing []snowflake.ID
	for _, id := range ids {
		if _, seen := names[id]; seen {
			continue
		}
		if cached, ok := s.byID.Get(id); ok {
			names[id] = cached.Name
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return names, nil
	}

	rows, err := s.repo.FindByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		s.byID.Set(row.ID, row)
		names[row.ID] = row.Name
	}
	return names, nil
}
