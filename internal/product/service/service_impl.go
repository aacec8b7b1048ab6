package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/telecomservice/internal/cache"
	"github.com/smallbiznis/telecomservice/internal/clock"
	"github.com/smallbiznis/telecomservice/internal/config"
	"github.com/smallbiznis/telecomservice/internal/product/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const rootCacheTTL = 5 * time.Minute

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	GenID      *snowflake.Node
	Repo       domain.Repository
	TelecomCfg *config.TelecomConfigHolder
}

type Service struct {
	log       *zap.Logger
	clock     clock.Clock
	genID     *snowflake.Node
	repo      domain.Repository
	cfg       *config.TelecomConfigHolder
	rootCache cache.Cache[string, snowflake.ID]
}

func New(p Params) domain.Service {
	return &Service{
		log:       p.Log.Named("product.service"),
		clock:     p.Clock,
		genID:     p.GenID,
		repo:      p.Repo,
		cfg:       p.TelecomCfg,
		rootCache: cache.NewLRU[string, snowflake.ID]("telecom_root_category", 8, rootCacheTTL),
	}
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CreateCategoryRequest) (*domain.ProductCategory, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = slug.Make(name)
	}

	if req.ParentID != nil {
		parent, err := s.repo.FindCategoryByID(ctx, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, domain.ErrInvalidCategory
		}
	}

	now := s.clock.Now()
	category := &domain.ProductCategory{
		ID:        s.genID.Generate(),
		Name:      name,
		Code:      code,
		ParentID:  req.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *Service) CreateTemplate(ctx context.Context, req domain.CreateTemplateRequest) (*domain.ProductTemplate, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	category, err := s.repo.FindCategoryByID(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, domain.ErrInvalidCategory
	}

	now := s.clock.Now()
	template := &domain.ProductTemplate{
		ID:          s.genID.Generate(),
		Name:        name,
		DefaultCode: strings.TrimSpace(req.DefaultCode),
		CategoryID:  category.ID,
		CompanyID:   req.CompanyID,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateTemplate(ctx, template); err != nil {
		return nil, err
	}
	return template, nil
}

func (s *Service) EnsureRootCategory(ctx context.Context) (*domain.ProductCategory, error) {
	cfg := s.cfg.Get()
	existing, err := s.repo.FindRootCategory(ctx, cfg.RootCategoryName, cfg.RootCategoryCode)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	created, err := s.CreateCategory(ctx, domain.CreateCategoryRequest{
		Name: cfg.RootCategoryName,
		Code: cfg.RootCategoryCode,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("telecom root category created", zap.String("category_id", created.ID.String()))
	return created, nil
}

func (s *Service) RootCategoryID(ctx context.Context) (snowflake.ID, error) {
	cfg := s.cfg.Get()
	key := cfg.RootCategoryCode + "|" + cfg.RootCategoryName
	if id, ok := s.rootCache.Get(key); ok {
		return id, nil
	}

	root, err := s.repo.FindRootCategory(ctx, cfg.RootCategoryName, cfg.RootCategoryCode)
	if err != nil {
		return 0, err
	}
	if root == nil {
		return 0, domain.ErrRootCategoryMissing
	}
	s.rootCache.Set(key, root.ID)
	return root.ID, nil
}

func (s *Service) ResolveTelecomService(ctx context.Context, companyID snowflake.ID, ref domain.ServiceRef) (*domain.TelecomService, error) {
	rootID, err := s.RootCategoryID(ctx)
	if err != nil {
		return nil, err
	}

	if ref.ID != nil {
		found, err := s.repo.FindService(ctx, domain.ServiceFilter{RootID: rootID, CompanyID: companyID, ID: ref.ID})
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
	}

	if name := strings.TrimSpace(ref.Name); name != "" {
		found, err := s.repo.FindService(ctx, domain.ServiceFilter{RootID: rootID, CompanyID: companyID, Name: name})
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Service) TelecomServices(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]domain.TelecomService, error) {
	rows, err := s.repo.FindServicesByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]domain.TelecomService, len(rows))
	for _, row := range rows {
		out[row.TemplateID] = row
	}
	return out, nil
}
