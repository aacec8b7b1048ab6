package seed

import (
	"context"
	"errors"
	"time"

	"github.com/casbin/casbin/v2"
	authdomain "github.com/smallbiznis/telecomservice/internal/auth/domain"
	companydomain "github.com/smallbiznis/telecomservice/internal/company/domain"
	"github.com/smallbiznis/telecomservice/internal/config"
	productdomain "github.com/smallbiznis/telecomservice/internal/product/domain"
	"github.com/smallbiznis/telecomservice/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	lockKey = "telecomservice:seed:lock"
	lockTTL = 30 * time.Second
)

type Params struct {
	fx.In

	Cfg       config.Config
	Log       *zap.Logger
	Products  productdomain.Service
	Companies companydomain.Service
	Auth      authdomain.Service
	Enforcer  *casbin.SyncedEnforcer
	Locker    *ratelimit.Locker `optional:"true"`
}

var Module = fx.Module("seed",
	fx.Invoke(func(lc fx.Lifecycle, p Params) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return Run(ctx, p)
			},
		})
	}),
)

// Run creates the Telecom root category, the default company and, when
// enabled, the bootstrap admin. Safe to run on every start.
func Run(ctx context.Context, p Params) error {
	log := p.Log.Named("seed")

	if p.Locker != nil {
		lease, err := p.Locker.Acquire(ctx, lockKey, lockTTL)
		switch {
		case errors.Is(err, ratelimit.ErrLockHeld):
			log.Info("seed already running on another instance")
			return nil
		case err != nil:
			log.Warn("seed lock unavailable, continuing without it", zap.Error(err))
		default:
			defer func() {
				if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
					log.Warn("failed to release seed lock", zap.Error(err))
				}
			}()
		}
	}

	root, err := p.Products.EnsureRootCategory(ctx)
	if err != nil {
		return err
	}

	company, err := p.Companies.EnsureByName(ctx, p.Cfg.Bootstrap.CompanyName)
	if err != nil {
		return err
	}

	if p.Cfg.Bootstrap.EnsureDefaultAdmin {
		_, err := p.Auth.CreateUser(ctx, authdomain.CreateUserRequest{
			Login:     p.Cfg.Bootstrap.AdminLogin,
			Password:  p.Cfg.Bootstrap.AdminPassword,
			CompanyID: company.ID,
			Role:      authdomain.RoleAdmin,
		})
		switch {
		case err == nil:
			log.Info("bootstrap admin created", zap.String("login", p.Cfg.Bootstrap.AdminLogin))
		case errors.Is(err, authdomain.ErrUserExists):
		default:
			return err
		}
	}

	policies, err := p.Enforcer.GetPolicy()
	if err != nil {
		return err
	}

	log.Info("seed complete",
		zap.String("root_category_id", root.ID.String()),
		zap.String("company_id", company.ID.String()),
		zap.Int("policies", len(policies)),
	)
	return nil
}
