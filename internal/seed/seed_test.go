package seed

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/telecomservice/internal/auth/domain"
	authrepository "github.com/smallbiznis/telecomservice/internal/auth/repository"
	authservice "github.com/smallbiznis/telecomservice/internal/auth/service"
	"github.com/smallbiznis/telecomservice/internal/authorization"
	"github.com/smallbiznis/telecomservice/internal/clock"
	companydomain "github.com/smallbiznis/telecomservice/internal/company/domain"
	companyrepository "github.com/smallbiznis/telecomservice/internal/company/repository"
	companyservice "github.com/smallbiznis/telecomservice/internal/company/service"
	"github.com/smallbiznis/telecomservice/internal/config"
	"github.com/smallbiznis/telecomservice/internal/migration"
	productdomain "github.com/smallbiznis/telecomservice/internal/product/domain"
	productrepository "github.com/smallbiznis/telecomservice/internal/product/repository"
	productservice "github.com/smallbiznis/telecomservice/internal/product/service"
	"github.com/smallbiznis/telecomservice/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newParams(t *testing.T, ensureAdmin bool) (Params, *gorm.DB) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.Run(conn))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	cfg := config.Config{
		DBName: "telecomservice",
		Bootstrap: config.BootstrapConfig{
			EnsureDefaultAdmin: ensureAdmin,
			AdminLogin:         "admin",
			AdminPassword:      "admin",
			CompanyName:        "Main",
		},
	}

	repo, sessionRepo := authrepository.New(conn)
	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)

	return Params{
		Cfg: cfg,
		Log: log,
		Products: productservice.New(productservice.Params{
			Log: log, Clock: fake, GenID: node, Repo: productrepository.Provide(conn),
			TelecomCfg: config.NewStaticTelecomConfigHolder(config.DefaultTelecomConfig()),
		}),
		Companies: companyservice.NewService(companyservice.Params{
			Log: log, Clock: fake, GenID: node, Repo: companyrepository.NewRepository(conn),
		}),
		Auth: authservice.New(authservice.Params{
			Log: log, Cfg: cfg, Clock: fake, GenID: node, Repo: repo, SessionRepo: sessionRepo,
		}),
		Enforcer: enforcer,
	}, conn
}

func TestRunIsIdempotent(t *testing.T) {
	p, conn := newParams(t, true)
	ctx := context.Background()

	require.NoError(t, Run(ctx, p))
	require.NoError(t, Run(ctx, p))

	var companies, users, roots int64
	require.NoError(t, conn.Model(&companydomain.Company{}).Where("name = ?", "Main").Count(&companies).Error)
	require.NoError(t, conn.Model(&authdomain.User{}).Where("login = ?", "admin").Count(&users).Error)
	require.NoError(t, conn.Model(&productdomain.ProductCategory{}).Where("parent_id IS NULL AND code = ?", "telecom").Count(&roots).Error)
	assert.Equal(t, int64(1), companies)
	assert.Equal(t, int64(1), users)
	assert.Equal(t, int64(1), roots)
}

func TestSeededAdminCanLogin(t *testing.T) {
	p, conn := newParams(t, true)
	ctx := context.Background()
	require.NoError(t, Run(ctx, p))

	res, err := p.Auth.Login(ctx, authdomain.LoginRequest{Login: "admin", Password: "admin"})
	require.NoError(t, err)
	assert.Equal(t, authdomain.RoleAdmin, res.Identity.Role)

	var user authdomain.User
	require.NoError(t, conn.Where("login = ?", "admin").First(&user).Error)
	var company companydomain.Company
	require.NoError(t, conn.First(&company, "id = ?", user.CompanyID).Error)
	assert.Equal(t, "Main", company.Name)
}

func TestRunWithoutAdmin(t *testing.T) {
	p, conn := newParams(t, false)
	require.NoError(t, Run(context.Background(), p))

	var users int64
	require.NoError(t, conn.Model(&authdomain.User{}).Count(&users).Error)
	assert.Zero(t, users)
}
