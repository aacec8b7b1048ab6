package server

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditrepository "github.com/smallbiznis/telecomservice/internal/audit/repository"
	auditservice "github.com/smallbiznis/telecomservice/internal/audit/service"
	authdomain "github.com/smallbiznis/telecomservice/internal/auth/domain"
	authrepository "github.com/smallbiznis/telecomservice/internal/auth/repository"
	authservice "github.com/smallbiznis/telecomservice/internal/auth/service"
	"github.com/smallbiznis/telecomservice/internal/auth/session"
	"github.com/smallbiznis/telecomservice/internal/authorization"
	"github.com/smallbiznis/telecomservice/internal/clock"
	companydomain "github.com/smallbiznis/telecomservice/internal/company/domain"
	companyrepository "github.com/smallbiznis/telecomservice/internal/company/repository"
	companyservice "github.com/smallbiznis/telecomservice/internal/company/service"
	"github.com/smallbiznis/telecomservice/internal/config"
	consumptionrepository "github.com/smallbiznis/telecomservice/internal/consumption/repository"
	consumptionservice "github.com/smallbiznis/telecomservice/internal/consumption/service"
	"github.com/smallbiznis/telecomservice/internal/migration"
	"github.com/smallbiznis/telecomservice/internal/observability"
	productdomain "github.com/smallbiznis/telecomservice/internal/product/domain"
	productrepository "github.com/smallbiznis/telecomservice/internal/product/repository"
	productservice "github.com/smallbiznis/telecomservice/internal/product/service"
	"github.com/smallbiznis/telecomservice/internal/seed"
	"github.com/smallbiznis/telecomservice/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stack struct {
	ts      *testServer
	db      *gorm.DB
	auth    authdomain.Service
	company *companydomain.Company
	mobile  *productdomain.ProductTemplate
}

func newStack(t *testing.T) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.Run(conn))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	telecomCfg := config.NewStaticTelecomConfigHolder(config.DefaultTelecomConfig())
	cfg := config.Config{
		DBName: "telecomservice",
		Bootstrap: config.BootstrapConfig{
			EnsureDefaultAdmin: true,
			AdminLogin:         "admin",
			AdminPassword:      "admin",
			CompanyName:        "Main",
		},
	}

	companies := companyservice.NewService(companyservice.Params{
		Log: log, Clock: fake, GenID: node, Repo: companyrepository.NewRepository(conn),
	})
	products := productservice.New(productservice.Params{
		Log: log, Clock: fake, GenID: node, Repo: productrepository.Provide(conn), TelecomCfg: telecomCfg,
	})
	audit := auditservice.NewService(auditservice.Params{
		DB: conn, Log: log, Clock: fake, GenID: node, Repo: auditrepository.Provide(),
	})
	userRepo, sessionRepo := authrepository.New(conn)
	auth := authservice.New(authservice.Params{
		Log: log, Cfg: cfg, Clock: fake, GenID: node, Repo: userRepo, SessionRepo: sessionRepo,
	})
	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{DB: conn, Log: log, Enforcer: enforcer, AuditSvc: audit})

	ctx := context.Background()
	require.NoError(t, seed.Run(ctx, seed.Params{
		Cfg: cfg, Log: log, Products: products, Companies: companies, Auth: auth, Enforcer: enforcer,
	}))

	company, err := companies.EnsureByName(ctx, "Main")
	require.NoError(t, err)
	root, err := products.EnsureRootCategory(ctx)
	require.NoError(t, err)
	data, err := products.CreateCategory(ctx, productdomain.CreateCategoryRequest{Name: "Data", Code: "data", ParentID: &root.ID})
	require.NoError(t, err)
	mobile, err := products.CreateTemplate(ctx, productdomain.CreateTemplateRequest{Name: "MobileData", DefaultCode: "MD-100", CategoryID: data.ID})
	require.NoError(t, err)

	consumption := consumptionservice.New(consumptionservice.Params{
		DB: conn, Log: log, Clock: fake, GenID: node,
		Repo:     consumptionrepository.Provide(conn),
		Products: products, Companies: companies, Audit: audit, TelecomCfg: telecomCfg,
	})

	engine := NewEngine(observability.Config{}, nil)
	NewServer(ServerParams{
		Gin:            engine,
		Cfg:            cfg,
		TelecomCfg:     telecomCfg,
		Authsvc:        auth,
		Sessions:       session.NewManager(cfg),
		AuthzSvc:       authz,
		AuditSvc:       audit,
		ConsumptionSvc: consumption,
	})

	return &stack{ts: &testServer{engine: engine}, db: conn, auth: auth, company: company, mobile: mobile}
}

func (s *stack) authenticate(t *testing.T, login, password string) string {
	t.Helper()
	_, out := s.ts.call(t, http.MethodPost, basePathV2+"/authenticate", map[string]any{
		"db": "telecomservice", "login": login, "password": password,
	}, "")
	require.Nil(t, out.Error)
	var token string
	require.NoError(t, json.Unmarshal(out.Result, &token))
	require.NotEmpty(t, token)
	return token
}

func decodeRecords(t *testing.T, raw json.RawMessage) []map[string]any {
	t.Helper()
	var records []map[string]any
	require.NoError(t, json.Unmarshal(raw, &records))
	return records
}

func TestEndToEndConsumptionLifecycle(t *testing.T) {
	s := newStack(t)
	token := s.authenticate(t, "admin", "admin")

	_, out := s.ts.call(t, http.MethodPost, basePathV2+"/consumption/create", map[string]any{
		"telecom_service_name":  "MobileData",
		"consumption_timestamp": "2024-06-01 10:30:00",
		"consumption_qty":       10,
		"bogus_field":           "ignored",
	}, token)
	require.Nil(t, out.Error)
	created := decodeRecords(t, out.Result)
	require.Len(t, created, 1)
	assert.Equal(t, "MobileData - 2024-06-01 10:30:00", created[0]["name"])
	assert.Equal(t, "MD-100", created[0]["consumption_reference"])
	assert.Equal(t, "Data", created[0]["category_name"])
	assert.NotContains(t, created[0], "bogus_field")
	assert.Equal(t, []any{s.company.ID.String(), "Main"}, created[0]["company_id"])
	id, ok := created[0]["id"].(string)
	require.True(t, ok)

	_, out = s.ts.call(t, http.MethodGet, basePathV2+"/consumption/"+id, nil, token)
	require.Nil(t, out.Error)
	assert.Len(t, decodeRecords(t, out.Result), 1)

	_, out = s.ts.call(t, http.MethodGet, basePathV2+"/consumption/list?date_filter=2024-05-31", nil, token)
	require.Nil(t, out.Error)
	assert.Len(t, decodeRecords(t, out.Result), 1)

	_, out = s.ts.call(t, http.MethodGet, basePathV2+"/consumption/list?date_filter=2024-06-02", nil, token)
	require.Nil(t, out.Error)
	assert.Empty(t, decodeRecords(t, out.Result))

	_, out = s.ts.call(t, http.MethodPut, basePathV2+"/consumption/update/"+id, map[string]any{
		"consumption_qty": 25,
	}, token)
	require.Nil(t, out.Error)
	updated := decodeRecords(t, out.Result)
	require.Len(t, updated, 1)
	assert.EqualValues(t, 25, updated[0]["consumption_qty"])

	_, out = s.ts.call(t, http.MethodDelete, basePathV2+"/consumption/delete/"+id, nil, token)
	require.Nil(t, out.Error)

	_, out = s.ts.call(t, http.MethodDelete, basePathV2+"/consumption/delete/"+id, nil, token)
	require.NotNil(t, out.Error)
	assert.Equal(t, CodeNotFound, out.Error.Code)
}

func TestEndToEndValidationMessage(t *testing.T) {
	s := newStack(t)
	token := s.authenticate(t, "admin", "admin")

	_, out := s.ts.call(t, http.MethodPost, basePathV2+"/consumption/create", map[string]any{
		"product_tmpl_id":       s.mobile.ID.String(),
		"consumption_timestamp": "2024-06-01 10:30:00",
		"consumption_qty":       -1,
	}, token)
	require.NotNil(t, out.Error)
	assert.Equal(t, CodeUserError, out.Error.Code)
}

func TestEndToEndReadonlyCannotCreate(t *testing.T) {
	s := newStack(t)
	_, err := s.auth.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Login: "viewer", Password: "viewer", CompanyID: s.company.ID, Role: authdomain.RoleReadonly,
	})
	require.NoError(t, err)
	token := s.authenticate(t, "viewer", "viewer")

	_, out := s.ts.call(t, http.MethodPost, basePathV2+"/consumption/create", map[string]any{
		"telecom_service_name":  "MobileData",
		"consumption_timestamp": "2024-06-01 10:30:00",
		"consumption_qty":       1,
	}, token)
	require.NotNil(t, out.Error)
	assert.Equal(t, CodeAccessError, out.Error.Code)

	_, out = s.ts.call(t, http.MethodGet, basePathV2+"/consumption/list", nil, token)
	require.Nil(t, out.Error)
}

func TestEndToEndGenerationOneCredentials(t *testing.T) {
	s := newStack(t)

	_, out := s.ts.call(t, http.MethodPost, basePathV1+"/consumption/create", map[string]any{
		"db":                    "telecomservice",
		"login":                 "admin",
		"password":              "admin",
		"telecom_service_name":  "MobileData",
		"consumption_timestamp": "2024-06-01 10:30:00",
		"consumption_qty":       3,
	}, "")
	require.Nil(t, out.Error)
	require.Len(t, decodeRecords(t, out.Result), 1)

	_, out = s.ts.call(t, http.MethodPost, basePathV1+"/consumption/list", map[string]any{
		"login": "admin", "password": "admin",
	}, "")
	require.Nil(t, out.Error)

	var sessions []authdomain.Session
	require.NoError(t, s.db.Find(&sessions).Error)
	require.Len(t, sessions, 2)
	for _, sess := range sessions {
		assert.NotNil(t, sess.RevokedAt)
	}

	_, out = s.ts.call(t, http.MethodPost, basePathV1+"/consumption/list", map[string]any{
		"login": "admin", "password": "wrong",
	}, "")
	require.NotNil(t, out.Error)
	assert.Equal(t, CodeAccessDenied, out.Error.Code)
	assert.Equal(t, "access_denied", out.Error.Data.Name)
}
