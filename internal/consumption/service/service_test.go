package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/telecomservice/internal/audit/domain"
	auditrepository "github.com/smallbiznis/telecomservice/internal/audit/repository"
	auditservice "github.com/smallbiznis/telecomservice/internal/audit/service"
	"github.com/smallbiznis/telecomservice/internal/clock"
	companydomain "github.com/smallbiznis/telecomservice/internal/company/domain"
	companyrepository "github.com/smallbiznis/telecomservice/internal/company/repository"
	companyservice "github.com/smallbiznis/telecomservice/internal/company/service"
	"github.com/smallbiznis/telecomservice/internal/companycontext"
	"github.com/smallbiznis/telecomservice/internal/config"
	"github.com/smallbiznis/telecomservice/internal/consumption/domain"
	"github.com/smallbiznis/telecomservice/internal/consumption/repository"
	productdomain "github.com/smallbiznis/telecomservice/internal/product/domain"
	productrepository "github.com/smallbiznis/telecomservice/internal/product/repository"
	productservice "github.com/smallbiznis/telecomservice/internal/product/service"
	"github.com/smallbiznis/telecomservice/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type harness struct {
	svc       domain.Service
	db        *gorm.DB
	clock     *clock.FakeClock
	ctx       context.Context
	company   *companydomain.Company
	other     *companydomain.Company
	mobile    *productdomain.ProductTemplate
	voice     *productdomain.ProductTemplate
	hardware  *productdomain.ProductTemplate
	companies companydomain.Service
	products  productdomain.Service
	data      *productdomain.ProductCategory
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&companydomain.Company{},
		&productdomain.ProductCategory{},
		&productdomain.ProductTemplate{},
		&domain.ConsumptionRecord{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	fake := clock.NewFakeClock(now)
	log := zap.NewNop()

	companies := companyservice.NewService(companyservice.Params{
		Log: log, Clock: fake, GenID: node, Repo: companyrepository.NewRepository(conn),
	})
	telecomCfg := config.NewStaticTelecomConfigHolder(config.DefaultTelecomConfig())
	products := productservice.New(productservice.Params{
		Log: log, Clock: fake, GenID: node, Repo: productrepository.Provide(conn), TelecomCfg: telecomCfg,
	})
	audit := auditservice.NewService(auditservice.Params{
		DB: conn, Log: log, Clock: fake, GenID: node, Repo: auditrepository.Provide(),
	})

	svc := New(Params{
		DB:         conn,
		Log:        log,
		Clock:      fake,
		GenID:      node,
		Repo:       repository.Provide(conn),
		Products:   products,
		Companies:  companies,
		Audit:      audit,
		TelecomCfg: telecomCfg,
	})

	bg := context.Background()
	company, err := companies.Create(bg, "Main")
	require.NoError(t, err)
	other, err := companies.Create(bg, "Branch")
	require.NoError(t, err)

	root, err := products.EnsureRootCategory(bg)
	require.NoError(t, err)
	data, err := products.CreateCategory(bg, productdomain.CreateCategoryRequest{Name: "Data", Code: "data", ParentID: &root.ID})
	require.NoError(t, err)
	devices, err := products.CreateCategory(bg, productdomain.CreateCategoryRequest{Name: "Devices"})
	require.NoError(t, err)

	mobile, err := products.CreateTemplate(bg, productdomain.CreateTemplateRequest{Name: "MobileData", DefaultCode: "MD-100", CategoryID: data.ID})
	require.NoError(t, err)
	voice, err := products.CreateTemplate(bg, productdomain.CreateTemplateRequest{Name: "Voice", DefaultCode: "VC-1", CategoryID: data.ID})
	require.NoError(t, err)
	hardware, err := products.CreateTemplate(bg, productdomain.CreateTemplateRequest{Name: "Router", CategoryID: devices.ID})
	require.NoError(t, err)

	ctx := companycontext.WithCompanyID(bg, company.ID.Int64())
	ctx = companycontext.WithUserID(ctx, 9001)

	return &harness{
		svc: svc, db: conn, clock: fake, ctx: ctx,
		company: company, other: other,
		mobile: mobile, voice: voice, hardware: hardware,
		companies: companies,
		products: products, data: data,
	}
}

func (h *harness) params(extra map[string]any) domain.Params {
	p := domain.Params{
		"product_tmpl_id":       h.mobile.ID.Int64(),
		"consumption_timestamp": "2024-06-01 10:30:00",
		"consumption_qty":       10,
	}
	for k, v := range extra {
		if v == nil {
			delete(p, k)
			continue
		}
		p[k] = v
	}
	return p
}

func TestCreateComputesNameAndProjections(t *testing.T) {
	h := newHarness(t)

	rec, err := h.svc.Create(h.ctx, h.params(nil))
	require.NoError(t, err)

	assert.Equal(t, "MobileData - 2024-06-01 10:30:00", rec.Name)
	assert.Equal(t, domain.Char("MD-100"), rec.ConsumptionReference)
	assert.Equal(t, domain.Char("MobileData"), rec.TelecomServiceName)
	assert.Equal(t, domain.Char("Data"), rec.CategoryName)
	assert.Equal(t, domain.Char("data"), rec.CategoryCode)
	assert.Equal(t, int64(10), rec.ConsumptionQty)
	assert.Equal(t, h.company.ID, rec.CompanyID.ID)
	assert.Equal(t, "Main", rec.CompanyID.Name)

	var count int64
	require.NoError(t, h.db.Model(&auditdomain.AuditLog{}).Where("action = ?", "consumption.create").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateByServiceName(t *testing.T) {
	h := newHarness(t)

	rec, err := h.svc.Create(h.ctx, h.params(map[string]any{
		"product_tmpl_id":      nil,
		"telecom_service_name": "  Voice ",
	}))
	require.NoError(t, err)
	assert.Equal(t, h.voice.ID, rec.ProductTmplID.ID)
}

func TestCreateByNumericServiceName(t *testing.T) {
	h := newHarness(t)

	short, err := h.products.CreateTemplate(context.Background(), productdomain.CreateTemplateRequest{Name: "5060", CategoryID: h.data.ID})
	require.NoError(t, err)

	for _, name := range []any{5060, int64(5060), json.Number("5060"), float64(5060)} {
		rec, err := h.svc.Create(h.ctx, h.params(map[string]any{
			"product_tmpl_id":      nil,
			"telecom_service_name": name,
		}))
		require.NoError(t, err, "%T", name)
		assert.Equal(t, short.ID, rec.ProductTmplID.ID)
	}

	_, err = h.svc.Create(h.ctx, h.params(map[string]any{
		"product_tmpl_id":      nil,
		"telecom_service_name": 7070,
	}))
	assert.ErrorIs(t, err, domain.ErrUnknownService)

	_, err = h.svc.Create(h.ctx, h.params(map[string]any{
		"product_tmpl_id":      nil,
		"telecom_service_name": map[string]any{"name": "Voice"},
	}))
	assert.ErrorIs(t, err, domain.ErrInvalidService)
}

func TestCreateMissingFields(t *testing.T) {
	h := newHarness(t)

	cases := []struct {
		name   string
		params domain.Params
		want   error
	}{
		{"service", h.params(map[string]any{"product_tmpl_id": nil}), domain.ErrServiceRequired},
		{"timestamp", h.params(map[string]any{"consumption_timestamp": nil}), domain.ErrTimestampRequired},
		{"blank timestamp", h.params(map[string]any{"consumption_timestamp": "  "}), domain.ErrTimestampRequired},
		{"zero timestamp", h.params(map[string]any{"consumption_timestamp": 0}), domain.ErrTimestampRequired},
		{"zero number timestamp", h.params(map[string]any{"consumption_timestamp": json.Number("0")}), domain.ErrTimestampRequired},
		{"false timestamp", h.params(map[string]any{"consumption_timestamp": false}), domain.ErrTimestampRequired},
		{"zero service", h.params(map[string]any{"product_tmpl_id": 0}), domain.ErrServiceRequired},
		{"quantity", h.params(map[string]any{"consumption_qty": nil}), domain.ErrQuantityRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.Create(h.ctx, tc.params)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateRejectsBadValues(t *testing.T) {
	h := newHarness(t)

	cases := []struct {
		name   string
		params domain.Params
		want   error
	}{
		{"zero quantity", h.params(map[string]any{"consumption_qty": 0}), domain.ErrInvalidQuantity},
		{"negative quantity", h.params(map[string]any{"consumption_qty": -3}), domain.ErrInvalidQuantity},
		{"fractional quantity", h.params(map[string]any{"consumption_qty": 1.5}), domain.ErrInvalidQuantity},
		{"text quantity", h.params(map[string]any{"consumption_qty": "many"}), domain.ErrInvalidQuantity},
		{"bad date", h.params(map[string]any{"consumption_timestamp": "not a date"}), domain.ErrInvalidDateFormat},
		{"non numeric service", h.params(map[string]any{"product_tmpl_id": "abc"}), domain.ErrInvalidService},
		{"unknown service", h.params(map[string]any{"product_tmpl_id": 12345}), domain.ErrUnknownService},
		{"service outside telecom", h.params(map[string]any{"product_tmpl_id": h.hardware.ID.String()}), domain.ErrUnknownService},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.Create(h.ctx, tc.params)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	var count int64
	require.NoError(t, h.db.Model(&domain.ConsumptionRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreatePersistsQuantityExactly(t *testing.T) {
	h := newHarness(t)

	rec, err := h.svc.Create(h.ctx, h.params(map[string]any{"consumption_qty": json.Number("987654321")}))
	require.NoError(t, err)

	got, err := h.svc.Get(h.ctx, string(rec.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(987654321), got.ConsumptionQty)
}

func TestCreateEpochAndISOAgree(t *testing.T) {
	h := newHarness(t)

	iso, err := h.svc.Create(h.ctx, h.params(map[string]any{"consumption_timestamp": "2023-11-14T22:13:20Z"}))
	require.NoError(t, err)
	epoch, err := h.svc.Create(h.ctx, h.params(map[string]any{"consumption_timestamp": json.Number("1700000000")}))
	require.NoError(t, err)

	assert.Equal(t, iso.ConsumptionTimestamp, epoch.ConsumptionTimestamp)
	assert.Equal(t, iso.Name, epoch.Name)
}

func TestCreateCompanyFallback(t *testing.T) {
	h := newHarness(t)

	valid, err := h.svc.Create(h.ctx, h.params(map[string]any{"company_id": h.other.ID.String()}))
	require.NoError(t, err)
	assert.Equal(t, h.other.ID, valid.CompanyID.ID)

	unknown, err := h.svc.Create(h.ctx, h.params(map[string]any{"company_id": 424242}))
	require.NoError(t, err)
	assert.Equal(t, h.company.ID, unknown.CompanyID.ID)

	garbage, err := h.svc.Create(h.ctx, h.params(map[string]any{"company_id": "acme"}))
	require.NoError(t, err)
	assert.Equal(t, h.company.ID, garbage.CompanyID.ID)

	zero, err := h.svc.Create(h.ctx, h.params(map[string]any{"company_id": 0}))
	require.NoError(t, err)
	assert.Equal(t, h.company.ID, zero.CompanyID.ID)
}

func TestCreateDropsUnknownFields(t *testing.T) {
	h := newHarness(t)

	rec, err := h.svc.Create(h.ctx, h.params(map[string]any{
		"name":          "forged",
		"category_code": "forged",
		"bogus":         true,
	}))
	require.NoError(t, err)
	assert.Equal(t, "MobileData - 2024-06-01 10:30:00", rec.Name)
	assert.Equal(t, domain.Char("data"), rec.CategoryCode)
}

func TestCreateRequiresCompanyContext(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Create(context.Background(), h.params(nil))
	assert.ErrorIs(t, err, domain.ErrMissingCompany)
}

func TestCreateManyIsAtomic(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.CreateMany(h.ctx, []domain.Params{
		h.params(nil),
		h.params(map[string]any{"consumption_qty": 0}),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	var count int64
	require.NoError(t, h.db.Model(&domain.ConsumptionRecord{}).Count(&count).Error)
	assert.Zero(t, count)

	recs, err := h.svc.CreateMany(h.ctx, []domain.Params{
		h.params(nil),
		h.params(map[string]any{"product_tmpl_id": h.voice.ID.Int64()}),
	})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestGetUnknownAndMalformed(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Get(h.ctx, "999999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = h.svc.Get(h.ctx, "not-an-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListFiltersAndOrders(t *testing.T) {
	h := newHarness(t)

	old, err := h.svc.Create(h.ctx, h.params(map[string]any{"consumption_timestamp": now.AddDate(0, 0, -45)}))
	require.NoError(t, err)
	mid, err := h.svc.Create(h.ctx, h.params(map[string]any{"consumption_timestamp": now.AddDate(0, 0, -10)}))
	require.NoError(t, err)
	newest, err := h.svc.Create(h.ctx, h.params(map[string]any{"consumption_timestamp": now.AddDate(0, 0, -1)}))
	require.NoError(t, err)

	recent, err := h.svc.List(h.ctx, domain.ListRequest{DateFilter: now.AddDate(0, 0, -30).Format(time.RFC3339)})
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, newest.ID, recent[0].ID)
	assert.Equal(t, mid.ID, recent[1].ID)

	all, err := h.svc.List(h.ctx, domain.ListRequest{DateFilter: "garbage"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, old.ID, all[2].ID)

	page, err := h.svc.List(h.ctx, domain.ListRequest{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, mid.ID, page[0].ID)
}

func TestUpdateWithoutTimestampKeepsIt(t *testing.T) {
	h := newHarness(t)

	rec, err := h.svc.Create(h.ctx, h.params(nil))
	require.NoError(t, err)

	updated, err := h.svc.Update(h.ctx, string(rec.ID), domain.Params{"consumption_qty": 4})
	require.NoError(t, err)
	assert.Equal(t, int64(4), updated.ConsumptionQty)
	assert.Equal(t, rec.ConsumptionTimestamp, updated.ConsumptionTimestamp)
	assert.Equal(t, rec.Name, updated.Name)
}

func TestUpdateRecomputesName(t *testing.T) {
	h := newHarness(t)

	rec, err := h.svc.Create(h.ctx, h.params(nil))
	require.NoError(t, err)

	updated, err := h.svc.Update(h.ctx, string(rec.ID), domain.Params{
		"telecom_service_name":  "Voice",
		"consumption_timestamp": "2024-06-02T08:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "Voice - 2024-06-02 08:00:00", updated.Name)
	assert.Equal(t, domain.Char("VC-1"), updated.ConsumptionReference)

	reloaded, err := h.svc.Get(h.ctx, string(rec.ID))
	require.NoError(t, err)
	assert.Equal(t, updated.Name, reloaded.Name)

	tsOnly, err := h.svc.Update(h.ctx, string(rec.ID), domain.Params{"consumption_timestamp": "2024-06-03 00:00:00"})
	require.NoError(t, err)
	assert.Equal(t, "Voice - 2024-06-03 00:00:00", tsOnly.Name)
}

func TestUpdateRejections(t *testing.T) {
	h := newHarness(t)

	rec, err := h.svc.Create(h.ctx, h.params(nil))
	require.NoError(t, err)
	id := string(rec.ID)

	_, err = h.svc.Update(h.ctx, id, domain.Params{"consumption_timestamp": "31/31/2024 99:99"})
	assert.ErrorIs(t, err, domain.ErrInvalidDateFormat)

	_, err = h.svc.Update(h.ctx, id, domain.Params{"consumption_qty": 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = h.svc.Update(h.ctx, id, domain.Params{"product_tmpl_id": h.hardware.ID.Int64()})
	assert.ErrorIs(t, err, domain.ErrUnknownService)

	_, err = h.svc.Update(h.ctx, "123", domain.Params{"consumption_qty": 2})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	unchanged, err := h.svc.Get(h.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, rec.ConsumptionQty, unchanged.ConsumptionQty)
	assert.Equal(t, rec.ProductTmplID.ID, unchanged.ProductTmplID.ID)
}

func TestUpdateInvalidCompanyFallsBackToCaller(t *testing.T) {
	h := newHarness(t)

	rec, err := h.svc.Create(h.ctx, h.params(map[string]any{"company_id": h.other.ID.Int64()}))
	require.NoError(t, err)
	require.Equal(t, h.other.ID, rec.CompanyID.ID)

	updated, err := h.svc.Update(h.ctx, string(rec.ID), domain.Params{"company_id": "nope"})
	require.NoError(t, err)
	assert.Equal(t, h.company.ID, updated.CompanyID.ID)
}

func TestDelete(t *testing.T) {
	h := newHarness(t)

	rec, err := h.svc.Create(h.ctx, h.params(nil))
	require.NoError(t, err)

	require.NoError(t, h.svc.Delete(h.ctx, string(rec.ID)))
	_, err = h.svc.Get(h.ctx, string(rec.ID))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, h.svc.Delete(h.ctx, string(rec.ID)), domain.ErrNotFound)

	var audits int64
	require.NoError(t, h.db.Model(&auditdomain.AuditLog{}).Where("action = ?", "consumption.delete").Count(&audits).Error)
	assert.Equal(t, int64(1), audits)
}

func TestOnChangePreview(t *testing.T) {
	h := newHarness(t)

	preview, err := h.svc.OnChange(h.ctx, domain.Params{
		"product_tmpl_id":       h.mobile.ID.String(),
		"consumption_qty":       -5,
		"consumption_timestamp": "2024-01-02 03:04:05",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Char(""), preview.ID)
	assert.Equal(t, int64(1), preview.ConsumptionQty)
	assert.Equal(t, "MobileData - 2024-01-02 03:04:05", preview.Name)

	empty, err := h.svc.OnChange(h.ctx, domain.Params{"telecom_service_name": "Router"})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultName, empty.Name)
	assert.Equal(t, domain.Char(now.Format(domain.NameTimeLayout)), empty.ConsumptionTimestamp)

	var count int64
	require.NoError(t, h.db.Model(&domain.ConsumptionRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}
