package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/telecomservice/internal/audit/domain"
	"github.com/smallbiznis/telecomservice/internal/clock"
	companydomain "github.com/smallbiznis/telecomservice/internal/company/domain"
	"github.com/smallbiznis/telecomservice/internal/companycontext"
	"github.com/smallbiznis/telecomservice/internal/config"
	"github.com/smallbiznis/telecomservice/internal/consumption/domain"
	"github.com/smallbiznis/telecomservice/internal/observability/metrics"
	productdomain "github.com/smallbiznis/telecomservice/internal/product/domain"
	"github.com/smallbiznis/telecomservice/pkg/dateparse"
	"github.com/smallbiznis/telecomservice/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const targetType = "consumption"

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	GenID      *snowflake.Node
	Repo       domain.Repository
	Products   productdomain.Service
	Companies  companydomain.Service
	Audit      auditdomain.Service
	TelecomCfg *config.TelecomConfigHolder
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	genID     *snowflake.Node
	repo      domain.Repository
	products  productdomain.Service
	companies companydomain.Service
	audit     auditdomain.Service
	cfg       *config.TelecomConfigHolder
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("consumption.service"),
		clock:     p.Clock,
		genID:     p.GenID,
		repo:      p.Repo,
		products:  p.Products,
		companies: p.Companies,
		audit:     p.Audit,
		cfg:       p.TelecomCfg,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, params domain.Params) (record *domain.Record, err error) {
	defer func() { s.observe(ctx, "create", err) }()

	records, err := s.create(ctx, []domain.Params{params})
	if err != nil {
		return nil, err
	}
	return &records[0], nil
}

// CreateMany creates every record or none of them.
func (s *Service) CreateMany(ctx context.Context, params []domain.Params) (records []domain.Record, err error) {
	defer func() { s.observe(ctx, "create_many", err) }()

	if len(params) == 0 {
		return []domain.Record{}, nil
	}
	return s.create(ctx, params)
}

func (s *Service) create(ctx context.Context, params []domain.Params) ([]domain.Record, error) {
	companyID, err := callerCompany(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	records := make([]*domain.ConsumptionRecord, 0, len(params))
	services := make(map[snowflake.ID]productdomain.TelecomService, len(params))
	for _, p := range params {
		v, err := s.validate(ctx, p.Clone(), companyID, true)
		if err != nil {
			return nil, err
		}
		values := domain.Whitelist(v.params)

		rec := &domain.ConsumptionRecord{
			ID:                   s.genID.Generate(),
			CompanyID:            *values.CompanyID,
			ConsumptionTimestamp: *values.Timestamp,
			ConsumptionQty:       *values.Qty,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		rec.ApplyService(v.service)
		if err := s.checkRecord(ctx, rec, v.service); err != nil {
			return nil, err
		}
		records = append(records, rec)
		services[v.service.TemplateID] = *v.service
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).InsertMany(ctx, records); err != nil {
			return err
		}
		for _, rec := range records {
			if err := s.writeAudit(ctx, tx, "consumption.create", rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows := make([]domain.ConsumptionRecord, 0, len(records))
	for _, rec := range records {
		rows = append(rows, *rec)
	}
	return s.serialize(ctx, rows, services)
}

func (s *Service) Get(ctx context.Context, id any) (record *domain.Record, err error) {
	defer func() { s.observe(ctx, "get", err) }()

	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.serialize(ctx, []domain.ConsumptionRecord{*rec}, nil)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (records []domain.Record, err error) {
	defer func() { s.observe(ctx, "list", err) }()

	page := pagination.New(req.Limit, req.Offset, s.cfg.Get().ListLimit.V2)

	var filter domain.Filter
	if req.DateFilter != nil {
		if since, ok := dateparse.Normalize(req.DateFilter); ok {
			since = since.UTC()
			filter.Since = &since
		} else {
			s.log.Debug("ignoring unparseable date filter", zap.Any("date_filter", req.DateFilter))
		}
	}

	rows, err := s.repo.Query(ctx, filter, page.Limit, page.Offset, domain.DefaultOrder)
	if err != nil {
		return nil, err
	}
	return s.serialize(ctx, rows, nil)
}

func (s *Service) Update(ctx context.Context, id any, params domain.Params) (record *domain.Record, err error) {
	defer func() { s.observe(ctx, "update", err) }()

	companyID, err := callerCompany(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	v, err := s.validate(ctx, params.Clone(), companyID, false)
	if err != nil {
		return nil, err
	}
	values := domain.Whitelist(v.params)

	rec := *existing
	fields := map[string]any{}
	if values.CompanyID != nil {
		rec.CompanyID = *values.CompanyID
		fields["company_id"] = rec.CompanyID
	}
	if values.Qty != nil {
		rec.ConsumptionQty = *values.Qty
		fields["consumption_qty"] = rec.ConsumptionQty
	}
	if values.Timestamp != nil {
		rec.ConsumptionTimestamp = *values.Timestamp
		fields["consumption_timestamp"] = rec.ConsumptionTimestamp
	}

	svc := v.service
	if values.ProductTmplID != nil || values.Timestamp != nil {
		if svc == nil {
			svc, err = s.currentService(ctx, rec.ProductTmplID)
			if err != nil {
				return nil, err
			}
		}
		rec.ApplyService(svc)
		fields["name"] = rec.Name
		fields["product_tmpl_id"] = rec.ProductTmplID
		fields["category_id"] = rec.CategoryID
		fields["category_code"] = rec.CategoryCode
	}

	if v.service != nil {
		if err := s.checkRecord(ctx, &rec, v.service); err != nil {
			return nil, err
		}
	} else if rec.ConsumptionQty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	if len(fields) > 0 {
		rec.UpdatedAt = s.clock.Now()
		fields["updated_at"] = rec.UpdatedAt
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.repo.WithTx(tx).Update(ctx, rec.ID, fields); err != nil {
				return err
			}
			return s.writeAudit(ctx, tx, "consumption.update", &rec)
		})
		if err != nil {
			return nil, err
		}
	}

	var services map[snowflake.ID]productdomain.TelecomService
	if svc != nil {
		services = map[snowflake.ID]productdomain.TelecomService{svc.TemplateID: *svc}
	}
	out, err := s.serialize(ctx, []domain.ConsumptionRecord{rec}, services)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *Service) Delete(ctx context.Context, id any) (err error) {
	defer func() { s.observe(ctx, "delete", err) }()

	rec, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Delete(ctx, rec.ID); err != nil {
			return err
		}
		return s.writeAudit(ctx, tx, "consumption.delete", rec)
	})
}

// OnChange builds an unsaved preview. Unlike Create it never rejects input:
// a bad quantity becomes 1 and an unknown service is left empty.
func (s *Service) OnChange(ctx context.Context, params domain.Params) (*domain.Record, error) {
	companyID, err := callerCompany(ctx)
	if err != nil {
		return nil, err
	}

	v := &validation{params: params.Clone(), create: true, companyID: companyID}
	if err := s.validateCompany(ctx, v); err != nil {
		return nil, err
	}

	rec := &domain.ConsumptionRecord{
		CompanyID:            v.params[domain.FieldCompanyID].(snowflake.ID),
		ConsumptionTimestamp: s.clock.Now(),
		ConsumptionQty:       1,
	}
	if v.params.Present(domain.FieldQty) {
		if qty, ok := domain.ParseInt64(v.params[domain.FieldQty]); ok {
			rec.ConsumptionQty = qty
		}
	}
	rec.OnChangeQuantity()
	if v.params.Set(domain.FieldTimestamp) {
		if ts, ok := dateparse.Normalize(v.params[domain.FieldTimestamp]); ok {
			rec.ConsumptionTimestamp = ts.UTC()
		}
	}

	v.create = false
	if err := s.validateService(ctx, v); err != nil && !domain.IsValidationError(err) {
		return nil, err
	}
	rec.ApplyService(v.service)

	var services map[snowflake.ID]productdomain.TelecomService
	if v.service != nil {
		services = map[snowflake.ID]productdomain.TelecomService{v.service.TemplateID: *v.service}
	}
	out, err := s.serialize(ctx, []domain.ConsumptionRecord{*rec}, services)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *Service) load(ctx context.Context, id any) (*domain.ConsumptionRecord, error) {
	recordID, ok := domain.ParseID(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec, err := s.repo.FindByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

func (s *Service) currentService(ctx context.Context, templateID snowflake.ID) (*productdomain.TelecomService, error) {
	found, err := s.products.TelecomServices(ctx, []snowflake.ID{templateID})
	if err != nil {
		return nil, err
	}
	svc, ok := found[templateID]
	if !ok {
		return nil, domain.ErrUnknownService
	}
	return &svc, nil
}

func (s *Service) checkRecord(ctx context.Context, rec *domain.ConsumptionRecord, svc *productdomain.TelecomService) error {
	rootID, err := s.products.RootCategoryID(ctx)
	if err != nil {
		if errors.Is(err, productdomain.ErrRootCategoryMissing) {
			return domain.ErrUnknownService
		}
		return err
	}
	return rec.Validate(svc, rootID)
}

func (s *Service) writeAudit(ctx context.Context, tx *gorm.DB, action string, rec *domain.ConsumptionRecord) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Record(ctx, tx, auditdomain.Entry{
		CompanyID:  rec.CompanyID,
		Action:     action,
		TargetType: targetType,
		TargetID:   rec.ID.String(),
		Metadata: map[string]any{
			"product_tmpl_id":       rec.ProductTmplID.String(),
			"consumption_qty":       rec.ConsumptionQty,
			"consumption_timestamp": rec.ConsumptionTimestamp.Format(domain.NameTimeLayout),
		},
	})
}

// serialize resolves company names and service projections for rows. Known
// services may be passed in to skip the lookup.
func (s *Service) serialize(ctx context.Context, rows []domain.ConsumptionRecord, known map[snowflake.ID]productdomain.TelecomService) ([]domain.Record, error) {
	companyIDs := make([]snowflake.ID, 0, len(rows))
	templateIDs := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		companyIDs = append(companyIDs, row.CompanyID)
		if _, ok := known[row.ProductTmplID]; !ok && row.ProductTmplID != 0 {
			templateIDs = append(templateIDs, row.ProductTmplID)
		}
	}

	names, err := s.companies.Names(ctx, companyIDs)
	if err != nil {
		return nil, err
	}
	services := make(map[snowflake.ID]productdomain.TelecomService, len(known))
	for id, svc := range known {
		services[id] = svc
	}
	if len(templateIDs) > 0 {
		fetched, err := s.products.TelecomServices(ctx, templateIDs)
		if err != nil {
			return nil, err
		}
		for id, svc := range fetched {
			services[id] = svc
		}
	}

	out := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		var svc *productdomain.TelecomService
		if found, ok := services[row.ProductTmplID]; ok {
			svc = &found
		}
		out = append(out, domain.ToRecord(row, names[row.CompanyID], svc))
	}
	return out, nil
}

func (s *Service) observe(ctx context.Context, operation string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case domain.IsValidationError(err), errors.Is(err, domain.ErrNotFound):
		outcome = "rejected"
	default:
		outcome = "error"
		s.log.Error("consumption operation failed", zap.String("operation", operation), zap.Error(err))
	}
	s.metrics.RecordConsumptionOperation(ctx, operation, outcome)
}

func callerCompany(ctx context.Context) (snowflake.ID, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return 0, domain.ErrMissingCompany
	}
	return companyID, nil
}
