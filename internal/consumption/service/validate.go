package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/telecomservice/internal/consumption/domain"
	productdomain "github.com/smallbiznis/telecomservice/internal/product/domain"
	"github.com/smallbiznis/telecomservice/pkg/dateparse"
)

// validation carries one request through the validator pipeline.
type validation struct {
	params    domain.Params
	create    bool
	companyID snowflake.ID
	service   *productdomain.TelecomService
}

type validator func(ctx context.Context, v *validation) error

func (s *Service) validators() []validator {
	return []validator{
		s.validateCompany,
		s.validateService,
		s.validateQuantity,
		s.validateTimestamp,
	}
}

// validate normalizes params in place and stops at the first error.
func (s *Service) validate(ctx context.Context, params domain.Params, companyID snowflake.ID, create bool) (*validation, error) {
	v := &validation{params: params, create: create, companyID: companyID}
	for _, fn := range s.validators() {
		if err := fn(ctx, v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// validateCompany defaults to the caller's company. An invalid company is
// replaced silently rather than rejected.
func (s *Service) validateCompany(ctx context.Context, v *validation) error {
	if !v.params.Set(domain.FieldCompanyID) {
		if v.create {
			v.params[domain.FieldCompanyID] = v.companyID
		}
		return nil
	}

	id, ok := domain.ParseID(v.params[domain.FieldCompanyID])
	if ok {
		exists, err := s.companies.Exists(ctx, id)
		if err != nil {
			return err
		}
		if exists {
			v.params[domain.FieldCompanyID] = id
			return nil
		}
	}
	v.params[domain.FieldCompanyID] = v.companyID
	return nil
}

func (s *Service) validateService(ctx context.Context, v *validation) error {
	hasID := v.params.Set(domain.FieldProductTmplID)
	hasName := v.params.Set(domain.FieldTelecomServiceName)
	if !hasID && !hasName {
		if v.create {
			return domain.ErrServiceRequired
		}
		return nil
	}

	var ref productdomain.ServiceRef
	if hasID {
		id, ok := domain.ParseID(v.params[domain.FieldProductTmplID])
		if !ok {
			return domain.ErrInvalidService
		}
		ref.ID = &id
	}
	if hasName {
		name, ok := serviceName(v.params[domain.FieldTelecomServiceName])
		if !ok {
			return domain.ErrInvalidService
		}
		ref.Name = name
	}

	svc, err := s.products.ResolveTelecomService(ctx, v.companyID, ref)
	if err != nil {
		if errors.Is(err, productdomain.ErrNotFound) || errors.Is(err, productdomain.ErrRootCategoryMissing) {
			return domain.ErrUnknownService
		}
		return err
	}

	v.service = svc
	v.params[domain.FieldProductTmplID] = svc.TemplateID
	delete(v.params, domain.FieldTelecomServiceName)
	return nil
}

// serviceName reads a template name. Scalars such as numbers are matched by
// their printed form.
func serviceName(v any) (string, bool) {
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed), true
	case map[string]any, []any:
		return "", false
	}
	return strings.TrimSpace(fmt.Sprint(v)), true
}

func (s *Service) validateQuantity(_ context.Context, v *validation) error {
	if !v.params.Present(domain.FieldQty) {
		if v.create {
			return domain.ErrQuantityRequired
		}
		return nil
	}
	qty, ok := domain.ParseInt64(v.params[domain.FieldQty])
	if !ok || qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	v.params[domain.FieldQty] = qty
	return nil
}

func (s *Service) validateTimestamp(_ context.Context, v *validation) error {
	if !v.params.Set(domain.FieldTimestamp) {
		if v.create {
			return domain.ErrTimestampRequired
		}
		return nil
	}
	ts, ok := dateparse.Normalize(v.params[domain.FieldTimestamp])
	if !ok {
		return domain.ErrInvalidDateFormat
	}
	v.params[domain.FieldTimestamp] = ts.UTC()
	return nil
}
