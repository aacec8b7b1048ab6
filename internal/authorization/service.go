package authorization

import "context"

// Service decides whether an actor may perform an action on an object within a company.
type Service interface {
	Authorize(ctx context.Context, actor string, companyID string, object string, action string) error
}
