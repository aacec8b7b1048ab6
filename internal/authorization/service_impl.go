package authorization

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	auditdomain "github.com/smallbiznis/telecomservice/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const systemActor = "system"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

// check is one normalized Authorize call.
type check struct {
	actor   string
	userID  snowflake.ID
	company string
	object  string
	action  string
}

func (c check) domain() string { return "company:" + c.company }

func newCheck(actor, companyID, object, action string) (check, error) {
	c := check{
		actor:   strings.TrimSpace(actor),
		company: strings.TrimSpace(companyID),
		object:  strings.TrimSpace(object),
		action:  strings.TrimSpace(action),
	}
	switch {
	case c.actor == "":
		return c, ErrInvalidActor
	case c.company == "":
		return c, ErrInvalidCompany
	case c.object == "":
		return c, ErrInvalidObject
	case c.action == "":
		return c, ErrInvalidAction
	}
	if c.actor == systemActor {
		return c, nil
	}
	raw, ok := strings.CutPrefix(c.actor, "user:")
	if !ok {
		return c, ErrInvalidActor
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return c, ErrInvalidActor
	}
	c.userID = id
	return c, nil
}

// Authorize checks actor ("user:<id>" or "system") against the role grants of companyID.
func (s *ServiceImpl) Authorize(ctx context.Context, actor string, companyID string, object string, action string) error {
	c, err := newCheck(actor, companyID, object, action)
	if err != nil {
		return err
	}

	role, err := s.roleOf(ctx, c)
	if err != nil {
		s.auditDenied(ctx, c)
		return err
	}
	if err := s.linkRole(c.actor, role, c.domain()); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(c.actor, c.domain(), c.object, c.action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, c)
		return ErrForbidden
	}
	return nil
}

// roleOf reads the role from the users table on every call so role changes
// take effect without a restart.
func (s *ServiceImpl) roleOf(ctx context.Context, c check) (string, error) {
	if c.userID == 0 {
		return "role:system", nil
	}
	var roles []string
	err := s.db.WithContext(ctx).
		Table("users").
		Where("id = ? AND active = ?", c.userID, true).
		Limit(1).
		Pluck("role", &roles).Error
	if err != nil {
		return "", err
	}
	if len(roles) == 0 || strings.TrimSpace(roles[0]) == "" {
		return "", ErrForbidden
	}
	return "role:" + strings.ToLower(strings.TrimSpace(roles[0])), nil
}

// linkRole keeps exactly one role link per subject and domain.
func (s *ServiceImpl) linkRole(subject, role, domain string) error {
	links, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	current := false
	var stale [][]string
	for _, link := range links {
		if len(link) >= 2 && link[1] == role {
			current = true
			continue
		}
		stale = append(stale, link)
	}
	if len(stale) > 0 {
		if _, err := s.enforcer.RemoveGroupingPolicies(stale); err != nil {
			return err
		}
	}
	if current {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, role, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, c check) {
	if s.auditSvc == nil {
		return
	}
	company, err := snowflake.ParseString(c.company)
	if err != nil || company == 0 {
		return
	}
	entry := auditdomain.Entry{
		CompanyID:  company,
		ActorType:  auditdomain.ActorTypeSystem,
		Action:     "authorization.denied",
		TargetType: "authorization",
		TargetID:   c.object,
		Metadata:   map[string]any{"object": c.object, "action": c.action},
	}
	if c.userID != 0 {
		entry.ActorType = auditdomain.ActorTypeUser
		entry.ActorID = c.userID.String()
	}
	if err := s.auditSvc.Record(ctx, nil, entry); err != nil {
		s.log.Warn("failed to audit denied authorization", zap.Error(err))
	}
}
