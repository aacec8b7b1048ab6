package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/telecomservice/internal/audit/domain"
	"github.com/smallbiznis/telecomservice/internal/audit/masking"
	"github.com/smallbiznis/telecomservice/internal/auditcontext"
	"github.com/smallbiznis/telecomservice/internal/clock"
	"github.com/smallbiznis/telecomservice/internal/companycontext"
	"github.com/smallbiznis/telecomservice/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const unknownTarget = "unknown"

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	genID *snowflake.Node
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, in auditdomain.Entry) error {
	action := strings.TrimSpace(in.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	targetType := strings.TrimSpace(in.TargetType)
	if targetType == "" {
		targetType = unknownTarget
	}

	row := &auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		Action:     action,
		TargetType: targetType,
		TargetID:   optional(in.TargetID),
		Metadata:   datatypes.JSONMap(requestMetadata(ctx, in.Metadata)),
		IPAddress:  optional(auditcontext.IPAddressFromContext(ctx)),
		UserAgent:  optional(auditcontext.UserAgentFromContext(ctx)),
		CreatedAt:  s.clock.Now(),
	}
	row.ActorType, row.ActorID = actorOf(ctx, in.ActorType, in.ActorID)
	row.CompanyID = companyOf(ctx, in.CompanyID)

	conn := tx
	if conn == nil {
		conn = s.db
	}
	if err := s.repo.Insert(ctx, conn, row); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

// requestMetadata redacts credentials and stamps the request and trace
// identifiers.
func requestMetadata(ctx context.Context, metadata map[string]any) map[string]any {
	out := masking.Redact(metadata)
	if id := auditcontext.RequestIDFromContext(ctx); id != "" {
		out["request_id"] = id
	}
	if id := auditcontext.CorrelationIDFromContext(ctx); id != "" {
		out["correlation_id"] = id
	}
	for key, value := range correlation.Fields(ctx) {
		out[key] = value
	}
	return out
}

func companyOf(ctx context.Context, explicit snowflake.ID) *snowflake.ID {
	if explicit != 0 {
		return &explicit
	}
	if id, ok := companycontext.CompanyIDFromContext(ctx); ok {
		return &id
	}
	return nil
}

// actorOf falls back to the authenticated user, then to the system actor.
func actorOf(ctx context.Context, actorType auditdomain.ActorType, actorID string) (string, *string) {
	id := optional(actorID)
	if actorType == "" {
		if userID, ok := companycontext.UserIDFromContext(ctx); ok {
			actorType = auditdomain.ActorTypeUser
			if id == nil {
				id = optional(userID.String())
			}
		} else {
			actorType = auditdomain.ActorTypeSystem
		}
	}
	return string(actorType), id
}

func optional(value string) *string {
	if value = strings.TrimSpace(value); value == "" {
		return nil
	}
	return &value
}
