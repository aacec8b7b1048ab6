package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Entry is one audit event before actor and request context are resolved.
// Blank fields are filled from the context carried by ctx.
type Entry struct {
	CompanyID  snowflake.ID
	ActorType  ActorType
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type Service interface {
	// Record writes one entry. A non-nil tx enlists the write in the caller's transaction.
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
}

var ErrInvalidAction = errors.New("invalid_action")
