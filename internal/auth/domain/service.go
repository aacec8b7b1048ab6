package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Identity, error)
}

type CreateUserRequest struct {
	Login     string
	Password  string
	CompanyID snowflake.ID
	Role      Role
}

// LoginRequest carries credentials. DB, when set, must name the configured database.
type LoginRequest struct {
	Login     string
	Password  string
	DB        string
	UserAgent string
	IPAddress string
}

type LoginResult struct {
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
	Identity  Identity
}

// Identity is the authenticated caller resolved from a session.
type Identity struct {
	SessionID snowflake.ID
	UserID    snowflake.ID
	CompanyID snowflake.ID
	Login     string
	Role      Role
}
