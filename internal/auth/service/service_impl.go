package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/telecomservice/internal/auth/domain"
	"github.com/smallbiznis/telecomservice/internal/auth/password"
	"github.com/smallbiznis/telecomservice/internal/clock"
	"github.com/smallbiznis/telecomservice/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	sessionTTL        = 7 * 24 * time.Hour
	minPasswordLength = 5
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Cfg         config.Config
	Clock       clock.Clock
	GenID       *snowflake.Node
	Repo        domain.Repository
	SessionRepo domain.SessionRepository
}

type Service struct {
	log         *zap.Logger
	dbName      string
	clock       clock.Clock
	repo        domain.Repository
	sessionRepo domain.SessionRepository
	genID       *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		log:         p.Log.Named("auth.service"),
		dbName:      strings.TrimSpace(p.Cfg.DBName),
		clock:       p.Clock,
		repo:        p.Repo,
		sessionRepo: p.SessionRepo,
		genID:       p.GenID,
	}
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	login := strings.TrimSpace(req.Login)
	if login == "" || len(req.Password) < minPasswordLength {
		return nil, domain.ErrInvalidCredentials
	}
	role := req.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	if _, err := s.repo.FindByLogin(ctx, login); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Login:        login,
		PasswordHash: hashed,
		CompanyID:    req.CompanyID,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	login := strings.TrimSpace(req.Login)
	user, err := s.verify(ctx, login, req.Password, req.DB)
	if err != nil {
		s.log.Error("authentication failed", zap.String("login", login), zap.Error(err))
		return nil, domain.ErrInvalidCredentials
	}

	rawToken, session, err := s.issueSession(ctx, user, req)
	if err != nil {
		return nil, err
	}

	s.log.Info("user authenticated", zap.String("login", user.Login), zap.Stringer("session_id", session.ID))
	return &domain.LoginResult{RawToken: rawToken, ExpiresAt: session.ExpiresAt, SessionID: session.ID, Identity: identityOf(session, user)}, nil
}

func (s *Service) verify(ctx context.Context, login, secret, dbName string) (*domain.User, error) {
	if login == "" || secret == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if db := strings.TrimSpace(dbName); db != "" && s.dbName != "" && db != s.dbName {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Active || !password.Verify(secret, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	session, err := s.lookup(ctx, rawToken)
	if err != nil {
		return err
	}
	if err := s.sessionRepo.RevokeSession(ctx, session.ID, s.clock.Now()); err != nil {
		return err
	}
	s.log.Info("user logged out", zap.String("session_id", session.ID.String()))
	return nil
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Identity, error) {
	session, err := s.lookup(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := checkSession(session, now); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, session.UserID)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return nil, domain.ErrInvalidSession
	case err != nil:
		return nil, err
	case !user.Active:
		return nil, domain.ErrInvalidSession
	}

	if err := s.sessionRepo.UpdateLastSeen(ctx, session.ID, now); err != nil {
		return nil, err
	}
	identity := identityOf(session, user)
	return &identity, nil
}

// issueSession persists a new session for user and returns its raw token.
func (s *Service) issueSession(ctx context.Context, user *domain.User, req domain.LoginRequest) (string, *domain.Session, error) {
	raw, err := newSessionToken()
	if err != nil {
		return "", nil, err
	}
	issuedAt := s.clock.Now()
	session := domain.Session{
		ID:               s.genID.Generate(),
		UserID:           user.ID,
		CompanyID:        user.CompanyID,
		SessionTokenHash: hashToken(raw),
		UserAgent:        strings.TrimSpace(req.UserAgent),
		IPAddress:        strings.TrimSpace(req.IPAddress),
		ExpiresAt:        issuedAt.Add(sessionTTL),
		CreatedAt:        issuedAt,
		LastSeenAt:       issuedAt,
	}
	if err := s.sessionRepo.CreateSession(ctx, &session); err != nil {
		return "", nil, err
	}
	return raw, &session, nil
}

// lookup resolves a raw token to its stored session. Unknown and blank
// tokens both read as ErrInvalidSession.
func (s *Service) lookup(ctx context.Context, rawToken string) (*domain.Session, error) {
	raw := strings.TrimSpace(rawToken)
	if raw == "" {
		return nil, domain.ErrInvalidSession
	}
	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(raw))
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, domain.ErrInvalidSession
	}
	return session, err
}

func identityOf(session *domain.Session, user *domain.User) domain.Identity {
	return domain.Identity{
		SessionID: session.ID,
		UserID:    user.ID,
		CompanyID: session.CompanyID,
		Login:     user.Login,
		Role:      user.Role,
	}
}
