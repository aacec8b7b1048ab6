package server

import (
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/telecomservice/internal/audit/domain"
	authdomain "github.com/smallbiznis/telecomservice/internal/auth/domain"
)

// Authenticate opens a session and returns its token, which is also set as the session cookie.
func (s *Server) Authenticate(c *gin.Context) {
	params := rpcParams(c)
	result, err := s.login(c, paramString(params, "db"), paramString(params, "login"), paramString(params, "password"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	respond(c, result.RawToken)
}

func (s *Server) Logout(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.authsvc.Logout(c.Request.Context(), token); err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Clear(c)
	respond(c, true)
}

func (s *Server) login(c *gin.Context, dbName, login, password string) (*authdomain.LoginResult, error) {
	ctx := c.Request.Context()
	endpoint := normalizeRateLimitEndpoint(c)

	if err := s.allowAuthenticate(c, login); err != nil {
		s.recordAuthAttempt(c, endpoint, "rate_limited")
		return nil, err
	}

	result, err := s.authsvc.Login(ctx, authdomain.LoginRequest{
		Login:     login,
		Password:  password,
		DB:        dbName,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		s.recordAuthAttempt(c, endpoint, "failed")
		if s.auditSvc != nil {
			_ = s.auditSvc.Record(ctx, nil, auditdomain.Entry{
				ActorType:  auditdomain.ActorTypeUser,
				Action:     "user.login_failed",
				TargetType: "user",
				Metadata:   map[string]any{"login": login},
			})
		}
		return nil, err
	}

	s.recordAuthAttempt(c, endpoint, "ok")

	if s.auditSvc != nil {
		userID := result.Identity.UserID.String()
		_ = s.auditSvc.Record(ctx, nil, auditdomain.Entry{
			CompanyID:  result.Identity.CompanyID,
			ActorType:  auditdomain.ActorTypeUser,
			ActorID:    userID,
			Action:     "user.login",
			TargetType: "user",
			TargetID:   userID,
			Metadata:   map[string]any{"login": login},
		})
	}
	return result, nil
}

func (s *Server) recordAuthAttempt(c *gin.Context, endpoint, outcome string) {
	if s.obsMetrics == nil {
		return
	}
	s.obsMetrics.RecordAuthAttempt(c.Request.Context(), endpoint, outcome)
}
