package server

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/telecomservice/internal/auth/domain"
	"github.com/smallbiznis/telecomservice/internal/companycontext"
	obscontext "github.com/smallbiznis/telecomservice/internal/observability/context"
	"github.com/smallbiznis/telecomservice/internal/observability/logger"
	"go.uber.org/zap"
)

const contextIdentityKey = "identity"

// credentialKeys are stripped from gen 1 params once they have been used.
var credentialKeys = []string{"login", "password", "db"}

// SessionRequired authenticates the caller from the session cookie or header.
func (s *Server) SessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authenticateSession(c); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// CredentialsOrSession authenticates gen 1 calls. Credentials carried in the
// params open a session that lives for this call only and is revoked once the
// handler returns; otherwise an existing session is required.
func (s *Server) CredentialsOrSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		params := rpcParams(c)
		login := paramString(params, "login")
		password := paramString(params, "password")
		dbName := paramString(params, "db")
		for _, key := range credentialKeys {
			delete(params, key)
		}

		if login == "" && password == "" {
			if err := s.authenticateSession(c); err != nil {
				AbortWithError(c, err)
				return
			}
			c.Next()
			return
		}

		result, err := s.login(c, dbName, login, password)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		s.attachIdentity(c, result.Identity)
		c.Next()

		ctx := context.WithoutCancel(c.Request.Context())
		if err := s.authsvc.Logout(ctx, result.RawToken); err != nil {
			logger.FromContext(ctx).Warn("revoke per-call session", zap.Error(err))
		}
	}
}

func (s *Server) authenticateSession(c *gin.Context) error {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		return ErrUnauthorized
	}
	identity, err := s.authsvc.Authenticate(c.Request.Context(), token)
	if err != nil {
		return err
	}
	s.attachIdentity(c, *identity)
	return nil
}

func (s *Server) attachIdentity(c *gin.Context, identity authdomain.Identity) {
	ctx := c.Request.Context()
	ctx = companycontext.WithCompanyID(ctx, identity.CompanyID.Int64())
	ctx = companycontext.WithUserID(ctx, identity.UserID.Int64())
	ctx = obscontext.WithCompanyID(ctx, identity.CompanyID.String())
	ctx = obscontext.WithActor(ctx, "user", identity.UserID.String())
	c.Request = c.Request.WithContext(ctx)
	c.Set(contextIdentityKey, identity)
}

func identityFromContext(c *gin.Context) (authdomain.Identity, bool) {
	value, ok := c.Get(contextIdentityKey)
	if !ok {
		return authdomain.Identity{}, false
	}
	identity, ok := value.(authdomain.Identity)
	return identity, ok
}

func paramString(params map[string]any, key string) string {
	value, _ := params[key].(string)
	return strings.TrimSpace(value)
}
