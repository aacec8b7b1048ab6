package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/smallbiznis/telecomservice/internal/auth/domain"
)

const sessionTokenBytes = 32

// newSessionToken returns the raw token handed to the client. Only its
// sha256 is persisted.
func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func checkSession(session *domain.Session, now time.Time) error {
	switch {
	case session.RevokedAt != nil:
		return domain.ErrSessionRevoked
	case !now.Before(session.ExpiresAt):
		return domain.ErrSessionExpired
	}
	return nil
}
