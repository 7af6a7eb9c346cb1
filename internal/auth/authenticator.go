package auth

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/privacy-assess/internal/model"
	"github.com/sells-group/privacy-assess/internal/store"
)

// ErrInvalidCredentials is returned for an unknown user or wrong password.
var ErrInvalidCredentials = eris.New("auth: invalid credentials")

// AdminFinder looks up admins by username.
type AdminFinder interface {
	GetAdminByUsername(ctx context.Context, username string) (*model.AdminUser, error)
}

// Authenticator exchanges admin credentials for tokens.
type Authenticator struct {
	admins AdminFinder
	tokens *TokenManager
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(admins AdminFinder, tokens *TokenManager) *Authenticator {
	return &Authenticator{admins: admins, tokens: tokens}
}

// dummyHash keeps unknown-user logins as slow as wrong-password ones.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3fJ6v7Yp0Y1p9nW8r0Xy6mK"

// Login verifies the credentials and issues a token.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	user, err := a.admins.GetAdminByUsername(ctx, username)
	if eris.Is(err, store.ErrNotFound) {
		VerifyPassword(dummyHash, password)
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", time.Time{}, eris.Wrap(err, "auth: lookup admin")
	}
	if !VerifyPassword(user.PasswordHash, password) {
		zap.L().Info("auth: failed admin login", zap.String("username", username))
		return "", time.Time{}, ErrInvalidCredentials
	}
	return a.tokens.Issue(user.Username)
}

// Tokens returns the token manager used to verify issued tokens.
func (a *Authenticator) Tokens() *TokenManager {
	return a.tokens
}
