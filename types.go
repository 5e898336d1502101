package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Session holds attributes that are part of an auth session
type Session interface {
	GetAccountID() string
	GetAccountUUID() (uuid.UUID, error)
	GetIssuer() string
	GetIssuedAt() *time.Time
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, *AccountView, error)
	IssueToken(accountID string) (string, error)
	SessionFromToken(token string) (Session, error)
	AccountFromSession(ctx context.Context, session Session) (*AccountView, error)
}

type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

// HTTPAuthenticator binds the Authenticator to the cookie transport
type HTTPAuthenticator interface {
	Login(c router.Context, payload LoginPayload) (*AccountView, error)
	IssueSession(c router.Context, accountID string) error
	Logout(c router.Context)
	SessionFromCookie(c router.Context) (Session, error)
	RequireSession() router.MiddlewareFunc
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetContextKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetClientBaseURL() string
	GetBcryptCost() int
}

// Notifier hands notification emails to a dispatcher without blocking
// the calling transition.
type Notifier interface {
	DispatchVerificationEmail(to, code string)
	DispatchWelcomeEmail(to, name string)
	DispatchPasswordResetEmail(to, link string)
	DispatchPasswordResetConfirmation(to string)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
