package accounts

import (
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RouteAuthenticator binds the Authenticator to the HTTP cookie
// transport. The session token travels in an HTTPOnly cookie whose
// lifetime matches the token's own validity window.
type RouteAuthenticator struct {
	auth           Authenticator
	cfg            Config
	cookieDuration time.Duration
	Logger         Logger
}

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	return &RouteAuthenticator{
		auth:           auther,
		cfg:            cfg,
		cookieDuration: cookieDuration,
		Logger:         defLogger{},
	}, nil
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// Login authenticates the payload credentials and, on success, sets the
// session cookie on the response.
func (a *RouteAuthenticator) Login(c router.Context, payload LoginPayload) (*AccountView, error) {
	token, account, err := a.auth.Login(c.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error: %v", err)
		return nil, err
	}

	a.setCookieToken(c, token, a.cookieDuration)
	return account, nil
}

// IssueSession mints a session token for an account that was just
// created and sets the cookie, so signup logs the account in.
func (a *RouteAuthenticator) IssueSession(c router.Context, accountID string) error {
	token, err := a.auth.IssueToken(accountID)
	if err != nil {
		a.Logger.Error("IssueSession error: %v", err)
		return err
	}

	a.setCookieToken(c, token, a.cookieDuration)
	return nil
}

// Logout clears the session cookie. It succeeds whether or not a valid
// session was present.
func (a *RouteAuthenticator) Logout(c router.Context) {
	a.cookieDel(c, a.cfg.GetContextKey())
}

// SessionFromCookie decodes and validates the session carried by the
// request cookie.
func (a *RouteAuthenticator) SessionFromCookie(c router.Context) (Session, error) {
	raw := c.Cookies(a.cfg.GetContextKey())
	if raw == "" {
		return nil, ErrUnableToFindSession
	}
	return a.auth.SessionFromToken(raw)
}

// RequireSession rejects requests without a valid session cookie and
// stores the decoded session in both router locals and the request
// context for downstream handlers.
func (a *RouteAuthenticator) RequireSession() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			raw := c.Cookies(a.cfg.GetContextKey())
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, map[string]any{
					"success": false,
					"message": "Unauthorized - no token provided",
				})
			}

			session, err := a.auth.SessionFromToken(raw)
			if err != nil {
				authErr := UnauthorizedError(err)
				a.Logger.Info("RequireSession rejected token: %s", authErr.TextCode)
				return c.JSON(http.StatusUnauthorized, map[string]any{
					"success": false,
					"message": "Unauthorized - invalid token",
				})
			}

			c.Locals(a.cfg.GetContextKey(), session)
			c.SetContext(WithSessionContext(c.Context(), session))

			return hf(c)
		}
	}
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// UnauthorizedError maps an auth failure onto the canonical rich error
// used by the HTTP surface.
func UnauthorizedError(err error) *goerrors.Error {
	if IsTokenExpiredError(err) {
		return ErrTokenExpired
	}
	if IsMalformedError(err) {
		return ErrTokenMalformed
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}

	return goerrors.Wrap(err, goerrors.CategoryAuth, "Invalid authentication token").
		WithCode(goerrors.CodeUnauthorized)
}
