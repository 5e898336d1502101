package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// Auther implements Authenticator on top of the account repositories
// and a TokenService.
type Auther struct {
	repo   RepositoryManager
	tokens TokenService
	logger Logger
	now    func() time.Time
}

var _ Authenticator = (*Auther)(nil)

func NewAuthenticator(repo RepositoryManager, tokens TokenService) *Auther {
	return &Auther{
		repo:   repo,
		tokens: tokens,
		logger: defLogger{},
		now:    time.Now,
	}
}

func (a *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// WithClock overrides the time source, used to pin last login stamps.
func (a *Auther) WithClock(now func() time.Time) *Auther {
	if now != nil {
		a.now = now
	}
	return a
}

// Login checks the credentials and mints a session token. An unknown
// email and a wrong password return the same error, so a caller cannot
// probe which addresses are registered.
func (a *Auther) Login(ctx context.Context, email, password string) (string, *AccountView, error) {
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	account, err := a.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	at := a.now()
	if err := a.repo.Accounts().TrackSuccessfulLogin(ctx, account, at); err != nil {
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to track login")
	}
	account.LastLoginAt = &at

	token, err := a.tokens.Generate(account.ID.String())
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return "", nil, richErr
		}
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session token")
	}

	return token, NewAccountView(account), nil
}

// IssueToken mints a session token for an already authenticated account.
func (a *Auther) IssueToken(accountID string) (string, error) {
	return a.tokens.Generate(accountID)
}

// SessionFromToken validates a token string and decodes its session.
func (a *Auther) SessionFromToken(token string) (Session, error) {
	claims, err := a.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	return sessionFromAuthClaims(claims)
}

// AccountFromSession resolves the session subject back to its account.
func (a *Auther) AccountFromSession(ctx context.Context, session Session) (*AccountView, error) {
	if session == nil {
		return nil, ErrUnableToFindSession
	}

	id, err := session.GetAccountUUID()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "session subject is not a valid account id")
	}

	account, err := a.repo.Accounts().GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
	}

	return NewAccountView(account), nil
}
