package accounts_test

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	accounts "github.com/voyantio/go-accounts"
	"golang.org/x/crypto/bcrypt"
)

func newTestTokenService() accounts.TokenService {
	return accounts.NewTokenService([]byte("test-signing-key"), 1, "test-issuer", nil, testLogger{})
}

func TestAutherLoginSuccess(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	accountsRepo := &MockAccounts{}

	hash, err := accounts.HashPasswordWithCost("securePassword123!", bcrypt.MinCost)
	require.NoError(t, err)

	record := &accounts.Account{
		ID:           uuid.New(),
		Email:        "pepe@example.com",
		Name:         "Pepe Rone",
		PasswordHash: hash,
		IsVerified:   true,
	}

	loginAt := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

	repo.On("Accounts").Return(accountsRepo)
	accountsRepo.On("GetByEmail", mock.Anything, "pepe@example.com").
		Return(record, nil).Once()
	accountsRepo.On("TrackSuccessfulLogin", mock.Anything, record, loginAt).
		Return(nil).Once()

	auther := accounts.NewAuthenticator(repo, newTestTokenService()).
		WithLogger(testLogger{}).
		WithClock(func() time.Time { return loginAt })

	token, view, err := auther.Login(ctx, "pepe@example.com", "securePassword123!")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NotNil(t, view)
	assert.Equal(t, record.ID, view.ID)
	require.NotNil(t, view.LastLoginAt)
	assert.True(t, view.LastLoginAt.Equal(loginAt))

	session, err := auther.SessionFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, record.ID.String(), session.GetAccountID())

	repo.AssertExpectations(t)
	accountsRepo.AssertExpectations(t)
}

// An unknown email and a wrong password must be indistinguishable, so
// the caller cannot probe which addresses are registered.
func TestAutherLoginCollapsesFailures(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	accountsRepo := &MockAccounts{}

	hash, err := accounts.HashPasswordWithCost("rightPassword123!", bcrypt.MinCost)
	require.NoError(t, err)

	known := &accounts.Account{
		ID:           uuid.New(),
		Email:        "known@example.com",
		PasswordHash: hash,
	}

	repo.On("Accounts").Return(accountsRepo)
	accountsRepo.On("GetByEmail", mock.Anything, "known@example.com").
		Return(known, nil).Once()
	accountsRepo.On("GetByEmail", mock.Anything, "unknown@example.com").
		Return(nil, repository.NewRecordNotFound()).Once()

	auther := accounts.NewAuthenticator(repo, newTestTokenService()).WithLogger(testLogger{})

	_, _, errWrongPassword := auther.Login(ctx, "known@example.com", "wrongPassword")
	_, _, errUnknownEmail := auther.Login(ctx, "unknown@example.com", "whatever123")

	require.Error(t, errWrongPassword)
	require.Error(t, errUnknownEmail)

	var rich1, rich2 *goerrors.Error
	require.True(t, goerrors.As(errWrongPassword, &rich1))
	require.True(t, goerrors.As(errUnknownEmail, &rich2))
	assert.Equal(t, rich1.Message, rich2.Message)
	assert.Equal(t, accounts.MsgInvalidCredentials, rich1.Message)

	accountsRepo.AssertNotCalled(t, "TrackSuccessfulLogin", mock.Anything, mock.Anything, mock.Anything)
}

func TestAutherLoginFailsWhenTrackingFails(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	accountsRepo := &MockAccounts{}

	hash, err := accounts.HashPasswordWithCost("securePassword123!", bcrypt.MinCost)
	require.NoError(t, err)

	record := &accounts.Account{
		ID:           uuid.New(),
		Email:        "pepe@example.com",
		PasswordHash: hash,
	}

	repo.On("Accounts").Return(accountsRepo)
	accountsRepo.On("GetByEmail", mock.Anything, "pepe@example.com").
		Return(record, nil).Once()
	accountsRepo.On("TrackSuccessfulLogin", mock.Anything, record, mock.Anything).
		Return(goerrors.New("db down", goerrors.CategoryInternal)).Once()

	auther := accounts.NewAuthenticator(repo, newTestTokenService()).WithLogger(testLogger{})

	_, _, err = auther.Login(ctx, "pepe@example.com", "securePassword123!")
	require.Error(t, err)
}

func TestAutherAccountFromSession(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	accountsRepo := &MockAccounts{}

	record := &accounts.Account{
		ID:    uuid.New(),
		Email: "pepe@example.com",
	}

	repo.On("Accounts").Return(accountsRepo)
	accountsRepo.On("GetByID", mock.Anything, record.ID.String()).
		Return(record, nil).Once()

	auther := accounts.NewAuthenticator(repo, newTestTokenService()).WithLogger(testLogger{})

	token, err := auther.IssueToken(record.ID.String())
	require.NoError(t, err)

	session, err := auther.SessionFromToken(token)
	require.NoError(t, err)

	view, err := auther.AccountFromSession(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, record.Email, view.Email)
}

func TestAutherAccountFromSessionUnknownAccount(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	accountsRepo := &MockAccounts{}

	id := uuid.New()

	repo.On("Accounts").Return(accountsRepo)
	accountsRepo.On("GetByID", mock.Anything, id.String()).
		Return(nil, repository.NewRecordNotFound()).Once()

	auther := accounts.NewAuthenticator(repo, newTestTokenService()).WithLogger(testLogger{})

	token, err := auther.IssueToken(id.String())
	require.NoError(t, err)

	session, err := auther.SessionFromToken(token)
	require.NoError(t, err)

	_, err = auther.AccountFromSession(ctx, session)
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, accounts.MsgAccountNotFound, richErr.Message)
}

func TestAutherSessionFromTokenRejectsTampered(t *testing.T) {
	repo := &MockRepositoryManager{}
	auther := accounts.NewAuthenticator(repo, newTestTokenService()).WithLogger(testLogger{})

	token, err := auther.IssueToken(uuid.New().String())
	require.NoError(t, err)

	_, err = auther.SessionFromToken(token + "tampered")
	require.Error(t, err)
}
