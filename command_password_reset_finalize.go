package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	Token      string `json:"token"`
	Password   string `json:"password"`
	OnResponse func(*FinalizePasswordResetResponse)
}

func (e FinalizePasswordResetMessage) Type() string { return "account.password_reset_finalize" }

type FinalizePasswordResetResponse struct {
	Account *AccountView
	Success bool
}

// FinalizePasswordResetHandler consumes a pending reset token and
// replaces the password hash. Unknown, expired, and already consumed
// tokens collapse into the same error.
type FinalizePasswordResetHandler struct {
	repo       RepositoryManager
	notifier   Notifier
	logger     Logger
	bcryptCost int
	now        func() time.Time
}

func NewFinalizePasswordResetHandler(repo RepositoryManager) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		repo:       repo,
		notifier:   noopNotifier{},
		logger:     defLogger{},
		bcryptCost: DefaultBcryptCost,
		now:        time.Now,
	}
}

func (h *FinalizePasswordResetHandler) WithNotifier(n Notifier) *FinalizePasswordResetHandler {
	if n != nil {
		h.notifier = n
	}
	return h
}

func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizePasswordResetHandler) WithBcryptCost(cost int) *FinalizePasswordResetHandler {
	if cost > 0 {
		h.bcryptCost = cost
	}
	return h
}

// WithClock overrides the time source, used to exercise expiry windows.
func (h *FinalizePasswordResetHandler) WithClock(now func() time.Time) *FinalizePasswordResetHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	if event.Token == "" || event.Password == "" {
		return goerrors.New("Token and password are required", goerrors.CategoryValidation).
			WithTextCode("MISSING_FIELDS")
	}

	account := &Account{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var err error

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err = h.repo.Accounts().GetByResetTokenTx(ctx, tx, event.Token, h.now())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrResetTokenInvalid
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up reset token")
		}

		hash, err := HashPasswordWithCost(event.Password, h.bcryptCost)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		if err := h.repo.Accounts().ResetPasswordTx(ctx, tx, account.ID, hash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reset password")
		}

		account.PasswordHash = hash
		account.ResetToken = nil
		account.ResetExpiresAt = nil

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	h.notifier.DispatchPasswordResetConfirmation(account.Email)

	if event.OnResponse != nil {
		event.OnResponse(&FinalizePasswordResetResponse{
			Account: NewAccountView(account),
			Success: true,
		})
	}

	return nil
}
