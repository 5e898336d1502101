package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type VerifyEmailMessage struct {
	Code       string `json:"code"`
	OnResponse func(*VerifyEmailResponse)
}

func (e VerifyEmailMessage) Type() string { return "account.verify_email" }

type VerifyEmailResponse struct {
	Account *AccountView
	Success bool
}

// VerifyEmailHandler consumes a pending verification code. Unknown,
// expired, and already consumed codes collapse into the same error so
// the response never reveals which case applied.
type VerifyEmailHandler struct {
	repo     RepositoryManager
	notifier Notifier
	logger   Logger
	now      func() time.Time
}

func NewVerifyEmailHandler(repo RepositoryManager) *VerifyEmailHandler {
	return &VerifyEmailHandler{
		repo:     repo,
		notifier: noopNotifier{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

func (h *VerifyEmailHandler) WithNotifier(n Notifier) *VerifyEmailHandler {
	if n != nil {
		h.notifier = n
	}
	return h
}

func (h *VerifyEmailHandler) WithLogger(logger Logger) *VerifyEmailHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock overrides the time source, used to exercise expiry windows.
func (h *VerifyEmailHandler) WithClock(now func() time.Time) *VerifyEmailHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	if event.Code == "" {
		return goerrors.New("Verification code is required", goerrors.CategoryValidation).
			WithTextCode("MISSING_FIELDS")
	}

	account := &Account{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var err error

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err = h.repo.Accounts().GetByVerificationCodeTx(ctx, tx, event.Code, h.now())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrVerificationCodeInvalid
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up verification code")
		}

		if err := h.repo.Accounts().MarkVerifiedTx(ctx, tx, account.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark account as verified")
		}

		account.IsVerified = true
		account.VerificationToken = nil
		account.VerificationExpiresAt = nil

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify email")
	}

	h.notifier.DispatchWelcomeEmail(account.Email, account.Name)

	if event.OnResponse != nil {
		event.OnResponse(&VerifyEmailResponse{
			Account: NewAccountView(account),
			Success: true,
		})
	}

	return nil
}
