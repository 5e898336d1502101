package accounts

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email"`
	OnResponse func(*InitializePasswordResetResponse)
}

func (e InitializePasswordResetMessage) Type() string { return "account.password_reset" }

type InitializePasswordResetResponse struct {
	ResetToken string
	ExpiresAt  time.Time
	Success    bool
}

// InitializePasswordResetHandler issues a fresh reset pair for an
// account and hands the reset link email to the notifier once the pair
// is persisted. A previously pending pair is superseded.
type InitializePasswordResetHandler struct {
	repo          RepositoryManager
	notifier      Notifier
	logger        Logger
	clientBaseURL string
	now           func() time.Time
}

func NewInitializePasswordResetHandler(repo RepositoryManager) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:     repo,
		notifier: noopNotifier{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

func (h *InitializePasswordResetHandler) WithNotifier(n Notifier) *InitializePasswordResetHandler {
	if n != nil {
		h.notifier = n
	}
	return h
}

func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClientBaseURL sets the base URL embedded in reset link emails.
func (h *InitializePasswordResetHandler) WithClientBaseURL(base string) *InitializePasswordResetHandler {
	h.clientBaseURL = strings.TrimRight(base, "/")
	return h
}

// WithClock overrides the time source, used to exercise expiry windows.
func (h *InitializePasswordResetHandler) WithClock(now func() time.Time) *InitializePasswordResetHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	if event.Email == "" {
		return goerrors.New("Email is required", goerrors.CategoryValidation).
			WithTextCode("MISSING_FIELDS")
	}

	account := &Account{}
	token, expiresAt := resetTokenAt(h.now())

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var err error

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err = h.repo.Accounts().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrAccountNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password reset")
		}

		if err := h.repo.Accounts().SetResetTokenTx(ctx, tx, account.ID, token, expiresAt); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist reset token")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	h.notifier.DispatchPasswordResetEmail(account.Email, h.resetLink(token))

	if event.OnResponse != nil {
		event.OnResponse(&InitializePasswordResetResponse{
			ResetToken: token,
			ExpiresAt:  expiresAt,
			Success:    true,
		})
	}

	return nil
}

func (h *InitializePasswordResetHandler) resetLink(token string) string {
	return h.clientBaseURL + "/reset-password/" + token
}
