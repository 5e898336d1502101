package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type SignupMessage struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	UseHashid  bool
	OnResponse func(*SignupResponse)
}

func (e SignupMessage) Type() string { return "account.signup" }

type SignupResponse struct {
	Account          *AccountView
	VerificationCode string
	Success          bool
}

// SignupHandler creates an unverified account with a pending
// verification pair and hands the verification email to the notifier
// once the record is persisted.
type SignupHandler struct {
	repo       RepositoryManager
	notifier   Notifier
	logger     Logger
	bcryptCost int
	now        func() time.Time
}

func NewSignupHandler(repo RepositoryManager) *SignupHandler {
	return &SignupHandler{
		repo:       repo,
		notifier:   noopNotifier{},
		logger:     defLogger{},
		bcryptCost: DefaultBcryptCost,
		now:        time.Now,
	}
}

func (h *SignupHandler) WithNotifier(n Notifier) *SignupHandler {
	if n != nil {
		h.notifier = n
	}
	return h
}

func (h *SignupHandler) WithLogger(logger Logger) *SignupHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *SignupHandler) WithBcryptCost(cost int) *SignupHandler {
	if cost > 0 {
		h.bcryptCost = cost
	}
	return h
}

// WithClock overrides the time source, used to exercise expiry windows.
func (h *SignupHandler) WithClock(now func() time.Time) *SignupHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *SignupHandler) Execute(ctx context.Context, event SignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupHandler) execute(ctx context.Context, event SignupMessage) error {
	if event.Email == "" || event.Password == "" || event.Name == "" {
		return goerrors.New("All fields are required", goerrors.CategoryValidation).
			WithTextCode("MISSING_FIELDS")
	}

	account := &Account{}
	code, expiresAt := verificationCodeAt(h.now())

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := h.repo.Accounts().GetByEmailTx(ctx, tx, event.Email)
		if err != nil && !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
		}
		if existing != nil {
			return ErrAccountExists
		}

		hash, err := HashPasswordWithCost(event.Password, h.bcryptCost)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.Email = event.Email
		account.Name = event.Name
		account.PasswordHash = hash
		account.VerificationToken = &code
		account.VerificationExpiresAt = &expiresAt
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				account.ID = id
			}
		}

		if account, err = h.repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			// a unique index hit means the email was taken in a race
			// with the existence check; anything else is a store fault
			if IsUniqueViolation(err) {
				return ErrAccountExists
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create account")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "signup transaction failed")
	}

	// the record is committed before the email leaves the building
	h.notifier.DispatchVerificationEmail(account.Email, code)

	if event.OnResponse != nil {
		event.OnResponse(&SignupResponse{
			Account:          NewAccountView(account),
			VerificationCode: code,
			Success:          true,
		})
	}

	return nil
}

type noopNotifier struct{}

func (noopNotifier) DispatchVerificationEmail(string, string)   {}
func (noopNotifier) DispatchWelcomeEmail(string, string)        {}
func (noopNotifier) DispatchPasswordResetEmail(string, string)  {}
func (noopNotifier) DispatchPasswordResetConfirmation(string)   {}
