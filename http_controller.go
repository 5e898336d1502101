package accounts

import (
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
)

// RegisterAccountRoutes mounts the account lifecycle JSON API on the
// given router group.
func RegisterAccountRoutes[T any](app router.Router[T], opts ...AccountControllerOption) {
	controller := NewAccountController(opts...)

	app.Post(controller.Routes.Signup, controller.Signup).
		SetName("account.signup")
	app.Post(controller.Routes.VerifyEmail, controller.VerifyEmail).
		SetName("account.verify-email")
	app.Post(controller.Routes.Login, controller.Login).
		SetName("account.login")
	app.Post(controller.Routes.Logout, controller.Logout).
		SetName("account.logout")
	app.Post(controller.Routes.ForgotPassword, controller.ForgotPassword).
		SetName("account.forgot-password")
	app.Post(fmt.Sprintf("%s/:token", controller.Routes.ResetPassword), controller.ResetPassword).
		SetName("account.reset-password")
	app.Get(controller.Routes.CheckAuth, controller.CheckAuth, controller.Auther.RequireSession()).
		SetName("account.check-auth")
}

type AccountControllerRoutes struct {
	Signup         string
	VerifyEmail    string
	Login          string
	Logout         string
	ForgotPassword string
	ResetPassword  string
	CheckAuth      string
}

type AccountController struct {
	Debug    bool
	Logger   Logger
	Repo     RepositoryManager
	Routes   *AccountControllerRoutes
	Auther   HTTPAuthenticator
	Notifier Notifier
	Config   Config
}

type AccountControllerOption func(*AccountController) *AccountController

func WithControllerRepo(repo RepositoryManager) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther HTTPAuthenticator) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Auther = auther
		return c
	}
}

func WithControllerNotifier(n Notifier) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Notifier = n
		return c
	}
}

func WithControllerConfig(cfg Config) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Config = cfg
		return c
	}
}

func WithControllerLogger(logger Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Logger = logger
		return c
	}
}

func WithControllerDebug(debug bool) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Debug = debug
		return c
	}
}

func NewAccountController(opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger: defLogger{},
		Routes: &AccountControllerRoutes{
			Signup:         "/signup",
			VerifyEmail:    "/verify-email",
			Login:          "/login",
			Logout:         "/logout",
			ForgotPassword: "/forgot-password",
			ResetPassword:  "/reset-password",
			CheckAuth:      "/check-auth",
		},
		Notifier: noopNotifier{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in account controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in account controller...")
	}

	if c.Config == nil {
		panic("Missing Config in account controller...")
	}

	return c
}

// SignupRequest payload
type SignupRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Name     string `form:"name" json:"name"`
}

// Validate will run validation rules
func (r SignupRequest) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email, validation.Required, is.Email),
			validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
			validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		)
	}, "Invalid signup request payload")
}

func (a *AccountController) Signup(ctx router.Context) error {
	payload := new(SignupRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.writeError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return a.writeError(ctx, err)
	}

	if a.Debug {
		a.Logger.Debug("signup payload: %s", print.MaybePrettyJSON(payload))
	}

	var res *SignupResponse
	req := SignupMessage{
		Email:    payload.Email,
		Password: payload.Password,
		Name:     payload.Name,
		OnResponse: func(r *SignupResponse) {
			res = r
		},
	}

	handler := NewSignupHandler(a.Repo).
		WithNotifier(a.Notifier).
		WithLogger(a.Logger).
		WithBcryptCost(a.Config.GetBcryptCost())

	if err := handler.Execute(ctx.Context(), req); err != nil {
		return a.writeError(ctx, err)
	}

	// signup logs the new account in
	if err := a.Auther.IssueSession(ctx, res.Account.ID.String()); err != nil {
		a.Logger.Error("Signup issue session error: %v", err)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"message": "User created successfully",
		"user":    res.Account,
	})
}

// VerifyEmailRequest payload
type VerifyEmailRequest struct {
	Code string `form:"code" json:"code"`
}

// Validate will run validation rules
func (r VerifyEmailRequest) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Code, validation.Required, validation.Length(6, 6), is.Digit),
		)
	}, "Invalid verification request payload")
}

func (a *AccountController) VerifyEmail(ctx router.Context) error {
	payload := new(VerifyEmailRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.writeError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return a.writeError(ctx, err)
	}

	var res *VerifyEmailResponse
	req := VerifyEmailMessage{
		Code: payload.Code,
		OnResponse: func(r *VerifyEmailResponse) {
			res = r
		},
	}

	handler := NewVerifyEmailHandler(a.Repo).
		WithNotifier(a.Notifier).
		WithLogger(a.Logger)

	if err := handler.Execute(ctx.Context(), req); err != nil {
		return a.writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Email verified successfully",
		"user":    res.Account,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// GetIdentifier returns the account email
func (r LoginRequest) GetIdentifier() string {
	return r.Email
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email, validation.Required, is.Email),
			validation.Field(&r.Password, validation.Required),
		)
	}, "Invalid login request payload")
}

func (a *AccountController) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.writeError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return a.writeError(ctx, err)
	}

	account, err := a.Auther.Login(ctx, payload)
	if err != nil {
		return a.writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged in successfully",
		"user":    account,
	})
}

// Logout clears the session cookie; it succeeds even without a session.
func (a *AccountController) Logout(ctx router.Context) error {
	a.Auther.Logout(ctx)

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out successfully",
	})
}

// ForgotPasswordRequest payload
type ForgotPasswordRequest struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r ForgotPasswordRequest) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email, validation.Required, is.Email),
		)
	}, "Invalid password reset request payload")
}

func (a *AccountController) ForgotPassword(ctx router.Context) error {
	payload := new(ForgotPasswordRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.writeError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return a.writeError(ctx, err)
	}

	req := InitializePasswordResetMessage{
		Email: payload.Email,
	}

	handler := NewInitializePasswordResetHandler(a.Repo).
		WithNotifier(a.Notifier).
		WithLogger(a.Logger).
		WithClientBaseURL(a.Config.GetClientBaseURL())

	if err := handler.Execute(ctx.Context(), req); err != nil {
		return a.writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Password reset link sent to your email",
	})
}

// ResetPasswordRequest payload
type ResetPasswordRequest struct {
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r ResetPasswordRequest) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
		)
	}, "Invalid password reset payload")
}

func (a *AccountController) ResetPassword(ctx router.Context) error {
	token := ctx.Param("token", "")
	payload := new(ResetPasswordRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.writeError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return a.writeError(ctx, err)
	}

	req := FinalizePasswordResetMessage{
		Token:    token,
		Password: payload.Password,
	}

	handler := NewFinalizePasswordResetHandler(a.Repo).
		WithNotifier(a.Notifier).
		WithLogger(a.Logger).
		WithBcryptCost(a.Config.GetBcryptCost())

	if err := handler.Execute(ctx.Context(), req); err != nil {
		return a.writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Password reset successful",
	})
}

// CheckAuth resolves the current session back to its account. It sits
// behind RequireSession, so a session is always present here.
func (a *AccountController) CheckAuth(ctx router.Context) error {
	session, ok := SessionFromContext(ctx.Context())
	if !ok {
		return a.writeError(ctx, ErrUnableToFindSession)
	}

	id, err := session.GetAccountUUID()
	if err != nil {
		return a.writeError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Session subject is not a valid account id"))
	}

	account, err := a.Repo.Accounts().GetByID(ctx.Context(), id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return a.writeError(ctx, ErrAccountNotFound)
		}
		return a.writeError(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "Failed to retrieve account"))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"user":    NewAccountView(account),
	})
}

// writeError maps a rich error onto the JSON error envelope. Internal
// errors never leak their message to the client.
func (a *AccountController) writeError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, MsgServerError)
	}

	status := statusForCategory(richErr.Category)
	message := richErr.Message
	if status == http.StatusInternalServerError {
		a.Logger.Error("request failed: %v", err)
		message = MsgServerError
	}

	return ctx.JSON(status, map[string]any{
		"success": false,
		"message": message,
	})
}

func statusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryAuth:
		return http.StatusBadRequest
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
