package auth

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// loginFailedMessage is deliberately identical for unknown emails and
// wrong passwords
const loginFailedMessage = "Incorrect email or password"

// AuthController exposes the JSON auth API
type AuthController struct {
	Logger    Logger
	Repo      RepositoryManager
	Auther    Authenticator
	Registrar *RegisterUserHandler
	Config    Config
	Verifier  *VerificationCodec
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Config == nil {
		panic("Missing Config in auth controller...")
	}

	if c.Registrar == nil {
		c.Registrar = NewRegisterUserHandler(c.Repo)
	}

	return c
}

func WithControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = l
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Config = cfg
		c.Verifier = NewVerificationCodec(cfg)
		return c
	}
}

// RegisterAuthRoutes mounts the auth API on the given router
func RegisterAuthRoutes(app fiber.Router, controller *AuthController) {
	grp := app.Group("/auth")

	grp.Post("/register", controller.RegistrationCreate)
	grp.Post("/login", controller.LoginPost)
	grp.Post("/token", controller.TokenPost)
	grp.Post("/refresh", controller.RefreshPost)
	grp.Get("/verify-email", controller.VerifyEmailGet)

	protected := grp.Use(Protected(controller.Auther, controller.Config, controller.Logger))
	protected.Post("/logout", controller.LogoutPost)
	protected.Get("/me", controller.MeGet)

	users := app.Group("/users",
		Protected(controller.Auther, controller.Config, controller.Logger),
		RequireRoles(controller.Config, RoleAdmin),
	)
	users.Post("/", controller.AgentCreate)
}

// RegistrationCreatePayload is the registration body
type RegistrationCreatePayload struct {
	FullName        string `form:"full_name" json:"full_name"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will run validation rules
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 150), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.By(validateStringEquals(r.Password, "passwords do not match")),
		),
	)
}

func (a *AuthController) RegistrationCreate(c *fiber.Ctx) error {
	payload := new(RegistrationCreatePayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("register user parse payload", "error", err)
		return respondFail(c, fiber.StatusBadRequest, "Error parsing body", nil)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Info("register user validate payload", "error", err)
		return respondFail(c, fiber.StatusUnprocessableEntity, "Invalid input or validation error", validationErrors(err))
	}

	user, err := a.Registrar.Execute(c.Context(), RegisterUserMessage{
		FullName: payload.FullName,
		Email:    payload.Email,
		Password: payload.Password,
		Role:     RoleAgent,
	})

	if err != nil {
		if goerrors.Is(err, ErrEmailTaken) {
			return respondFail(c, fiber.StatusConflict, "Email already registered", nil)
		}

		a.Logger.Error("register user failed", "email", NormalizeEmail(payload.Email), "error", err)
		return respondFail(c, fiber.StatusInternalServerError, "Failed to create user", nil)
	}

	if a.Verifier != nil {
		token := a.Verifier.Create(user.Email)
		// email delivery is out of scope, downstream workers pick the
		// link up from the log stream
		a.Logger.Info("verification link issued", "email", user.Email, "token", token)
	}

	a.Logger.Info("registration successful", "email", user.Email)
	return respondSuccess(c, fiber.StatusCreated, "Your account has been created successfully.", user.Public())
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		return respondFail(c, fiber.StatusBadRequest, "Error parsing body", nil)
	}

	if err := payload.Validate(); err != nil {
		return respondFail(c, fiber.StatusUnprocessableEntity, "Invalid input or validation error", validationErrors(err))
	}

	pair, err := a.Auther.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.loginFailure(c, err)
	}

	return respondSuccess(c, fiber.StatusOK, "Login successful", tokenResponse(pair))
}

// TokenRequest is the OAuth2 style form login used by API tooling
type TokenRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// TokenPost implements the OAuth2 password flow shape: form payload in,
// bare token object out (no envelope).
func (a *AuthController) TokenPost(c *fiber.Ctx) error {
	payload := new(TokenRequest)

	if err := c.BodyParser(payload); err != nil {
		return respondFail(c, fiber.StatusBadRequest, "Error parsing body", nil)
	}

	pair, err := a.Auther.Login(c.Context(), payload.Username, payload.Password)
	if err != nil {
		return a.loginFailure(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(tokenResponse(pair))
}

// RefreshRequest carries the refresh token to exchange
type RefreshRequest struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

func (a *AuthController) RefreshPost(c *fiber.Ctx) error {
	payload := new(RefreshRequest)

	if err := c.BodyParser(payload); err != nil || payload.RefreshToken == "" {
		return respondFail(c, fiber.StatusBadRequest, "Missing refresh token", nil)
	}

	pair, err := a.Auther.Refresh(c.Context(), payload.RefreshToken)
	if err != nil {
		if IsInternalError(err) {
			a.Logger.Error("refresh failed", "error", err)
			return respondFail(c, fiber.StatusInternalServerError, "Something went wrong", nil)
		}

		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		return respondFail(c, fiber.StatusUnauthorized, "Could not validate credentials", nil)
	}

	return respondSuccess(c, fiber.StatusOK, "Token refreshed", tokenResponse(pair))
}

func (a *AuthController) VerifyEmailGet(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return respondFail(c, fiber.StatusBadRequest, "Invalid or expired token", nil)
	}

	user, err := a.Auther.VerifyEmail(c.Context(), token)
	if err != nil {
		if goerrors.Is(err, ErrIdentityNotFound) {
			return respondFail(c, fiber.StatusNotFound, "User not found", nil)
		}
		return respondFail(c, fiber.StatusBadRequest, "Invalid or expired token", nil)
	}

	return respondSuccess(c, fiber.StatusOK, "Email verified successfully", user.Public())
}

func (a *AuthController) LogoutPost(c *fiber.Ctx) error {
	raw, ok := RawTokenFromFiber(c)
	if !ok {
		return unauthorized(c, ErrUnableToFindSession)
	}

	payload := new(RefreshRequest)
	// body is optional on logout
	_ = c.BodyParser(payload)

	if err := a.Auther.Logout(c.Context(), raw, payload.RefreshToken); err != nil {
		a.Logger.Error("logout failed", "error", err)
		return respondFail(c, fiber.StatusInternalServerError, "Logout failed", nil)
	}

	return respondSuccess(c, fiber.StatusOK, "Logged out", nil)
}

func (a *AuthController) MeGet(c *fiber.Ctx) error {
	identity, ok := IdentityFromFiber(c, a.Config.GetContextKey())
	if !ok {
		return unauthorized(c, ErrUnableToFindSession)
	}

	user, err := a.Repo.Users().GetByEmail(c.Context(), identity.Email())
	if err != nil {
		return respondFail(c, fiber.StatusNotFound, "User not found", nil)
	}

	return respondSuccess(c, fiber.StatusOK, "OK", user.Public())
}

// AgentCreate lets an ADMIN provision AGENT accounts
func (a *AuthController) AgentCreate(c *fiber.Ctx) error {
	payload := new(RegistrationCreatePayload)

	if err := c.BodyParser(payload); err != nil {
		return respondFail(c, fiber.StatusBadRequest, "Error parsing body", nil)
	}

	if err := payload.Validate(); err != nil {
		return respondFail(c, fiber.StatusUnprocessableEntity, "Invalid input or validation error", validationErrors(err))
	}

	user, err := a.Registrar.Execute(c.Context(), RegisterUserMessage{
		FullName: payload.FullName,
		Email:    payload.Email,
		Password: payload.Password,
		Role:     RoleAgent,
	})

	if err != nil {
		if goerrors.Is(err, ErrEmailTaken) {
			return respondFail(c, fiber.StatusConflict, "Email already registered", nil)
		}
		a.Logger.Error("agent create failed", "error", err)
		return respondFail(c, fiber.StatusInternalServerError, "Failed to create user", nil)
	}

	return respondSuccess(c, fiber.StatusCreated, "Agent created", user.Public())
}

func (a *AuthController) loginFailure(c *fiber.Ctx, err error) error {
	if IsInternalError(err) {
		a.Logger.Error("login failed", "error", err)
		return respondFail(c, fiber.StatusInternalServerError, "Something went wrong", nil)
	}

	a.Logger.Info("login rejected", "error", err)
	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	// uniform response regardless of which credential check failed
	return respondFail(c, fiber.StatusUnauthorized, loginFailedMessage, nil)
}

type tokenResponseBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func tokenResponse(pair *TokenPair) tokenResponseBody {
	expiresIn := int64(time.Until(pair.ExpiresAt).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}

	return tokenResponseBody{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    expiresIn,
	}
}

type envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func respondSuccess(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(envelope{Message: message, Data: data})
}

func respondFail(c *fiber.Ctx, status int, message string, errs any) error {
	return c.Status(status).JSON(envelope{Message: message, Errors: errs})
}

func validationErrors(err error) any {
	if errs, ok := err.(validation.Errors); ok {
		out := make(map[string]string, len(errs))
		for field, fieldErr := range errs {
			out[field] = fieldErr.Error()
		}
		return out
	}
	return err.Error()
}

func validateStringEquals(expected, message string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != expected {
			return goerrors.New(message, goerrors.CategoryValidation)
		}
		return nil
	}
}
