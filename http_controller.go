package auth

import (
	"fmt"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"

	"github.com/certiweb/go-auth/middleware/gate"
)

// AuthenticatedUserResource is returned by register and login
type AuthenticatedUserResource struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Plan  string `json:"plan"`
	Token string `json:"token"`
}

// UserResource never carries the password hash
type UserResource struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Plan  string `json:"plan"`
	Role  string `json:"role"`
}

func NewUserResource(u *User) UserResource {
	return UserResource{
		ID:    u.ID.String(),
		Name:  u.Name,
		Email: u.Email,
		Plan:  u.Plan,
		Role:  u.Role,
	}
}

func newAuthenticatedUserResource(u *User, token string) AuthenticatedUserResource {
	return AuthenticatedUserResource{
		ID:    u.ID.String(),
		Name:  u.Name,
		Email: u.Email,
		Plan:  u.Plan,
		Token: token,
	}
}

// CreateUserRequest is the registration payload
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Plan     string `json:"plan"`
}

// Validate will run validation rules
func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 0), PasswordLength),
		validation.Field(&r.Plan, validation.Required),
	)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type AuthControllerRoutes struct {
	Register         string
	Login            string
	Me               string
	Logout           string
	Users            string
	User             string
	MigratePasswords string
	Health           string
}

type AuthController struct {
	Debug  bool
	Logger Logger
	Repo   RepositoryManager
	Auther *Auther
	Gate   *gate.Gate
	Routes *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(repo RepositoryManager, auther *Auther, g *gate.Gate, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defaultLogger(),
		Repo:   repo,
		Auther: auther,
		Gate:   g,
		Routes: &AuthControllerRoutes{
			Register:         "/api/v1/auth",
			Login:            "/api/v1/auth/login",
			Me:               "/api/v1/auth/me",
			Logout:           "/api/v1/auth/logout",
			Users:            "/api/v1/users",
			User:             "/api/v1/users/:id",
			MigratePasswords: "/api/v1/users/migrate-passwords",
			Health:           "/health",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Auther in auth controller...")
	}

	if c.Gate == nil {
		panic("Missing Gate in auth controller...")
	}

	return c
}

// RouteTable lists every endpoint with its access policy.
func (a *AuthController) RouteTable() []gate.Route {
	return []gate.Route{
		{Method: http.MethodGet, Path: a.Routes.Health, Name: "health", Public: true, Handler: a.Health},
		{Method: http.MethodPost, Path: a.Routes.Register, Name: "auth.register", Public: true, Handler: a.Register},
		{Method: http.MethodPost, Path: a.Routes.Login, Name: "auth.login", Public: true, Handler: a.Login},
		{Method: http.MethodGet, Path: a.Routes.Me, Name: "auth.me", Handler: a.Me},
		{Method: http.MethodPost, Path: a.Routes.Logout, Name: "auth.logout", Handler: a.Logout},
		{Method: http.MethodGet, Path: a.Routes.Users, Name: "users.list", Handler: a.ListUsers},
		{Method: http.MethodPost, Path: a.Routes.MigratePasswords, Name: "users.migrate-passwords", Roles: []string{RoleAdmin}, Handler: a.MigratePasswords},
		{Method: http.MethodGet, Path: a.Routes.User, Name: "users.get", Handler: a.GetUser},
	}
}

// RegisterAuthRoutes mounts the controller routes behind the gate.
func RegisterAuthRoutes[T any](app router.Router[T], controller *AuthController) {
	controller.Gate.Mount(app, controller.RouteTable()...)
}

func (a *AuthController) Health(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]string{"status": "ok"})
}

func (a *AuthController) Register(ctx router.Context) error {
	payload := new(CreateUserRequest)
	if err := ctx.Bind(payload); err != nil {
		return badRequest(err, "failed to parse body")
	}

	if err := payload.Validate(); err != nil {
		return badRequest(err, "invalid registration payload")
	}

	a.debugPayload("AUTH REGISTER", map[string]any{"email": payload.Email, "plan": payload.Plan})

	user, token, err := a.Auther.Register(ctx.Context(), RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		Plan:     payload.Plan,
	})
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, newAuthenticatedUserResource(user, token))
}

func (a *AuthController) Login(ctx router.Context) error {
	payload := new(LoginRequest)
	if err := ctx.Bind(payload); err != nil {
		return badRequest(err, "failed to parse body")
	}

	if err := payload.Validate(); err != nil {
		return badRequest(err, "invalid login payload")
	}

	user, token, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, newAuthenticatedUserResource(user, token))
}

func (a *AuthController) Me(ctx router.Context) error {
	p, ok := a.principal(ctx)
	if !ok {
		return ErrUnauthenticated
	}

	user, err := a.Repo.Users().GetByID(ctx.Context(), p.ID)
	if err != nil {
		return notFoundOr(err, p.ID)
	}
	return ctx.JSON(router.StatusOK, NewUserResource(user))
}

func (a *AuthController) Logout(ctx router.Context) error {
	tok, ok := TokenFromContext(ctx.Context())
	if !ok {
		return ErrUnauthenticated
	}

	if err := a.Auther.Logout(ctx.Context(), tok); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (a *AuthController) ListUsers(ctx router.Context) error {
	records, err := a.Repo.Users().ListUsers(ctx.Context())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list users")
	}

	out := make([]UserResource, 0, len(records))
	for _, u := range records {
		out = append(out, NewUserResource(u))
	}
	return ctx.JSON(router.StatusOK, out)
}

func (a *AuthController) GetUser(ctx router.Context) error {
	id := strings.TrimSpace(ctx.Param("id"))
	if !isUUID(id) {
		return ErrIdentityNotFound.Clone().WithMetadata(map[string]any{"id": id})
	}

	user, err := a.Repo.Users().GetByID(ctx.Context(), id)
	if err != nil {
		return notFoundOr(err, id)
	}
	return ctx.JSON(router.StatusOK, NewUserResource(user))
}

func (a *AuthController) MigratePasswords(ctx router.Context) error {
	n, err := a.Auther.MigratePasswords(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, map[string]any{
		"message":  fmt.Sprintf("%d password(s) migrated", n),
		"migrated": n,
	})
}

func (a *AuthController) principal(ctx router.Context) (*Principal, bool) {
	return PrincipalFromRouter(ctx, a.Gate.Config().ContextKey)
}

func (a *AuthController) debugPayload(title string, payload any) {
	if !a.Debug {
		return
	}
	a.Logger.Debug(title, "payload", print.MaybePrettyJSON(payload))
}

func badRequest(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, msg).
		WithCode(goerrors.CodeBadRequest).
		WithTextCode(TextCodeInvalidInput).
		WithMetadata(map[string]any{"validation": err.Error()})
}

func notFoundOr(err error, id string) error {
	if repository.IsRecordNotFound(err) {
		return ErrIdentityNotFound.Clone().WithMetadata(map[string]any{"id": id})
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
}
