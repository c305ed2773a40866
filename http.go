package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/certiweb/go-auth/middleware/gate"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Message  string `json:"message"`
	TextCode string `json:"text_code,omitempty"`
}

// HTTPErrorHandler maps go-errors to a status and a JSON body. Unknown
// errors become 500 without leaking their message. It is installed as the
// fiber app error handler, so it sees whatever a route handler returns.
func HTTPErrorHandler(logger Logger) func(c *fiber.Ctx, err error) error {
	if logger == nil {
		logger = defaultLogger()
	}
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(ErrorResponse{Message: fiberErr.Message})
		}

		var richErr *errors.Error
		if !errors.As(err, &richErr) {
			richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
				WithCode(errors.CodeInternal)
		}

		status := statusFor(richErr)
		message := richErr.Message

		// authentication failures all read the same on the wire
		switch {
		case status == http.StatusUnauthorized && richErr.TextCode != TextCodeInvalidCredentials:
			message = ErrUnauthenticated.Message
		case status >= http.StatusInternalServerError:
			message = "internal server error"
		}

		logger.Warn("request failed",
			"status", status,
			"error", richErr.Message,
			"category", richErr.Category,
			"text_code", richErr.TextCode,
			"path", c.Path(),
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)

		return c.Status(status).JSON(ErrorResponse{
			Message:  message,
			TextCode: richErr.TextCode,
		})
	}
}

func statusFor(err *errors.Error) int {
	if err.Code >= 400 && err.Code < 600 {
		return err.Code
	}
	switch err.Category {
	case errors.CategoryValidation, errors.CategoryBadInput:
		return http.StatusBadRequest
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// GateErrorHandler answers every gate rejection with the same 401 body.
// The reason was already logged by the gate.
func GateErrorHandler(c router.Context, _ gate.Decision) error {
	return c.JSON(router.StatusUnauthorized, ErrorResponse{
		Message:  ErrUnauthenticated.Message,
		TextCode: TextCodeUnauthenticated,
	})
}

// GateForbiddenHandler answers RequireRole rejections
func GateForbiddenHandler(c router.Context, _ *gate.Principal) error {
	return c.JSON(router.StatusForbidden, ErrorResponse{
		Message:  ErrUnauthorized.Message,
		TextCode: TextCodeUnauthorized,
	})
}

// GateOption tweaks the gate configuration built by NewGate
type GateOption func(*gate.Config)

// WithDecisionObserver registers a hook called for every gate decision
func WithDecisionObserver(fn func(c router.Context, d gate.Decision)) GateOption {
	return func(gc *gate.Config) {
		gc.OnDecision = fn
	}
}

// NewGate wires the gate to the token service, the users store and, when
// set, a revocation store.
func NewGate(cfg Config, tokens gate.TokenVerifier, principals gate.PrincipalFinder, revocations gate.RevocationChecker, logger Logger, opts ...GateOption) *gate.Gate {
	gc := gate.Config{
		Verifier:         tokens,
		Principals:       principals,
		ErrorHandler:     GateErrorHandler,
		ForbiddenHandler: GateForbiddenHandler,
		Classify:         ClassifyTokenError,
		Logger:           logger,
	}
	if revocations != nil {
		gc.Revocations = revocations
	}
	if cfg != nil {
		gc.AuthScheme = cfg.GetAuthScheme()
		gc.ContextKey = cfg.GetContextKey()
		gc.AllowUnresolvedPrincipal = cfg.GetAllowUnresolvedPrincipal()
	}
	if logger == nil {
		gc.Logger = defaultLogger()
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&gc)
		}
	}
	return gate.New(gc)
}
