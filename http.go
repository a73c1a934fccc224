package auth

import (
	"github.com/goliatone/go-auth-starter/middleware/jwtware"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

type RouteAuthenticator struct {
	auth                Authenticator
	cfg                 Config
	validationListeners []jwtware.ValidationListener
	Logger              Logger
	AuthErrorHandler    func(c router.Context, err error) error // TODO: make functions
	ErrorHandler        func(c router.Context, err error) error // TODO: make functions
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		cfg:    cfg,
		auth:   auther,
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	a.Logger = logger
	return a
}

// WithValidationListeners registers listeners invoked after each successful
// token validation on protected routes.
func (a *RouteAuthenticator) WithValidationListeners(listeners ...jwtware.ValidationListener) *RouteAuthenticator {
	a.validationListeners = append(a.validationListeners, listeners...)
	return a
}

// ProtectedRoute guards a route group with bearer token validation. Tokens
// are verified by the Authenticator's token service so issuing and checking
// share one configuration.
func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		jwtCfg := jwtware.Config{
			ErrorHandler:    errorHandler,
			TokenValidator:  jwtValidatorAdapter{validator: a.tokenValidator(cfg)},
			AuthScheme:      cfg.GetAuthScheme(),
			ContextKey:      cfg.GetContextKey(),
			TokenLookup:     cfg.GetTokenLookup(),
			ContextEnricher: ContextEnricherAdapter,
		}

		RegisterValidationListeners(&jwtCfg, a.validationListeners...)

		return jwtware.New(jwtCfg)(hf)
	}
}

func (a *RouteAuthenticator) tokenValidator(cfg Config) TokenValidator {
	type tokenServiceProvider interface {
		TokenService() TokenService
	}

	if provider, ok := a.auth.(tokenServiceProvider); ok {
		return provider.TokenService()
	}

	return NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		a.Logger,
	)
}

// jwtValidatorAdapter bridges the auth package validator into the jwtware
// middleware without creating an import cycle.
type jwtValidatorAdapter struct {
	validator TokenValidator
}

func (v jwtValidatorAdapter) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := v.validator.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Login verifies the payload credentials and returns the signed bearer token.
// The token travels in the response body, we do not set cookies.
func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) (string, error) {
	token, err := a.auth.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return "", err
	}

	return token, nil
}

// Impersonate issues a token for the identity without checking a password.
func (a *RouteAuthenticator) Impersonate(c router.Context, identifier string) (string, error) {
	token, err := a.auth.Impersonate(c.Context(), identifier)
	if err != nil {
		a.Logger.Error("Impersonate authentication error", "error", err)
		return "", err
	}

	return token, nil
}

func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

// defaultAuthErrHandler rejects the request with a bare 401. The body stays
// empty no matter why the token was refused.
func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error, rejecting request",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	return c.NoContent(router.StatusUnauthorized)
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		code := richErr.Code
		if code == 0 {
			code = errors.CodeInternal
		}
		return c.JSON(code, map[string]any{
			"error": "An unexpected server error occurred",
		})
	}
}
