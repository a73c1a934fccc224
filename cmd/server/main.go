package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-auth-starter"
	"github.com/goliatone/go-auth-starter/middleware/jwtware"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Config carries the service settings read from the environment. It also
// implements auth.Config so the same value wires the library constructors.
type Config struct {
	SigningKey      string `json:"-"`
	TokenExpiration int    `json:"token_expiration_hours"`
	ServerAddr      string `json:"server_addr"`
	DSN             string `json:"dsn"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		SigningKey:      os.Getenv("AUTH_SIGNING_KEY"),
		TokenExpiration: 1,
		ServerAddr:      envOr("SERVER_ADDR", ":8080"),
		DSN:             envOr("DB_DSN", "file::memory:?cache=shared"),
	}

	if cfg.SigningKey == "" {
		return nil, errors.New("AUTH_SIGNING_KEY is required", errors.CategoryBadInput).
			WithTextCode("MISSING_SIGNING_KEY")
	}

	if raw := os.Getenv("TOKEN_EXPIRATION_HOURS"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid TOKEN_EXPIRATION_HOURS")
		}
		cfg.TokenExpiration = hours
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (c *Config) GetSigningKey() string    { return c.SigningKey }
func (c *Config) GetSigningMethod() string { return "HS256" }
func (c *Config) GetContextKey() string    { return "user" }
func (c *Config) GetTokenExpiration() int  { return c.TokenExpiration }
func (c *Config) GetTokenLookup() string   { return "header:" + router.HeaderAuthorization }
func (c *Config) GetAuthScheme() string    { return "Bearer" }
func (c *Config) GetIssuer() string        { return "" }
func (c *Config) GetAudience() []string    { return nil }

type App struct {
	config *Config
	bunDB  *bun.DB
	auth   auth.Authenticator
	auther auth.HTTPAuthenticator
	repo   auth.RepositoryManager
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) Config() *Config {
	return a.config
}

func (a *App) SetRepository(repo auth.RepositoryManager) {
	a.repo = repo
}

func (a *App) SetDB(db *bun.DB) {
	a.bunDB = db
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func (a *App) SetHTTPServer(srv router.Server[*fiber.App]) {
	a.srv = srv
}

func (a *App) SetAuthenticator(auth auth.Authenticator) {
	a.auth = auth
}

func (a *App) SetHTTPAuth(auther auth.HTTPAuthenticator) {
	a.auther = auther
}

func main() {

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("auth-starter"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg, err := LoadConfig()
	if err != nil {
		panic(err)
	}

	fmt.Println("============")
	fmt.Println(print.MaybeHighlightJSON(cfg))
	fmt.Println("============")

	app := &App{
		config: cfg,
		logger: lgr,
	}

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPAuth(ctx, app); err != nil {
		panic(err)
	}

	ProtectedRoutes(app)

	app.srv.Serve(cfg.ServerAddr)

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := sql.Open(sqliteshim.ShimName, app.config.DSN)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to open database")
	}

	bunDB := bun.NewDB(db, sqlitedialect.New())

	repo := auth.NewRepositoryManager(bunDB)
	if err := repo.CreateTables(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to bootstrap schema")
	}

	if err := repo.Validate(); err != nil {
		return err
	}

	app.SetDB(bunDB)
	app.SetRepository(repo)

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:           "auth-starter",
			UnescapePath:      true,
			EnablePrintRoutes: true,
			StrictRouting:     false,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	srv.Router().Get("/healthz", func(ctx router.Context) error {
		return ctx.JSON(router.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	app.SetHTTPServer(srv)

	return nil
}

type userTrackerAdapter struct {
	users auth.Users
}

func (a userTrackerAdapter) GetByIdentifier(ctx context.Context, identifier string) (*auth.User, error) {
	return a.users.GetByIdentifier(ctx, identifier)
}

func (a userTrackerAdapter) TrackAttemptedLogin(ctx context.Context, user *auth.User) error {
	return a.users.TrackAttemptedLogin(ctx, user)
}

func (a userTrackerAdapter) TrackSucccessfulLogin(ctx context.Context, user *auth.User) error {
	return a.users.TrackSucccessfulLogin(ctx, user)
}

func WithHTTPAuth(ctx context.Context, app *App) error {
	cfg := app.Config()

	userProvider := auth.NewUserProvider(userTrackerAdapter{users: app.repo.Users()})
	userProvider.WithLogger(app.GetLogger("auth:prv"))

	authenticator := auth.NewAuthenticator(userProvider, cfg)
	authenticator.WithLogger(app.GetLogger("auth:authz"))

	app.SetAuthenticator(authenticator)

	httpAuth, err := auth.NewHTTPAuthenticator(authenticator, cfg)
	if err != nil {
		return err
	}

	httpAuth.WithLogger(app.GetLogger("auth:http"))
	httpAuth.WithValidationListeners(func(ctx router.Context, claims jwtware.AuthClaims) error {
		app.GetLogger("auth:listener").Debug("validated token",
			"subject", claims.Subject(),
			"name", claims.UserName(),
		)
		return nil
	})

	app.SetHTTPAuth(httpAuth)

	auth.RegisterAuthRoutes(app.srv.Router().Group("/"),
		func(ac *auth.AuthController) *auth.AuthController {
			ac.Auther = httpAuth
			ac.Repo = app.repo
			ac.WithLogger(app.GetLogger("auth:ctrl"))
			return ac
		})

	return nil
}

func ProtectedRoutes(app *App) {
	p := app.srv.Router()

	cfg := app.Config()

	protected := app.auther.ProtectedRoute(cfg, app.auther.MakeClientRouteAuthErrorHandler(false))

	p.Get("/protected", ProtectedShow(app), protected)
	p.Get("/me", ProfileShow(app), protected)
}

// ProtectedShow greets the authenticated subject by the name carried in the
// token claims.
func ProtectedShow(app *App) func(c router.Context) error {
	contextKey := app.Config().GetContextKey()

	return func(c router.Context) error {
		claims, ok := auth.GetRouterClaims(c, contextKey)
		if !ok {
			return c.NoContent(router.StatusUnauthorized)
		}

		return c.JSON(router.StatusOK, map[string]any{
			"message": fmt.Sprintf("hello, %s", claims.UserName()),
			"subject": claims.UserID(),
		})
	}
}

// ProfileShow renders the session derived from the validated claims.
func ProfileShow(app *App) func(c router.Context) error {
	contextKey := app.Config().GetContextKey()
	logger := app.GetLogger("profile")

	return func(c router.Context) error {
		session, err := auth.GetRouterSession(c, contextKey)
		if err != nil {
			return c.NoContent(router.StatusUnauthorized)
		}

		if !auth.HasUserUUID(session) {
			logger.Warn("session subject is not a uuid", "user_id", session.GetUserID())
		}

		return c.JSON(router.StatusOK, session)
	}
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
