package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-router"
	"github.com/spf13/cobra"

	auth "github.com/certiweb/go-auth"
	"github.com/certiweb/go-auth/config"
	"github.com/certiweb/go-auth/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the authentication API",
	Args:  cobra.NoArgs,
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		ctx := cobraCmd.Context()
		logger := lgr.GetLogger("serve")

		svc, err := openServices(ctx, cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		if err := svc.seedAdmin(ctx, cfg.Seed.Admin); err != nil {
			return err
		}

		if cfg.Revocation.Backend == config.RevocationDatabase {
			purged, err := svc.repo.RevokedTokens().DeleteExpired(ctx, time.Now())
			if err != nil {
				logger.Warn("failed to purge expired revocations", "error", err)
			} else if purged > 0 {
				logger.Info("purged expired revocations", "count", purged)
			}
		}

		_, app := newServer(svc)

		errc := make(chan error, 1)
		go func() {
			logger.Info("listening", "addr", cfg.Server.Addr)
			errc <- app.Listen(cfg.Server.Addr)
		}()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
		defer signal.Stop(sig)

		select {
		case err := <-errc:
			return err
		case s := <-sig:
			logger.Info("shutting down", "signal", s.String())
		}

		return app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout)
	},
}

// newServer builds the routed API. The underlying fiber app is returned as
// well since listening and shutdown go through it.
func newServer(svc *services) (router.Server[*fiber.App], *fiber.App) {
	var gm *metrics.GateMetrics
	var opts []auth.GateOption
	if cfg.Metrics.Enabled {
		gm = metrics.NewGateMetrics()
		opts = append(opts, auth.WithDecisionObserver(gm.Observe))
	}

	var app *fiber.App
	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		app = fiber.New(fiber.Config{
			AppName:               "certiweb",
			DisableStartupMessage: true,
			ErrorHandler:          auth.HTTPErrorHandler(lgr.GetLogger("http")),
		})
		app.Use(recover.New())
		if gm != nil {
			app.Get(cfg.Metrics.Path, gm.Handler())
		}
		return app
	})

	srv.Router().WithLogger(lgr.GetLogger("router"))

	g := auth.NewGate(cfg, svc.verifier, svc.repo.Users(), svc.revocations, lgr.GetLogger("gate"), opts...)

	controller := auth.NewAuthController(svc.repo, svc.auther, g,
		auth.WithControllerLogger(lgr.GetLogger("auth:ctrl")),
		auth.WithControllerDebug(verbose),
	)
	auth.RegisterAuthRoutes(srv.Router(), controller)

	return srv, app
}
