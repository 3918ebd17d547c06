package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Vini334/ReclamaAI/internal/config"
	"github.com/Vini334/ReclamaAI/internal/monitoring"
)

// shutdownTimeout bounds how long in-flight requests get after a signal.
const shutdownTimeout = 15 * time.Second

var (
	servePort   int
	serveDryRun bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the complaint REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if !serveDryRun {
			if err := cfg.Validate(config.ModeServe); err != nil {
				return err
			}
		}

		env, err := initPipeline(ctx, serveDryRun)
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newAPI(env, cfg.Pipeline.DefaultLimit).router(cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		var background []func(context.Context)
		if checker := initMonitor(env, cfg.Monitor); checker != nil {
			background = append(background, checker.Run)
		}
		return runServer(ctx, srv, background...)
	},
}

// initMonitor builds the alert checker, or returns nil when monitoring is
// off or there is no store to watch.
func initMonitor(env *pipelineEnv, mc config.MonitorConfig) *monitoring.Checker {
	if !mc.Enabled {
		return nil
	}
	if env.Store == nil {
		zap.L().Warn("monitoring enabled but persistence is off, alert checker not started")
		return nil
	}
	collector := monitoring.NewCollector(env.Store, env.Costs)
	return monitoring.NewChecker(collector, monitoring.NewAlerter(mc), mc)
}

// runServer serves until ctx is canceled, then shuts srv down gracefully.
// Each background func runs alongside the server and must return once its
// context is done.
func runServer(ctx context.Context, srv *http.Server, background ...func(context.Context)) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, fn := range background {
		g.Go(func() error {
			fn(gctx)
			return nil
		})
	}

	g.Go(func() error {
		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
	})

	return g.Wait()
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveDryRun, "dry-run", false, "use a scripted model client instead of the Anthropic API")
	rootCmd.AddCommand(serveCmd)
}
