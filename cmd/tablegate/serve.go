package tablegate

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/edgeflare/tablegate/pkg/config"
	"github.com/edgeflare/tablegate/pkg/gateway"
	"github.com/edgeflare/tablegate/pkg/httputil"
	mw "github.com/edgeflare/tablegate/pkg/httputil/middleware"
	"github.com/edgeflare/tablegate/pkg/metrics"
	"github.com/edgeflare/tablegate/pkg/rest"
	"github.com/edgeflare/tablegate/pkg/sqldb"
	"github.com/edgeflare/tablegate/pkg/sqldb/bootstrap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	var withBootstrap bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long:  `Starts the HTTP server exposing every table of the configured database`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			provider, err := sqldb.NewProvider(a.cfg.Database)
			if err != nil {
				return err
			}
			if withBootstrap {
				if err := bootstrap.Run(ctx, provider, bootstrap.Options{Logger: a.logger}); err != nil {
					return err
				}
			}

			ln, err := net.Listen("tcp", a.cfg.REST.ListenAddr)
			if err != nil {
				return err
			}
			return serve(ctx, ln, provider, a.cfg, a.logger)
		},
	}

	f := cmd.Flags()
	f.StringP("listen-addr", "l", ":5000", "HTTP listen address")
	f.String("base-url", "", "path prefix for all routes, e.g. /api")
	f.Bool("status-codes", false, "send 4xx/5xx status codes for errors instead of 200")
	f.Bool("metrics", false, "serve Prometheus metrics on --metrics-addr")
	f.String("metrics-addr", ":9100", "Prometheus metrics listen address")
	f.BoolVar(&withBootstrap, "bootstrap", false, "create the starter tables before serving")

	return cmd
}

func newRouter(provider *sqldb.Provider, cfg *config.Config, logger *zap.Logger) *httputil.Router {
	r := httputil.NewRouter(
		httputil.WithLogger(logger),
		httputil.WithServerOptions(func(s *http.Server) {
			s.ReadHeaderTimeout = 5 * time.Second
		}),
	)
	r.Use(
		mw.RequestID,
		mw.LoggerWithOptions(&mw.LoggerOptions{Logger: logger.Named("http")}),
		mw.CORSWithOptions(corsOptions(cfg.REST.CORS)),
		mw.Metrics,
	)

	gw := gateway.New(provider, logger)
	rest.NewServer(gw, rest.Options{
		BaseURL:     cfg.REST.BaseURL,
		StatusCodes: cfg.REST.StatusCodes,
	}).Register(r)
	return r
}

func corsOptions(c config.CORSConfig) *mw.CORSOptions {
	opts := mw.DefaultCORSOptions()
	opts.AllowedOrigins = c.AllowedOrigins
	return opts
}

// serve runs the HTTP server on ln, plus the metrics listener when enabled,
// until ctx is done, then shuts both down.
func serve(ctx context.Context, ln net.Listener, provider *sqldb.Provider, cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	if cfg.Metrics.Enabled {
		if _, err := metrics.StartPrometheusServer(ctx, &wg, &metrics.PromServerOpts{
			Addr:   cfg.Metrics.Addr,
			Logger: logger,
		}); err != nil {
			ln.Close()
			return err
		}
	}

	r := newRouter(provider, cfg, logger)
	logger.Info("serving",
		zap.String("driver", provider.Dialect().Name()),
		zap.String("base_url", cfg.REST.BaseURL),
		zap.Bool("status_codes", cfg.REST.StatusCodes),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.REST.ShutdownTimeout)
	defer shutdownCancel()
	if err := r.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server stopped")
	return nil
}
