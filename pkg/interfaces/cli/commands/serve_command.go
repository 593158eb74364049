package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/mrp-planner/pkg/interfaces/api"
	"github.com/vsinha/mrp-planner/pkg/interfaces/cli/output"
)

func newServeCommand(o *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planning API over HTTP",
		Long: `Starts the HTTP API on http.addr (or --addr). SIGINT and SIGTERM stop
accepting connections and wait up to http.shutdown_timeout for in-flight
requests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = o.cfg.HTTP.Addr
			}

			return o.withRuntime(cmd, func(rt *Runtime, _ *output.Printer) error {
				h := api.NewHandler(rt.Service, RunDefaults(o.cfg.Planning), o.cfg.Planning.MaxBOMLevel, o.log)
				srv := &http.Server{
					Addr:         addr,
					Handler:      api.NewRouter(h, o.cfg.HTTP.CORSOrigins),
					ReadTimeout:  o.cfg.GetReadTimeout(),
					WriteTimeout: o.cfg.GetWriteTimeout(),
				}

				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return serve(ctx, srv, o)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

// serve runs srv until ctx is done, then shuts it down gracefully
func serve(ctx context.Context, srv *http.Server, o *rootOptions) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		o.log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		o.log.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), o.cfg.GetShutdownTimeout())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
