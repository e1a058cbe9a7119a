package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/store/pkg/inspect"
	"github.com/vango-dev/store/pkg/instrument"
)

func serveCmd(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured stores over HTTP",
		Long: `Build the stores and derived stores declared in vstore.yaml and
serve them with the inspector:

  GET  /stores               list stores
  GET  /stores/{name}        read a value
  PUT  /stores/{name}        write a value (writable stores only)
  GET  /stores/{name}/watch  stream values over WebSocket
  GET  /metrics              Prometheus metrics (server.metrics: true)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			if addr == "" {
				addr = s.cfg.Server.Addr
			}
			return runServe(cmd.Context(), s, addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from vstore.yaml)")

	return cmd
}

func runServe(ctx context.Context, s *session, addr string) error {
	var observers []instrument.Observer
	var handlerOpts []inspect.Option

	if s.cfg.Server.Metrics {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		observers = append(observers, instrument.Prometheus(instrument.WithRegistry(promReg)))
		handlerOpts = append(handlerOpts, inspect.WithGatherer(promReg))
	}
	if s.cfg.Server.Tracing {
		observers = append(observers, instrument.Tracing())
	}

	var obs instrument.Observer
	if len(observers) > 0 {
		obs = instrument.Multi(observers...)
	}

	reg, err := buildRegistry(s.cfg, s.host, s.logger, obs)
	if err != nil {
		return err
	}

	handlerOpts = append(handlerOpts, inspect.WithLogger(s.logger))
	srv := &http.Server{
		Addr:              addr,
		Handler:           inspect.Handler(reg, handlerOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	success("Serving %d stores on %s", len(reg.Names()), color.CyanString("http://"+addr))
	for _, name := range reg.Names() {
		info("%s", name)
	}

	select {
	case err := <-errCh:
		if !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
