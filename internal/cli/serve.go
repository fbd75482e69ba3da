package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/roach88/ergo/internal/api"
	"github.com/roach88/ergo/internal/engine"
	"github.com/roach88/ergo/internal/pipeline"
)

// shutdownTimeout bounds how long outstanding requests get to finish.
const shutdownTimeout = 5 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline over HTTP",
		Long: `Start the HTTP API for authoring tools.

Clusters are loaded once from --clusters. Run metrics are exposed on
/metrics. The server stops on SIGINT or SIGTERM, giving outstanding
requests five seconds to complete.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, addr, cmd)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")

	return cmd
}

func runServe(opts *RootOptions, addr string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sess, err := openSession(opts, cmd, pipeline.WithMetrics(engine.NewMetrics(reg)))
	if err != nil {
		return commandError(formatter, err)
	}
	defer sess.Close()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	srv := &http.Server{
		Handler:           api.NewHandler(sess.pipeline, reg, sess.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	sess.logger.Info("serving", "addr", ln.Addr().String(), "clusters", opts.Clusters)
	go func() {
		serverErrors <- srv.Serve(ln)
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return formatter.Fail(ExitFailure, err)

	case <-ctx.Done():
		sess.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			sess.logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
			if err := srv.Close(); err != nil {
				sess.logger.Error("close server", "error", err)
			}
		}
		sess.logger.Info("server stopped")
		return nil
	}
}
