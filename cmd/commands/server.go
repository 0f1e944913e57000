package commands

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gi4nks/promptchain/internal/api"
	"github.com/gi4nks/promptchain/internal/errors"
)

const shutdownTimeout = 30 * time.Second

type ServerCommand struct {
	*BaseCommand
	host string
	port int
	cors bool
}

func NewServerCommand(logger *zap.Logger, deps *Dependencies) *ServerCommand {
	sc := &ServerCommand{}

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		Short:   "Start the HTTP API",
		Long: `Start an HTTP server exposing the prompt chain session.

Endpoints:
  POST /api/runs                  start a run (202, 409 while one is running)
  GET  /api/runs/current          current run state and transcript
  GET  /api/runs/current/export   transcript download
  GET  /api/runs                  runs of this process, newest first
  GET  /api/runs/{id}             one run
  GET  /health

Requests authenticate with "Authorization: Bearer <key>"; the configured key
is used otherwise.

Examples:
  promptchain serve                        # localhost:8080
  promptchain serve --host 0.0.0.0 -p 3000 --cors`,
		Args: cobra.NoArgs,
		RunE: sc.runE,
	}

	sc.BaseCommand = NewBaseCommand(cmd, logger, deps)
	sc.cmd = cmd
	sc.setupFlags(cmd)
	return sc
}

func (sc *ServerCommand) setupFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&sc.port, "port", "p", 0, "Port to listen on (default from configuration)")
	cmd.Flags().StringVarP(&sc.host, "host", "H", "", "Host to bind to (default from configuration)")
	cmd.Flags().BoolVar(&sc.cors, "cors", false, "Enable CORS headers")
}

func (sc *ServerCommand) address() string {
	config := sc.deps.Configuration()
	host, port := config.ServerHost, config.ServerPort
	if sc.host != "" {
		host = sc.host
	}
	if sc.port != 0 {
		port = sc.port
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (sc *ServerCommand) handler() (http.Handler, error) {
	sess, err := sc.deps.Session()
	if err != nil {
		return nil, err
	}

	apiServer := api.NewServer(sess, sc.logger,
		api.WithDefaultCredential(sc.deps.Configuration().APIKey),
		api.WithCORS(sc.cors))
	return apiServer.Handler(), nil
}

func (sc *ServerCommand) runE(cmd *cobra.Command, args []string) error {
	handler, err := sc.handler()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", sc.address())
	if err != nil {
		sc.logger.Error("Server failed to start", zap.Error(err))
		return errors.NewError(errors.ErrInternalServer, "failed to start server", err)
	}

	color.Green("Promptchain API listening on http://%s", listener.Addr())
	color.Yellow("Press Ctrl+C to stop the server")

	return sc.serve(ctx, listener, handler)
}

// serve runs until ctx is done, then drains in-flight requests.
func (sc *ServerCommand) serve(ctx context.Context, listener net.Listener, handler http.Handler) error {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sc.logger.Info("Starting API server", zap.String("addr", listener.Addr().String()), zap.Bool("cors", sc.cors))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			sc.logger.Error("Server error", zap.Error(err))
			return errors.NewError(errors.ErrInternalServer, "server stopped unexpectedly", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		sc.logger.Info("Shutting down API server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(egCtx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			sc.logger.Error("Server shutdown error", zap.Error(err))
			return err
		}
		return nil
	})

	return eg.Wait()
}

func (sc *ServerCommand) Command() *cobra.Command {
	return sc.cmd
}
