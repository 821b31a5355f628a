package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hugin-ai/hugin/internal/logging"
	"github.com/hugin-ai/hugin/internal/server"
)

var (
	servePort    int
	serveMCPFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve sessions over HTTP",
	Long: `Start the HTTP server: session inspection, agent messaging, human
responses and a server-sent event stream at /events.`,
	RunE: serve,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveMCPFile, "mcp", "", "MCP servers YAML file")
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := buildEnvironment(ctx, serveMCPFile)
	if err != nil {
		return err
	}
	defer env.close()

	cfg := server.DefaultConfig()
	cfg.Port = servePort
	srv := server.New(cfg, env.store, env.bus, env.sessionOptions())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	logging.Info().Int("port", servePort).Msg("server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
