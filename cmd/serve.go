package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hmorsi/coursewright/internal/pipeline"
	"github.com/hmorsi/coursewright/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the curriculum generation server",
	Long: `Starts the HTTP API. Submitted jobs are queued and processed by a
worker pool; progress streams to clients over websockets.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")
	serveCmd.Flags().Int("workers", 2, "concurrent generation jobs")
	serveCmd.Flags().Bool("allow-all-origins", false, "allow all CORS origins (dev mode)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}
	if allowAll, _ := cmd.Flags().GetBool("allow-all-origins"); allowAll {
		cfg.Server.AllowAll = true
	}
	workers, _ := cmd.Flags().GetInt("workers")

	// The hub does not exist until the server is built, so the orchestrator
	// gets a sink that is bound after wiring and before any worker runs.
	var sink pipeline.Sink
	queue := pipeline.NewQueue(64)
	orch, store, err := buildPipeline(ctx, cfg, log,
		pipeline.WithQueue(queue),
		pipeline.WithSink(pipeline.SinkFunc(func(e pipeline.Event) {
			if sink != nil {
				sink.Publish(e)
			}
		})))
	if err != nil {
		return err
	}
	defer store.Close()

	srv := server.New(server.Config{
		Port:     cfg.Server.Port,
		AllowAll: cfg.Server.AllowAll,
	}, store, orch, log)

	// Progress flows to both the log and websocket subscribers.
	sink = pipeline.MultiSink{pipeline.NewLogSink(log), srv.Hub()}

	queue.Start(ctx, workers, func(ctx context.Context, jobID string) {
		if err := orch.Run(ctx, jobID); err != nil {
			log.Error("job failed", zap.String("job_id", jobID), zap.Error(err))
		}
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	queue.Wait()
	return nil
}
