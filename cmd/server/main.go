package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gwi.com/drive-agent/internal/api"
	"gwi.com/drive-agent/internal/config"
	"gwi.com/drive-agent/internal/core"
	"gwi.com/drive-agent/internal/logger"
	"gwi.com/drive-agent/internal/schedule"
)

func main() {
	var (
		skipSync   bool
		withChunks bool
	)

	rootCmd := &cobra.Command{
		Use:          "server",
		Short:        "Question answering over documents synced from a remote file store",
		SilenceUsage: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Sync new files, then serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				return runServer(ctx, a, skipSync)
			})
		},
	}
	serveCmd.Flags().BoolVar(&skipSync, "skip-sync", false, "serve without syncing the file store first")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync new files into the vector store and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				outcomes, err := runSync(ctx, a)
				if err != nil {
					return err
				}
				for _, o := range outcomes {
					line := fmt.Sprintf("%-9s %s (%s)", o.Status, o.Name, o.FileID)
					if o.Reason != "" {
						line += ": " + o.Reason
					}
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				processed, skipped, failed := core.Summarize(outcomes)
				fmt.Fprintf(cmd.OutOrStdout(), "%d processed, %d skipped, %d failed\n", processed, skipped, failed)
				return nil
			})
		},
	}

	filesCmd := &cobra.Command{
		Use:   "files",
		Short: "List the files already indexed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				return printFiles(ctx, cmd.OutOrStdout(), a.store, withChunks)
			})
		},
	}
	filesCmd.Flags().BoolVar(&withChunks, "chunks", false, "also list each file's stored chunks")

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every indexed chunk and processed marker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				if err := a.store.Reset(ctx); err != nil {
					return err
				}
				a.logger.Info("vector store reset")
				return nil
			})
		},
	}

	rootCmd.AddCommand(serveCmd, syncCmd, filesCmd, resetCmd)
	// Running the binary without a subcommand serves, like the default deployment.
	rootCmd.RunE = serveCmd.RunE
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// withApp loads configuration, builds the logger and shared components, and runs fn.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet.
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return err
	}

	log := logger.New(cfg.LogLevel, cfg.LogFile)
	defer log.Sync()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return err
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		log.Error("command failed", zap.Error(err))
		return err
	}
	return nil
}

func runSync(ctx context.Context, a *app) ([]core.FileOutcome, error) {
	coordinator, err := a.ingestion(ctx)
	if err != nil {
		return nil, err
	}
	return coordinator.SyncAll(ctx)
}

func runServer(ctx context.Context, a *app, skipSync bool) error {
	cfg := a.cfg
	log := a.logger

	coordinator, err := a.ingestion(ctx)
	if err != nil {
		return err
	}
	if skipSync {
		log.Info("skipping initial sync")
	} else {
		log.Info("starting initial sync")
		if _, err := coordinator.SyncAll(ctx); err != nil {
			return fmt.Errorf("initial sync failed: %w", err)
		}
	}

	if cfg.Ingestion.SyncSchedule != "" {
		scheduler := schedule.NewCronScheduler(log.Named("schedule"))
		job := schedule.JobFunc{
			JobName: "sync",
			Fn: func(ctx context.Context) error {
				_, err := coordinator.SyncAll(ctx)
				return err
			},
		}
		if err := scheduler.AddJob(job, cfg.Ingestion.SyncSchedule); err != nil {
			return fmt.Errorf("invalid SYNC_SCHEDULE: %w", err)
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	chatService, err := a.chat(ctx)
	if err != nil {
		return err
	}
	router := api.NewRouter(api.NewAPIHandler(chatService, log.Named("api")))

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // model calls can take time
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", serverAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("could not listen on %s: %w", serverAddr, err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exiting gracefully")
	return nil
}
