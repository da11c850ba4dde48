package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jpalmerr/jobwatch"
	"github.com/jpalmerr/jobwatch/config"
	"github.com/spf13/cobra"
)

// newLogger creates a JSON logger for CLI use.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// watchCmd polls the configured jobs until they finish.
var watchCmd = &cobra.Command{
	Use:   "watch [job-id...]",
	Short: "Watch background jobs until they finish",
	Long: `Watch one or more background jobs until every one reaches a
terminal state.

Job ids come from the config file's "jobs" list and from command-line
arguments; the two are combined. Progress and outcomes are logged as they
are observed. With --serve, the status API (JSON snapshots plus an SSE
stream) is exposed on the configured port for the lifetime of the command.

The command exits when all watched jobs are terminal, or when interrupted
(Ctrl+C) or sent SIGTERM.

Example:
  jobwatch watch -c config.yaml 7c9e6679-7425-40de-944b-e07fc1f90ae7
  jobwatch watch -c config.yaml --serve`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	watchCmd.Flags().Bool("serve", false, "expose the status API while watching")
	_ = watchCmd.MarkFlagRequired("config")
}

// watcherOptions translates a loaded config into watcher options.
// Every tunable the config file documents must appear here.
func watcherOptions(cfg *config.Config, logger *slog.Logger) []jobwatch.Option {
	opts := []jobwatch.Option{
		jobwatch.WithStatusURL(cfg.StatusURL),
		jobwatch.WithPollInterval(cfg.PollInterval.Duration()),
		jobwatch.WithRequestTimeout(cfg.RequestTimeout.Duration()),
		jobwatch.WithMaxRetries(*cfg.MaxRetries),
		jobwatch.WithRetryDelay(cfg.BaseRetryDelay.Duration(), cfg.MaxRetryDelay.Duration()),
		jobwatch.WithPort(cfg.Port),
		jobwatch.WithLogger(logger),
	}
	if cfg.AuthToken != "" {
		opts = append(opts, jobwatch.WithAuthToken(cfg.AuthToken))
	}
	return opts
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	serve, _ := cmd.Flags().GetBool("serve")

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	jobIDs := append(append([]string{}, cfg.Jobs...), args...)
	if len(jobIDs) == 0 {
		return fmt.Errorf("no job ids given (config jobs list and arguments are both empty)")
	}

	logger.Info("config loaded",
		"status_url", cfg.StatusURL,
		"poll_interval", cfg.PollInterval.Duration().String(),
		"jobs", len(jobIDs),
	)

	w, err := jobwatch.New(watcherOptions(cfg, logger)...)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if serve {
		go func() {
			if err := w.Serve(ctx); err != nil {
				logger.Error("status api error", "error", err)
			}
		}()
	}

	// one WaitGroup slot per job, released on its terminal callback
	var wg sync.WaitGroup
	for _, jobID := range jobIDs {
		jobID := jobID
		wg.Add(1)
		var once sync.Once
		settle := func() { once.Do(wg.Done) }

		w.Watch(jobID, jobwatch.Callbacks{
			OnUpdate: func(u jobwatch.Update) {
				logger.Info("job update",
					"job_id", u.Job.ID,
					"status", u.Job.Status.String(),
					"progress", u.Job.Progress,
					"message", u.Job.Message,
				)
			},
			OnComplete: func(j jobwatch.Job) {
				logger.Info("job completed", "job_id", j.ID)
				settle()
			},
			OnError: func(err error) {
				logger.Error("job failed", "job_id", jobID, "error", err)
				settle()
			},
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all jobs finished")
		return nil
	case <-ctx.Done():
		w.StopAll()
		logger.Info("interrupted, polling stopped")
		return nil
	}
}
