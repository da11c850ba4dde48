package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/jobwatch"
)

func main() {
	// start mock job API (see mock_server.go)
	go StartMockJobServer(":9999", 30*time.Second)
	time.Sleep(100 * time.Millisecond)

	w, err := jobwatch.New(
		jobwatch.WithStatusURL("http://localhost:9999/api/jobs"),
		jobwatch.WithPollInterval(2*time.Second),
		jobwatch.WithPort(8080),
	)
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// expose the status API while we watch
	go func() {
		if err := w.Serve(ctx); err != nil {
			slog.Error("status api error", "error", err)
		}
	}()

	done := make(chan struct{}, 2)
	callbacks := func(id string) jobwatch.Callbacks {
		return jobwatch.Callbacks{
			OnUpdate: func(u jobwatch.Update) {
				fmt.Printf("  %s: %s (%d%%)\n", id, u.Job.Status, u.Job.Progress)
			},
			OnComplete: func(j jobwatch.Job) {
				fmt.Printf("  %s: completed, result=%s\n", id, string(j.Result))
				done <- struct{}{}
			},
			OnError: func(err error) {
				fmt.Printf("  %s: %v\n", id, err)
				done <- struct{}{}
			},
		}
	}

	fmt.Println("JobWatch demo: one job completes, one fails.")
	fmt.Println("Status API at http://localhost:8080/api/jobs")
	fmt.Println()

	w.Watch("demo-export", callbacks("demo-export"))
	w.Watch("fail-import", callbacks("fail-import"))

	for finished := 0; finished < 2; {
		select {
		case <-done:
			finished++
		case <-ctx.Done():
			w.StopAll()
			return
		}
	}
	fmt.Println("all jobs finished")
}
