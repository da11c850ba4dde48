package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// mockJob tracks the simulated lifecycle of one job.
type mockJob struct {
	createdAt time.Time
	duration  time.Duration
	outcome   string // "completed" or "failed"
}

// StartMockJobServer runs a mock job-status API on addr.
//
// Any GET /api/jobs/{id} creates the job on first sight and then reports
// it progressing from pending through running to its terminal state over
// the given duration. Ids starting with "fail-" end in the failed state;
// everything else completes. Call this in a goroutine before watching.
func StartMockJobServer(addr string, duration time.Duration) {
	var (
		jobs = make(map[string]*mockJob)
		mu   sync.Mutex
	)

	http.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if id == "" {
			http.NotFound(w, r)
			return
		}

		mu.Lock()
		job, ok := jobs[id]
		if !ok {
			job = &mockJob{createdAt: time.Now(), duration: duration, outcome: "completed"}
			if strings.HasPrefix(id, "fail-") {
				job.outcome = "failed"
			}
			jobs[id] = job
		}
		mu.Unlock()

		elapsed := time.Since(job.createdAt)
		progress := int(elapsed * 100 / job.duration)
		if progress > 100 {
			progress = 100
		}

		body := map[string]any{
			"id":         id,
			"created_at": job.createdAt,
		}
		switch {
		case progress < 5:
			body["status"] = "pending"
			body["progress"] = 0
		case progress < 100:
			body["status"] = "running"
			body["progress"] = progress
			body["message"] = "crunching numbers"
		case job.outcome == "failed":
			body["status"] = "failed"
			body["progress"] = progress
			body["error_message"] = "synthetic failure for demo purposes"
		default:
			body["status"] = "completed"
			body["progress"] = 100
			body["result"] = map[string]any{"rows": 42}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})

	slog.Info("mock job server listening", "addr", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		slog.Error("mock job server stopped", "error", err)
	}
}
