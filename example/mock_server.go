package main

import (
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// StartFlappingServer runs a target whose /health endpoint alternates
// between 200 and 503. The state flips every 20-40 seconds.
// Call this in a goroutine before registering checks against it.
func StartFlappingServer(addr string) {
	var (
		mu           sync.Mutex
		healthy      = true
		nextChangeAt = time.Now().Add(nextFlip())
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		// simulate small latency variance
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

		mu.Lock()
		if time.Now().After(nextChangeAt) {
			healthy = !healthy
			nextChangeAt = time.Now().Add(nextFlip())
			slog.Info("target flipped", "healthy", healthy)
		}
		up := healthy
		mu.Unlock()

		if up {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}

func nextFlip() time.Duration {
	return time.Duration(20+rand.Intn(21)) * time.Second
}
