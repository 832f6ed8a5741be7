// Package main runs a small HTTP gateway in front of a single counter
// actor, backed by an in-memory store by default or NATS JetStream when
// NATS_URL is set.
//
// Run with: go run ./cmd/gateway
// Then use curl to interact:
//
//	curl -X POST localhost:8181/counter/my-counter/increment -d '{"data":{"amount":5}}'
//	curl localhost:8181/counter/my-counter/queue
//
// Prometheus metrics available at: http://localhost:2121/metrics
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ractor-go/ractor/adapters/api"
	natsadapter "github.com/ractor-go/ractor/adapters/nats"
	promadapter "github.com/ractor-go/ractor/adapters/prometheus"
	"github.com/ractor-go/ractor/core/ractor"
	"github.com/ractor-go/ractor/core/store"
)

const (
	httpPort = 8181
	promPort = 2121
)

// Increment increases a counter by Amount (defaults to 1 when omitted).
type Increment struct {
	Amount int `json:"amount,omitempty"`
}

// CounterValue is the counter actor's output.
type CounterValue struct {
	Value int `json:"value"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	if err := run(ctx, log); err != nil {
		log.Error("gateway failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	metrics := promadapter.NewAllMetrics(prometheus.DefaultRegisterer)

	promMux := http.NewServeMux()
	promMux.Handle("/metrics", promhttp.Handler())
	promServer := &http.Server{Addr: fmt.Sprintf(":%d", promPort), Handler: promMux}
	go func() {
		log.Info("prometheus metrics server starting", slog.Int("port", promPort))
		if err := promServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("prometheus server error", slog.Any("error", err))
		}
	}()
	defer promServer.Shutdown(context.Background())

	s, closeStore, err := openStore(log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	var mu sync.Mutex
	value := 0

	counter, err := ractor.New("counter:my-counter", ractor.Options[Increment, CounterValue]{
		Store:   s,
		Metrics: metrics.Actor,
		Logger:  log.With(slog.String("actor", "counter")),
		Computation: func(_ context.Context, in Increment) (CounterValue, error) {
			amount := in.Amount
			if amount == 0 {
				amount = 1
			}
			mu.Lock()
			value += amount
			out := CounterValue{Value: value}
			mu.Unlock()
			return out, nil
		},
	})
	if err != nil {
		return fmt.Errorf("create counter actor: %w", err)
	}
	defer counter.Dispose()

	if err := counter.Start(ctx); err != nil {
		return fmt.Errorf("start counter actor: %w", err)
	}

	httpMux := http.NewServeMux()
	httpMux.HandleFunc("POST /counter/{id}/increment", handleIncrement(counter))
	httpMux.HandleFunc("GET /counter/{id}/queue", handleQueueLength(counter))
	httpMux.HandleFunc("GET /", handleIndex)

	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", httpPort), Handler: httpMux}
	go func() {
		log.Info("HTTP server starting", slog.Int("port", httpPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", slog.Any("error", err))
		}
	}()
	defer httpServer.Shutdown(context.Background())

	log.Info("=== Counter Gateway Ready ===")
	log.Info("try these commands:",
		slog.String("increment", fmt.Sprintf(`curl -X POST localhost:%d/counter/my-counter/increment -d '{"data":{"amount":5}}'`, httpPort)),
		slog.String("queue", fmt.Sprintf("curl localhost:%d/counter/my-counter/queue", httpPort)),
		slog.String("metrics", fmt.Sprintf("http://localhost:%d/metrics", promPort)),
	)
	log.Info("press Ctrl+C to stop")

	<-ctx.Done()
	log.Info("shutting down...")
	return nil
}

func openStore(log *slog.Logger) (store.Store, func(), error) {
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		s, err := natsadapter.NewStore(natsadapter.StoreConfig{
			Connect: natsadapter.ConnectURL(natsURL),
			Bucket:  "ractor_gateway",
			Log:     log,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
	log.Info("NATS_URL not set, using in-memory store")
	return store.NewMemStore(), func() {}, nil
}

func handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, `Counter Gateway

Available endpoints:
  POST /counter/{id}/increment  - Increment the counter (body: {"data":{"amount":N}})
  GET  /counter/{id}/queue      - Get the actor's current mailbox depth

Prometheus metrics:
  http://localhost:%d/metrics
`, promPort)
}

func handleIncrement(a *ractor.Actor[Increment, CounterValue]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body api.PostRequestBody[Increment]
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		out, err := a.PostAndReplyRemote(ctx, body.Data, body.HighPriority, 5*time.Second)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(api.PostReplyBody[CounterValue]{Data: out})
	}
}

func handleQueueLength(a *ractor.Actor[Increment, CounterValue]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := a.QueueLength(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(api.QueueLengthBody{Length: n})
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.ErrorBody{Error: err.Error()})
}
