package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/viant/afs"

	"github.com/hexsim/hexsim"
	"github.com/hexsim/hexsim/model"
	"github.com/hexsim/hexsim/service/balance"
	processfs "github.com/hexsim/hexsim/service/dao/process/fs"
	"github.com/hexsim/hexsim/service/dao/process/sqlite"
	"github.com/hexsim/hexsim/service/event"
	"github.com/hexsim/hexsim/service/metrics"
	"github.com/hexsim/hexsim/service/notify"
)

type serveOptions struct {
	addr        string
	db          string
	storeURL    string
	balanceURL  string
	traceFile   string
	maxLifetime time.Duration
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine with an HTTP API, websocket notifications and /metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.db, "db", "", "sqlite DSN for process persistence (empty: in-memory)")
	cmd.Flags().StringVar(&opts.storeURL, "store", "", "afs URL for JSON process persistence, e.g. file:///var/lib/hexsim")
	cmd.Flags().StringVar(&opts.balanceURL, "balance", "", "URL of a YAML balance table (empty: built-in defaults)")
	cmd.Flags().StringVar(&opts.traceFile, "trace-file", "", "write OpenTelemetry spans to this file")
	cmd.Flags().DurationVar(&opts.maxLifetime, "max-lifetime", 0, "force-fail processes older than this (0: disabled)")
	return cmd
}

func serve(ctx context.Context, opts *serveOptions) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config := hexsim.DefaultConfig()
	config.Scheduler.MaxLifetime = opts.maxLifetime

	options := []hexsim.Option{hexsim.WithConfig(config)}
	switch {
	case opts.db != "" && opts.storeURL != "":
		return fmt.Errorf("--db and --store are mutually exclusive")
	case opts.db != "":
		store, err := sqlite.New(opts.db)
		if err != nil {
			return err
		}
		defer store.Close()
		options = append(options, hexsim.WithProcessDAO(store))
	case opts.storeURL != "":
		options = append(options, hexsim.WithProcessDAO(processfs.New(afs.New(), opts.storeURL)))
	}
	if opts.balanceURL != "" {
		svc, err := balance.Load(ctx, afs.New(), opts.balanceURL)
		if err != nil {
			return err
		}
		options = append(options, hexsim.WithBalance(svc))
	}
	if opts.traceFile != "" {
		options = append(options, hexsim.WithTracing("hexsim", "0.1.0", opts.traceFile))
	}
	registerer := prometheus.NewRegistry()
	options = append(options, hexsim.WithMetrics(metrics.New(registerer)))

	engine, err := hexsim.New(options...)
	if err != nil {
		return err
	}
	if err = engine.Restore(ctx); err != nil {
		return err
	}

	hub := notify.NewHub()
	go hub.Run(ctx)
	engine.Events().SetListener(func(e *event.Event[any]) {
		hub.Publish(e)
	})

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.Handle("/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}))
	registerAPI(mux, engine)

	server := &http.Server{Addr: opts.addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		engine.Shutdown()
	}()

	go func() {
		if err := engine.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("engine stopped: %v", err)
		}
	}()

	log.Printf("hexsim listening on %s", opts.addr)
	if err = server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

type startRequest struct {
	Player   string `json:"player"`
	Type     string `json:"type"`
	Target   string `json:"target"`
	Priority int    `json:"priority"`
}

type capacityRequest struct {
	Player   string          `json:"player"`
	Capacity model.Resources `json:"capacity"`
}

// registerAPI wires the player-facing JSON endpoints.
func registerAPI(mux *http.ServeMux, engine *hexsim.Service) {
	mux.HandleFunc("/v1/processes", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req startRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpError(w, http.StatusBadRequest, err)
				return
			}
			p, err := engine.StartProcess(r.Context(), req.Player, model.Type(req.Type), req.Target, model.Priority(req.Priority))
			if err != nil {
				httpError(w, statusOf(err), err)
				return
			}
			writeJSON(w, http.StatusCreated, p)
		case http.MethodGet:
			player := r.URL.Query().Get("player")
			var states []model.State
			for _, state := range r.URL.Query()["state"] {
				states = append(states, model.State(state))
			}
			writeJSON(w, http.StatusOK, engine.ListProcesses(r.Context(), player, states...))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// /v1/processes/{id}/{action} with player passed as a query parameter.
	mux.HandleFunc("/v1/processes/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/v1/processes/")
		parts := strings.Split(rest, "/")
		player := r.URL.Query().Get("player")
		id := parts[0]
		if id == "" || player == "" {
			httpError(w, http.StatusBadRequest, fmt.Errorf("process id and player are required"))
			return
		}
		if len(parts) == 1 && r.Method == http.MethodGet {
			p, err := engine.GetProcess(r.Context(), player, id)
			if err != nil {
				httpError(w, statusOf(err), err)
				return
			}
			writeJSON(w, http.StatusOK, p)
			return
		}
		if len(parts) != 2 || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var err error
		switch parts[1] {
		case "cancel":
			err = engine.CancelProcess(r.Context(), player, id)
		case "pause":
			err = engine.PauseProcess(r.Context(), player, id)
		case "resume":
			err = engine.ResumeProcess(r.Context(), player, id)
		default:
			httpError(w, http.StatusNotFound, fmt.Errorf("unknown action %q", parts[1]))
			return
		}
		if err != nil {
			httpError(w, statusOf(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/v1/resources", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			player := r.URL.Query().Get("player")
			writeJSON(w, http.StatusOK, engine.GetResourceUsage(r.Context(), player))
		case http.MethodPut:
			var req capacityRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpError(w, http.StatusBadRequest, err)
				return
			}
			engine.SetCapacity(r.Context(), req.Player, req.Capacity)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/v1/status", func(w http.ResponseWriter, r *http.Request) {
		player := r.URL.Query().Get("player")
		writeJSON(w, http.StatusOK, engine.Counters(player))
	})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrProcessNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInsufficientResources),
		errors.Is(err, model.ErrTargetInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrConcurrencyConflict),
		errors.Is(err, model.ErrNotCancellable),
		errors.Is(err, model.ErrInvalidStateTransition):
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func httpError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
