package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-pipeline/internal/engine"
	"github.com/sells-group/lead-pipeline/internal/funnel"
	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pipeline HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return eris.Wrap(err, "server listen")
		}

		zap.L().Info("starting server", zap.Int("port", port))
		return runServer(ctx, &http.Server{Handler: newRouter(env.Engine)}, ln)
	},
}

const shutdownTimeout = 10 * time.Second

// runServer serves until ctx is cancelled, then drains in-flight requests.
// The drain runs on a fresh context; ctx itself is already cancelled at that
// point and would abort the drain immediately.
func runServer(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return eris.Wrap(err, "server serve")
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}

	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server serve")
	}
	return nil
}

func newRouter(e *engine.Engine) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/leads/{id}", func(r chi.Router) {
		r.Post("/transition", handleTransition(e))
		r.Get("/history", handleHistory(e))
		r.Post("/rescore", handleRescoreLead(e))
	})

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Post("/rescore", handleRescoreSession(e))
		r.Post("/dedupe", handleDedupe(e))
		r.Get("/attribution", handleAttribution(e))
		r.Get("/funnel", handleFunnel(e))
		r.Get("/daily", handleDaily(e))
	})

	return r
}

func handleTransition(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		leadID := chi.URLParam(r, "id")

		var req struct {
			Stage string `json:"stage"`
			Actor string `json:"actor"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		stage, err := model.ParseStage(req.Stage)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		entry, err := e.TransitionStage(r.Context(), leadID, stage, req.Actor)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, entry)
		case eris.Is(err, funnel.ErrNoOpTransition):
			writeError(w, http.StatusConflict, "lead is already at that stage")
		case eris.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "lead not found")
		default:
			zap.L().Error("transition failed", zap.String("lead_id", leadID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "transition failed")
		}
	}
}

func handleHistory(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		leadID := chi.URLParam(r, "id")
		entries, err := e.StageTimeline(r.Context(), leadID)
		if err != nil {
			if eris.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "lead not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "history lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func handleRescoreLead(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		leadID := chi.URLParam(r, "id")
		result, err := e.RecomputeScore(r.Context(), leadID)
		if err != nil {
			if eris.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "lead not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "rescore failed")
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleRescoreSession(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "id")
		summary, err := e.RecomputeSession(r.Context(), sessionID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "session rescore failed")
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func handleDedupe(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "id")
		removed, err := e.DeduplicateSession(r.Context(), sessionID)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
		case eris.Is(err, engine.ErrDedupInProgress):
			writeError(w, http.StatusConflict, "deduplication already in progress")
		default:
			writeError(w, http.StatusInternalServerError, "deduplication failed")
		}
	}
}

func handleAttribution(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "id")
		dimension := r.URL.Query().Get("dimension")
		if dimension == "" {
			writeError(w, http.StatusBadRequest, "dimension query parameter is required")
			return
		}
		rows, err := e.AggregateByDimension(r.Context(), sessionID, dimension)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "aggregation failed")
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func handleFunnel(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := e.AggregateFunnel(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "aggregation failed")
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}

func handleDaily(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buckets, err := e.AggregateDaily(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "aggregation failed")
			return
		}
		writeJSON(w, http.StatusOK, buckets)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
