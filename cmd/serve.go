package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tribunalwatch/ingest-cli/internal/model"
	"github.com/tribunalwatch/ingest-cli/internal/pipeline"
	"github.com/tribunalwatch/ingest-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only HTTP API",
	Long:  "Serves job history, the review queue, and corpus statistics over HTTP.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Handler: newAPIRouter(st, cfg.Ingest.ReviewPageSize),
		}
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return eris.Wrap(err, "server listen")
		}

		zap.L().Info("starting server", zap.Int("port", port))
		return serveWithShutdown(ctx, srv, ln)
	},
}

// shutdownGrace bounds how long in-flight requests get to drain after a
// shutdown signal.
const shutdownGrace = 10 * time.Second

// serveWithShutdown serves until ctx is cancelled, then drains in-flight
// requests. The signal context is already dead at shutdown time, so the
// drain runs on its own timeout.
func serveWithShutdown(ctx context.Context, srv *http.Server, ln net.Listener) error {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		zap.L().Info("shutting down server")
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			zap.L().Error("server shutdown", zap.Error(err))
		}
	}()

	err := srv.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server serve")
	}
	if err == http.ErrServerClosed {
		<-drained
	}
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newAPIRouter builds the read-only API over the case store.
func newAPIRouter(st store.Store, reviewPageSize int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/v1/jobs", func(w http.ResponseWriter, req *http.Request) {
		filter := store.JobFilter{
			Status:       model.JobStatus(req.URL.Query().Get("status")),
			SourceSystem: req.URL.Query().Get("source"),
			Limit:        queryInt(req, "limit", 50),
		}
		jobs, err := st.ListJobs(req.Context(), filter)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, jobs)
	})

	r.Get("/v1/jobs/{id}", func(w http.ResponseWriter, req *http.Request) {
		job, err := st.GetJob(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
			return
		}
		writeJSON(w, http.StatusOK, job)
	})

	r.Get("/v1/jobs/{id}/errors", func(w http.ResponseWriter, req *http.Request) {
		errs, err := st.ListErrors(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, errs)
	})

	r.Get("/v1/review", func(w http.ResponseWriter, req *http.Request) {
		cases, err := st.ListReviewQueue(req.Context(), queryInt(req, "limit", reviewPageSize))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cases)
	})

	r.Get("/v1/stats", func(w http.ResponseWriter, req *http.Request) {
		stats, err := pipeline.NewCollector(st).Collect(req.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	zap.L().Error("api: request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func queryInt(req *http.Request, key string, def int) int {
	raw := req.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
