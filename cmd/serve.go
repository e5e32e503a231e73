package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scholarly-group/confcollect/internal/model"
	"github.com/scholarly-group/confcollect/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for collection requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initCollector(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(chimiddleware.RequestID)
		r.Use(chimiddleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/collect", func(w http.ResponseWriter, r *http.Request) {
			years, ok := decodeYears(w, r)
			if !ok {
				return
			}

			// Collection runs in the background; progress lands in the
			// run store.
			go func() {
				result, _, err := env.Collector.Collect(ctx, years)
				if err != nil {
					zap.L().Error("collection failed",
						zap.Ints("years", years),
						zap.Error(err),
					)
					return
				}
				zap.L().Info("collection complete",
					zap.Ints("years", years),
					zap.Int("authors", result.TotalAuthors),
				)
			}()

			writeJSON(w, http.StatusAccepted, map[string]any{
				"status": "accepted",
				"years":  years,
			})
		})

		r.Post("/collect/papers", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Years []int  `json:"years"`
				API   string `json:"api"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			if len(req.Years) == 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "years is required"})
				return
			}

			shape := model.ShapeRevised
			switch req.API {
			case "", "revised":
			case "legacy":
				shape = model.ShapeLegacy
			default:
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "api must be legacy or revised"})
				return
			}

			go func() {
				if _, _, err := env.Collector.CollectPapersOnly(ctx, req.Years, shape); err != nil {
					zap.L().Error("papers collection failed",
						zap.Ints("years", req.Years),
						zap.Error(err),
					)
				}
			}()

			writeJSON(w, http.StatusAccepted, map[string]any{
				"status": "accepted",
				"years":  req.Years,
				"api":    string(shape),
			})
		})

		r.Get("/runs", func(w http.ResponseWriter, r *http.Request) {
			runs, err := env.Store.ListRuns(r.Context(), store.RunFilter{
				Status: model.RunStatus(r.URL.Query().Get("status")),
				Limit:  50,
			})
			if err != nil {
				zap.L().Error("list runs failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list runs failed"})
				return
			}
			writeJSON(w, http.StatusOK, runs)
		})

		r.Get("/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
			run, err := env.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
				return
			}
			writeJSON(w, http.StatusOK, run)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown: ctx is already cancelled here, so the drain
		// window needs its own deadline.
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Error("server shutdown failed", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func decodeYears(w http.ResponseWriter, r *http.Request) ([]int, bool) {
	var req struct {
		Years []int `json:"years"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return nil, false
	}
	if len(req.Years) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "years is required"})
		return nil, false
	}
	return req.Years, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
