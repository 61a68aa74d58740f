package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
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

	"github.com/probelab/fathom/internal/extract"
	"github.com/probelab/fathom/internal/form"
	"github.com/probelab/fathom/internal/page"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the diagnostics HTTP server",
	Long:  "Exposes classification, extraction, and learned-pattern queries over HTTP so operators can inspect what the core would infer for a given page snapshot.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		classifier, err := newClassifier()
		if err != nil {
			return err
		}
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		// Body is a raw HTML snapshot; the url query parameter names its origin.
		r.Post("/classify", func(w http.ResponseWriter, req *http.Request) {
			html, err := io.ReadAll(req.Body)
			if err != nil || len(html) == 0 {
				http.Error(w, `{"error":"html body is required"}`, http.StatusBadRequest)
				return
			}
			p, err := page.NewStatic(req.URL.Query().Get("url"), html)
			if err != nil {
				http.Error(w, `{"error":"unparseable html"}`, http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusOK, classification{
				URL:       p.URL(),
				Signature: classifier.Classify(p),
				Fields:    form.Analyze(p),
			})
		})

		r.Post("/extract", func(w http.ResponseWriter, req *http.Request) {
			html, err := io.ReadAll(req.Body)
			if err != nil || len(html) == 0 {
				http.Error(w, `{"error":"html body is required"}`, http.StatusBadRequest)
				return
			}
			p, err := page.NewStatic(req.URL.Query().Get("url"), html)
			if err != nil {
				http.Error(w, `{"error":"unparseable html"}`, http.StatusBadRequest)
				return
			}
			res, found := extract.Address(p, nil)
			if !found {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "no address found"})
				return
			}
			writeJSON(w, http.StatusOK, res)
		})

		r.Get("/patterns/best", func(w http.ResponseWriter, req *http.Request) {
			domain := req.URL.Query().Get("domain")
			field := req.URL.Query().Get("field")
			if domain == "" || field == "" {
				http.Error(w, `{"error":"domain and field are required"}`, http.StatusBadRequest)
				return
			}
			selectors, err := store.BestSelectors(req.Context(), domain, field)
			if err != nil {
				zap.L().Error("serve: best selectors query failed", zap.Error(err))
				http.Error(w, `{"error":"store query failed"}`, http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"domain": domain, "field": field, "selectors": selectors})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "serve: listen")
		}
		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
