package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/insightforge/market-intel/internal/model"
	"github.com/insightforge/market-intel/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the report API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/api/reports", func(r chi.Router) {
			r.Post("/", func(w http.ResponseWriter, req *http.Request) {
				var input model.ReportInput
				if err := json.NewDecoder(req.Body).Decode(&input); err != nil {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
					return
				}
				if input.Industry == "" {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": "industry is required"})
					return
				}
				if input.Depth == "" {
					input.Depth = model.DepthBasic
				}

				report, err := env.Store.CreateReport(req.Context(), input)
				if err != nil {
					zap.L().Error("create report", zap.Error(err))
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "create report failed"})
					return
				}

				// Generation runs detached from the request; callers poll
				// the status endpoint.
				go func() {
					if err := env.Orchestrator.Generate(ctx, report.ID); err != nil {
						zap.L().Error("report generation failed",
							zap.String("report_id", report.ID),
							zap.Error(err),
						)
					}
				}()

				writeJSON(w, http.StatusAccepted, report)
			})

			r.Get("/", func(w http.ResponseWriter, req *http.Request) {
				filter := store.ReportFilter{
					Status: model.ReportStatus(req.URL.Query().Get("status")),
				}
				reports, err := env.Store.ListReports(req.Context(), filter)
				if err != nil {
					zap.L().Error("list reports", zap.Error(err))
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list reports failed"})
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
			})

			r.Get("/{id}", func(w http.ResponseWriter, req *http.Request) {
				report, err := env.Store.GetReport(req.Context(), chi.URLParam(req, "id"))
				if err != nil {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "report not found"})
					return
				}
				writeJSON(w, http.StatusOK, report)
			})

			r.Get("/{id}/document", func(w http.ResponseWriter, req *http.Request) {
				doc, err := env.Store.GetDocument(req.Context(), chi.URLParam(req, "id"))
				if err != nil {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not available"})
					return
				}
				writeJSON(w, http.StatusOK, doc)
			})

			r.Post("/{id}/sections/{name}/regenerate", func(w http.ResponseWriter, req *http.Request) {
				reportID := chi.URLParam(req, "id")
				section := chi.URLParam(req, "name")
				if !model.ValidSection(section) {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown section"})
					return
				}
				if _, err := env.Store.GetReport(req.Context(), reportID); err != nil {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "report not found"})
					return
				}

				go func() {
					if err := env.Orchestrator.RegenerateSection(ctx, reportID, section); err != nil {
						zap.L().Error("section regeneration failed",
							zap.String("report_id", reportID),
							zap.String("section", section),
							zap.Error(err),
						)
					}
				}()

				writeJSON(w, http.StatusAccepted, map[string]string{
					"report_id": reportID,
					"section":   section,
					"status":    "accepted",
				})
			})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
