// Package server exposes assessments over HTTP and streams stage progress over WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/BetterCallFirewall/Revalidator/internal/driven"
	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/BetterCallFirewall/Revalidator/internal/storage"
	"github.com/BetterCallFirewall/Revalidator/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Config struct {
	ListenAddr string
	Pipeline   *driven.Pipeline
	Runs       *driven.RunManager
	Store      storage.DocumentStore
	Hub        *websocket.Hub
}

type Server struct {
	cfg    Config
	router chi.Router
}

func NewServer(cfg Config) *Server {
	if cfg.Runs == nil {
		cfg.Runs = driven.NewRunManager()
	}
	s := &Server{cfg: cfg, router: chi.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(corsMiddleware)

	r.Options("/assessments", optionsHandler("GET, POST"))
	r.Options("/assessments/{id}", optionsHandler("GET, DELETE"))

	r.Post("/assessments", s.handleStartAssessment)
	r.Get("/assessments", s.handleListAssessments)
	r.Get("/assessments/{id}", s.handleGetAssessment)
	r.Delete("/assessments/{id}", s.handleCancelAssessment)

	r.Get("/health", s.handleHealth)

	if s.cfg.Hub != nil {
		r.Get("/ws", s.cfg.Hub.ServeWS)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("🌐 HTTP request")
	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:        s.cfg.ListenAddr,
		Handler:     s,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout 0: /ws держит соединение
	}
}

// Close отменяет фоновые прогоны и ждёт их завершения
func (s *Server) Close() {
	s.cfg.Runs.Stop()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorDTO{Error: msg})
}

func (s *Server) handleStartAssessment(w http.ResponseWriter, r *http.Request) {
	var body models.StartAssessmentDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		log.Warn().Err(err).Msg("⚠️ Decoding start assessment body")
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	in := driven.Input{
		Mode:       body.Mode,
		ReportPath: body.PDFPath,
		SourcePath: body.SourcePath,
		TargetURL:  body.TargetURL,
		Claims:     body.Claims,
	}
	id, err := s.cfg.Pipeline.Start(r.Context(), in)
	if err != nil {
		if errors.Is(err, driven.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("❌ Creating assessment document")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	err = s.cfg.Runs.Launch(id, func(ctx context.Context) error {
		_, err := s.cfg.Pipeline.Execute(ctx, id, in)
		return err
	})
	if err != nil {
		// документ уже создан, без прогона он навсегда останется in_progress
		if abortErr := s.cfg.Pipeline.Abort(r.Context(), id, err.Error()); abortErr != nil {
			log.Warn().Err(abortErr).Str("document_id", id).Msg("⚠️ Marking unlaunched assessment failed")
		}
		status := http.StatusInternalServerError
		if errors.Is(err, driven.ErrTooManyRuns) {
			status = http.StatusTooManyRequests
		}
		writeError(w, status, err.Error())
		return
	}

	log.Info().Str("document_id", id).Str("mode", in.Mode).Msg("🚀 Assessment accepted")
	writeJSON(w, http.StatusAccepted, map[string]string{
		"document_id": id,
		"status":      models.StatusInProgress,
	})
}

func (s *Server) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	limit := storage.DefaultListLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}

	items, err := s.cfg.Store.List(r.Context(), limit)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Listing assessments")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := s.cfg.Store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "assessment not found")
			return
		}
		log.Warn().Err(err).Str("document_id", id).Msg("⚠️ Getting assessment")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleCancelAssessment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.cfg.Runs.Cancel(id) {
		writeError(w, http.StatusNotFound, "no running assessment with this id")
		return
	}
	log.Info().Str("document_id", id).Msg("🛑 Assessment cancelled")
	writeJSON(w, http.StatusOK, map[string]string{"document_id": id, "status": "cancelling"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": "ok",
		"runs":   s.cfg.Runs.GetStats(),
	}
	if s.cfg.Hub != nil {
		resp["ws_clients"] = s.cfg.Hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, resp)
}
