package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"bookforge/internal/api"
	"bookforge/internal/config"
	"bookforge/internal/pipeline"
	"bookforge/internal/services"
)

const defaultSearchK = 5

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		token:  strings.TrimSpace(cfg.Paths.APIToken),
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(srv.token, srv.handleStatus))
	mux.HandleFunc("/api/search", authMiddleware(srv.token, srv.handleSearch))
	mux.HandleFunc("/api/chapters", authMiddleware(srv.token, srv.handleStartChapter))
	mux.HandleFunc("/api/chapters/", authMiddleware(srv.token, srv.handleChapter))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler exposes the routed handler for in-process tests.
func (s *apiServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", "address", listener.Addr().String())
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	running, pid, stats, indexed := s.daemon.Status(r.Context())
	counts := make(map[string]int, len(stats))
	for versionType, count := range stats {
		counts[string(versionType)] = count
	}
	s.writeJSON(w, http.StatusOK, api.StatusResponse{
		Running:        running,
		PID:            pid,
		DatabasePath:   s.daemon.store.Path(),
		IndexPath:      s.daemon.cfg.IndexPath(),
		LockFilePath:   s.daemon.lockPath,
		VersionCounts:  counts,
		IndexedVectors: indexed,
	})
}

func (s *apiServer) handleStartChapter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.StartChapterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	version, err := s.daemon.pipeline.StartChapter(r.Context(), req.Locator)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.VersionResponse{Version: api.FromVersion(version)})
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.K <= 0 {
		req.K = defaultSearchK
	}
	matches, err := s.daemon.pipeline.Search(r.Context(), req.Query, req.K)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SearchResponse{Matches: api.FromMatches(matches)})
}

// handleChapter routes /api/chapters/{id}/{action}.
func (s *apiServer) handleChapter(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/chapters/")
	chapterID, action, ok := strings.Cut(rest, "/")
	if !ok || chapterID == "" || strings.Contains(action, "/") {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch action {
	case "versions":
		s.handleVersions(w, r, chapterID)
	case "stage":
		s.handleStage(w, r, chapterID)
	case "draft":
		s.handleDraft(w, r, chapterID)
	case "decision":
		s.handleDecision(w, r, chapterID)
	case "summary":
		s.handleSummary(w, r, chapterID)
	case "score":
		s.handleScore(w, r, chapterID)
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) handleVersions(w http.ResponseWriter, r *http.Request, chapterID string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	history, err := s.daemon.pipeline.ListVersions(r.Context(), chapterID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.VersionListResponse{
		ChapterID: chapterID,
		Versions:  api.FromVersions(history),
	})
}

func (s *apiServer) handleStage(w http.ResponseWriter, r *http.Request, chapterID string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stage, err := s.daemon.pipeline.Stage(r.Context(), chapterID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.StageResponse{ChapterID: chapterID, Stage: string(stage)})
}

func (s *apiServer) handleDraft(w http.ResponseWriter, r *http.Request, chapterID string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	draft, err := s.daemon.pipeline.RequestDraft(r.Context(), chapterID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.DraftResponse{
		Version:        api.FromVersion(draft.Version),
		ReviewFeedback: draft.ReviewFeedback,
	})
}

func (s *apiServer) handleDecision(w http.ResponseWriter, r *http.Request, chapterID string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	version, err := s.daemon.pipeline.SubmitHumanDecision(r.Context(), chapterID, req.Decision)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.VersionResponse{Version: api.FromVersion(version)})
}

func (s *apiServer) handleSummary(w http.ResponseWriter, r *http.Request, chapterID string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	version, err := s.daemon.pipeline.ArchiveSummary(r.Context(), chapterID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.VersionResponse{Version: api.FromVersion(version)})
}

func (s *apiServer) handleScore(w http.ResponseWriter, r *http.Request, chapterID string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	breakdown, err := s.daemon.pipeline.Score(r.Context(), chapterID, req.Feedback)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromBreakdown(breakdown))
}

// writeServiceError maps the error taxonomy onto HTTP statuses. Workflow
// rejections are conflicts, not server failures.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	var rejected *pipeline.RejectedError
	switch {
	case errors.As(err, &rejected):
		s.writeError(w, http.StatusConflict, rejected.Decision.Reason)
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrCollaborator):
		s.writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, services.ErrIndexUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write response", "error", err)
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
