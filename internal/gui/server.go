// Package gui serves the web interface and its JSON API.
package gui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/localrivet/githubsentinel/internal/reportgen"
	"github.com/localrivet/githubsentinel/internal/reportstore"
	"github.com/localrivet/githubsentinel/internal/telemetry"
)

// Service is the report pipeline behind the GUI.
type Service interface {
	GenerateReport(ctx context.Context, req reportgen.Request) (reportgen.Output, error)
	GenerateHackerNewsReport(ctx context.Context, dryRun bool) (reportgen.Output, error)
	ListSubscriptions() ([]string, error)
	AddSubscription(repo string) ([]string, error)
	RemoveSubscription(repo string) ([]string, error)
	ListReports(repository string, limit int) ([]reportstore.Report, error)
	GetReport(id string) (*reportstore.Report, error)
	Health(ctx context.Context) telemetry.HealthReport
}

// recentReports is how many archived reports the index page lists.
const recentReports = 10

// Server is the GUI HTTP handler.
type Server struct {
	service Service
	logger  *slog.Logger
	mux     *http.ServeMux
	now     func() time.Time
}

// New builds the handler and its routes.
func New(service Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		service: service,
		logger:  logger.WithGroup("gui"),
		mux:     http.NewServeMux(),
		now:     time.Now,
	}

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /api/report", s.handleReport)
	s.mux.HandleFunc("POST /api/hackernews/report", s.handleHackerNews)
	s.mux.HandleFunc("GET /api/subscriptions", s.handleListSubscriptions)
	s.mux.HandleFunc("POST /api/subscriptions", s.handleAddSubscription)
	s.mux.HandleFunc("DELETE /api/subscriptions", s.handleRemoveSubscription)
	s.mux.HandleFunc("GET /api/reports", s.handleListReports)
	s.mux.HandleFunc("GET /api/reports/{id}", s.handleGetReport)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	return s
}

// ServeHTTP logs and dispatches the request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.mux.ServeHTTP(w, r)
	s.logger.Debug("Request served", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("GUI listening", "addr", "http://"+addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down GUI")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	subs, err := s.service.ListSubscriptions()
	if err != nil {
		HandleError(w, s.logger, err)
		return
	}
	reports, err := s.service.ListReports("", recentReports)
	if err != nil {
		HandleError(w, s.logger, err)
		return
	}
	health := s.service.Health(r.Context())

	page, err := renderPage(pageData{
		Subscriptions: subs,
		Reports:       reports,
		Provider:      health.Provider,
		Model:         health.Model,
		DefaultDays:   reportgen.DefaultDays,
		Now:           s.now(),
	})
	if err != nil {
		HandleError(w, s.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, page)
}

type reportBody struct {
	Repository string `json:"repository"`
	Days       int    `json:"days"`
	Since      string `json:"since"`
	DryRun     bool   `json:"dry_run"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var body reportBody
	if !s.decode(w, r, &body) {
		return
	}

	out, err := s.service.GenerateReport(r.Context(), reportgen.Request{
		Repository: body.Repository,
		Days:       body.Days,
		Since:      body.Since,
		DryRun:     body.DryRun,
	})
	if err != nil {
		HandleError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reportJSON(out))
}

func (s *Server) handleHackerNews(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DryRun bool `json:"dry_run"`
	}
	if r.ContentLength != 0 && !s.decode(w, r, &body) {
		return
	}

	out, err := s.service.GenerateHackerNewsReport(r.Context(), body.DryRun)
	if err != nil {
		HandleError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reportJSON(out))
}

func reportJSON(out reportgen.Output) map[string]interface{} {
	resp := map[string]interface{}{
		"status":  "success",
		"report":  out.Report,
		"dry_run": out.DryRun,
	}
	if out.Path != "" {
		resp["path"] = out.Path
	}
	if out.ID != "" {
		resp["id"] = out.ID
	}
	return resp
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.service.ListSubscriptions()
	s.writeSubscriptions(w, subs, err)
}

func (s *Server) handleAddSubscription(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Repository string `json:"repository"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	subs, err := s.service.AddSubscription(body.Repository)
	s.writeSubscriptions(w, subs, err)
}

func (s *Server) handleRemoveSubscription(w http.ResponseWriter, r *http.Request) {
	repo := r.URL.Query().Get("repository")
	if repo == "" {
		var body struct {
			Repository string `json:"repository"`
		}
		if !s.decode(w, r, &body) {
			return
		}
		repo = body.Repository
	}
	subs, err := s.service.RemoveSubscription(repo)
	s.writeSubscriptions(w, subs, err)
}

func (s *Server) writeSubscriptions(w http.ResponseWriter, subs []string, err error) {
	if err != nil {
		HandleError(w, s.logger, err)
		return
	}
	if subs == nil {
		subs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "subscriptions": subs})
}

type reportEntry struct {
	ID         string `json:"id"`
	Repository string `json:"repository"`
	Kind       string `json:"kind"`
	Provider   string `json:"provider"`
	CreatedAt  string `json:"created_at"`
	Age        string `json:"age"`
	Size       string `json:"size"`
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			HandleBadRequest(w, s.logger, "limit must be a non-negative integer", err)
			return
		}
		limit = n
	}

	reports, err := s.service.ListReports(r.URL.Query().Get("repository"), limit)
	if err != nil {
		HandleError(w, s.logger, err)
		return
	}

	now := s.now()
	entries := make([]reportEntry, 0, len(reports))
	for _, rep := range reports {
		entries = append(entries, reportEntry{
			ID:         rep.ID,
			Repository: rep.Repository,
			Kind:       rep.Kind,
			Provider:   rep.Provider,
			CreatedAt:  rep.CreatedAt.UTC().Format(time.RFC3339),
			Age:        humanize.RelTime(rep.CreatedAt, now, "ago", "from now"),
			Size:       humanize.Bytes(uint64(len(rep.Text))),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "reports": entries})
}

// handleGetReport serves the report markdown as a download.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.service.GetReport(r.PathValue("id"))
	if err != nil {
		HandleError(w, s.logger, err)
		return
	}

	name := strings.ReplaceAll(rep.Repository, "/", "_") + "_" + rep.CreatedAt.UTC().Format("2006-01-02") + "_report.md"
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	fmt.Fprint(w, rep.Text)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.service.Health(r.Context())
	status := http.StatusOK
	if health.Status == telemetry.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// decode reads a JSON body into v, answering 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		HandleBadRequest(w, s.logger, "request body must be JSON", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
