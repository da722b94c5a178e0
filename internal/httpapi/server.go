package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/brandlens/mentions-sync/internal/models"
	"github.com/brandlens/mentions-sync/internal/monitoring"
	"github.com/brandlens/mentions-sync/internal/storage"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// SyncService is what the HTTP surface triggers and reads
type SyncService interface {
	GetMetrics() string
	ListAlerts(ctx context.Context) ([]models.Alert, error)
	StartScheduledSync(ctx context.Context) error
	SyncBindingByID(ctx context.Context, bindingID string, in monitoring.SyncBindingInput) (monitoring.SyncBindingResult, error)
	ListReports(ctx context.Context) ([]string, error)
	GetReport(ctx context.Context, name string) (*models.SyncReport, error)
}

// SyncRequest is the optional body of a single-binding sync
type SyncRequest struct {
	Cursor   string    `json:"cursor"`
	Since    time.Time `json:"since"`
	Until    time.Time `json:"until"`
	MaxPages int       `json:"max_pages"`
	PageSize int       `json:"page_size"`
	HardFail bool      `json:"hard_fail"`
}

type errorResponse struct {
	Error  string                        `json:"error"`
	Result *monitoring.SyncBindingResult `json:"result,omitempty"`
}

// Server exposes health, metrics and sync triggers
type Server struct {
	service SyncService
	router  *mux.Router
	// base context of asynchronous batch runs
	ctx context.Context
}

// NewServer wires the routes. Batch runs triggered over HTTP outlive the request and
// stop when ctx is cancelled.
func NewServer(ctx context.Context, service SyncService) *Server {
	s := &Server{
		service: service,
		router:  mux.NewRouter(),
		ctx:     ctx,
	}

	s.router.HandleFunc("/health", s.healthCheckHandler).Methods("GET")
	s.router.HandleFunc("/metrics", s.metricsHandler).Methods("GET")
	s.router.HandleFunc("/alerts", s.alertsHandler).Methods("GET")
	s.router.HandleFunc("/sync", s.triggerHandler).Methods("POST")
	s.router.HandleFunc("/bindings/{id}/sync", s.syncBindingHandler).Methods("POST")
	s.router.HandleFunc("/reports", s.reportsHandler).Methods("GET")
	s.router.HandleFunc("/reports/{name:.+}", s.reportHandler).Methods("GET")

	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.service.GetMetrics()))
}

func (s *Server) alertsHandler(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.service.ListAlerts(r.Context())
	if err != nil {
		logrus.Errorf("Failed to list alerts: %v", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) triggerHandler(w http.ResponseWriter, r *http.Request) {
	err := s.service.StartScheduledSync(s.ctx)
	switch {
	case errors.Is(err, monitoring.ErrSyncInProgress):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case err != nil:
		logrus.Errorf("Manual sync trigger failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"message": "Sync triggered successfully"})
	}
}

func (s *Server) syncBindingHandler(w http.ResponseWriter, r *http.Request) {
	bindingID := mux.Vars(r)["id"]

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if req.MaxPages < 0 || req.PageSize < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "max_pages and page_size must not be negative"})
		return
	}

	result, err := s.service.SyncBindingByID(r.Context(), bindingID, monitoring.SyncBindingInput{
		Cursor:   req.Cursor,
		Since:    req.Since,
		Until:    req.Until,
		MaxPages: req.MaxPages,
		PageSize: req.PageSize,
		HardFail: req.HardFail,
	})
	switch {
	case errors.Is(err, monitoring.ErrBindingNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Result: &result})
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) reportsHandler(w http.ResponseWriter, r *http.Request) {
	names, err := s.service.ListReports(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"reports": names})
}

func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.GetReport(r.Context(), mux.Vars(r)["name"])
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Debugf("Failed to write response: %v", err)
	}
}
