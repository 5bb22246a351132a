package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/vcanio/Terio-sub000/pkg/export"
	"github.com/vcanio/Terio-sub000/pkg/logging"
	"github.com/vcanio/Terio-sub000/pkg/patient"
	"github.com/vcanio/Terio-sub000/pkg/pubsub"
	"github.com/vcanio/Terio-sub000/pkg/session"
)

//go:embed static/*
var staticFiles embed.FS

const maxBodyBytes = 1 << 20

// Patients is the patient registry as the HTTP surface needs it
type Patients interface {
	patient.Registry
	Create(ctx context.Context, name string) (patient.Patient, error)
	Delete(ctx context.Context, id string) error
}

// Options configures a Server
type Options struct {
	Session   *session.Session
	Patients  Patients
	Publisher *pubsub.SSEPublisher
	Gate      *Gate // nil leaves the API open
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	session   *session.Session
	patients  Patients
	publisher *pubsub.SSEPublisher
	gate      *Gate
	log       *slog.Logger
}

// NewPublisher creates the SSE publisher with the board service's topics
func NewPublisher() *pubsub.SSEPublisher {
	p := pubsub.NewSSEPublisher()

	// board: late subscribers get the current board
	p.ConfigureTopic(pubsub.TopicBoard, pubsub.TopicConfig{BufferSize: 1})
	// interaction: only the current mode matters
	p.ConfigureTopic(pubsub.TopicInteraction, pubsub.TopicConfig{BufferSize: 1})
	// export: recent progress notifications, all replayed
	p.ConfigureTopic(pubsub.TopicExport, pubsub.TopicConfig{BufferSize: 10, ReplayAll: true})
	return p
}

// NewServer creates a new web server
func NewServer(opts Options) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		session:   opts.Session,
		patients:  opts.Patients,
		publisher: opts.Publisher,
		gate:      opts.Gate,
		log:       logging.Component("web"),
	}
	if s.publisher == nil {
		s.publisher = NewPublisher()
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Login sits outside the gate and must be registered before the /api prefix
	s.router.HandleFunc("/api/login", s.handleLogin).Methods("POST")
	s.router.HandleFunc("/api/logout", s.handleLogout).Methods("POST")

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.gate.Middleware)

	// SSE subscription endpoint
	api.HandleFunc("/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	api.HandleFunc("/patients", s.handleListPatients).Methods("GET")
	api.HandleFunc("/patients", s.handleCreatePatient).Methods("POST")
	api.HandleFunc("/patients/active", s.handleActivePatient).Methods("GET")
	api.HandleFunc("/patients/active", s.handleSetActivePatient).Methods("PUT")
	api.HandleFunc("/patients/{id}", s.handleDeletePatient).Methods("DELETE")

	api.HandleFunc("/board", s.handleBoard).Methods("GET")
	api.HandleFunc("/board", s.handleClearBoard).Methods("DELETE")
	api.HandleFunc("/board/metrics", s.handleMetrics).Methods("GET")
	api.HandleFunc("/board/nodes", s.handleAddNode).Methods("POST")
	api.HandleFunc("/board/nodes/{id}", s.handleRenameNode).Methods("PATCH")
	api.HandleFunc("/board/nodes/{id}", s.handleDeleteNode).Methods("DELETE")
	api.HandleFunc("/board/nodes/{id}/position", s.handleMoveNode).Methods("PUT")
	api.HandleFunc("/board/center", s.handleRenameCenter).Methods("PUT")
	api.HandleFunc("/board/edges/toggle", s.handleToggleEdge).Methods("POST")
	api.HandleFunc("/board/edges/{id}", s.handleDeleteEdge).Methods("DELETE")

	api.HandleFunc("/interaction", s.handleInteractionState).Methods("GET")
	api.HandleFunc("/interaction/connect", s.handleToggleConnect).Methods("POST")
	api.HandleFunc("/interaction/click", s.handleClick).Methods("POST")
	api.HandleFunc("/interaction/pointer/down", s.handlePointerDown).Methods("POST")
	api.HandleFunc("/interaction/pointer/move", s.handlePointerMove).Methods("POST")
	api.HandleFunc("/interaction/pointer/up", s.handlePointerUp).Methods("POST")
	api.HandleFunc("/interaction/key", s.handleKey).Methods("POST")

	api.HandleFunc("/viewport", s.handleViewportState).Methods("GET")
	api.HandleFunc("/viewport/container", s.handleResize).Methods("PUT")
	api.HandleFunc("/viewport/zoom", s.handleZoom).Methods("POST")
	api.HandleFunc("/viewport/pan", s.handlePan).Methods("POST")
	api.HandleFunc("/viewport/reset", s.handleViewportReset).Methods("POST")
	api.HandleFunc("/viewport/node-scale", s.handleNodeScale).Methods("POST")

	api.HandleFunc("/export", s.handleExportStatus).Methods("GET")
	api.HandleFunc("/export/{kind}", s.handleExport).Methods("GET")

	// Serve static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		logging.Fatal("static assets missing", "error", err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
}

// Handler returns the router wrapped in request logging
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting web server", "url", "http://"+displayAddr(addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down web server")
	// Close SSE streams first, they never end on their own
	s.publisher.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps sentinel errors to status codes
func writeError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, ""
	switch {
	case errors.Is(err, session.ErrNoActivePatient):
		status, code = http.StatusConflict, "no_active_patient"
	case errors.Is(err, patient.ErrUnknownPatient):
		status, code = http.StatusNotFound, "unknown_patient"
	case errors.Is(err, patient.ErrInvalidName):
		status, code = http.StatusUnprocessableEntity, "invalid_name"
	case errors.Is(err, export.ErrUnknownKind):
		status, code = http.StatusNotFound, "unknown_export"
	case errors.Is(err, export.ErrNothingToExport):
		status, code = http.StatusUnprocessableEntity, "nothing_to_export"
	case errors.Is(err, export.ErrInProgress):
		status, code = http.StatusConflict, "export_in_progress"
	case errors.Is(err, ErrBadPassword):
		status, code = http.StatusUnauthorized, "bad_password"
	case errors.Is(err, ErrTooManyAttempts):
		status, code = http.StatusTooManyRequests, "too_many_attempts"
	case errors.Is(err, errBadRequest):
		status, code = http.StatusBadRequest, "bad_request"
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: code})
}

var errBadRequest = errors.New("bad request")

// decode reads a JSON body into v
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
