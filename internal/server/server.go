// Package server exposes the task operations over HTTP: create, get, list and
// stop, all scoped to the authenticated user.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rs/cors"

	"github.com/hylo-ai/crewd/internal/crew"
	"github.com/hylo-ai/crewd/pkg/models"
)

// Server wires the task manager to the /v1 HTTP routes.
type Server struct {
	manager *crew.Manager
	auth    *Authenticator
	logger  *slog.Logger
}

// New creates a Server. jwtSecret signs and validates bearer tokens.
func New(manager *crew.Manager, jwtSecret string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		manager: manager,
		auth:    NewAuthenticator(jwtSecret),
		logger:  logger,
	}
}

// Auth returns the server's authenticator, used by the CLI to mint tokens.
func (s *Server) Auth() *Authenticator {
	return s.auth
}

// Handler builds the route table with auth and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	auth := s.auth.Middleware

	mux.Handle("POST /v1/tasks", auth(http.HandlerFunc(s.createTask)))
	mux.Handle("GET /v1/tasks", auth(http.HandlerFunc(s.listTasks)))
	mux.Handle("GET /v1/tasks/{id}", auth(http.HandlerFunc(s.getTask)))
	mux.Handle("POST /v1/tasks/{id}/stop", auth(http.HandlerFunc(s.stopTask)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return cors.New(cors.Options{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}).Handler(mux)
}

type createTaskRequest struct {
	GoalText string `json:"goal_text"`
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.GoalText == "" {
		http.Error(w, `{"error":"goal_text is required"}`, http.StatusBadRequest)
		return
	}

	task, err := s.manager.CreateTask(r.Context(), UserFromContext(r.Context()), req.GoalText)
	if err != nil {
		s.logger.Error("create task", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	s.logger.Info("task created", "task_id", task.ID)
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.manager.ListTasks(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		s.logger.Error("list tasks", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.manager.GetTask(r.Context(), UserFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeManagerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) stopTask(w http.ResponseWriter, r *http.Request) {
	ok, err := s.manager.StopTask(r.Context(), UserFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeManagerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": ok})
}

func (s *Server) writeManagerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, crew.ErrNotFound):
		http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
	case errors.Is(err, crew.ErrForbidden):
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
	default:
		s.logger.Error("task operation", "path", r.URL.Path, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
