// Package server exposes the pipeline to the presentation layer: a JSON
// API over the primary ports plus a WebSocket feed of realtime changes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/atelier/internal/core/phase"
	"github.com/example/atelier/internal/models"
	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/ports/secondary"
	"github.com/example/atelier/internal/realtime"
)

// Server serves the JSON API and the WebSocket change feed.
type Server struct {
	projects     primary.ProjectService
	chat         primary.ChatService
	pipeline     primary.PipelineService
	projectRepo  secondary.ProjectRepository
	artifactRepo secondary.ArtifactRepository
	addr         string
	mux          *http.ServeMux
	hub          *WSHub
}

// New creates a new server.
func New(
	projects primary.ProjectService,
	chat primary.ChatService,
	pipeline primary.PipelineService,
	projectRepo secondary.ProjectRepository,
	artifactRepo secondary.ArtifactRepository,
	bus *realtime.Bus,
	addr string,
) *Server {
	s := &Server{
		projects:     projects,
		chat:         chat,
		pipeline:     pipeline,
		projectRepo:  projectRepo,
		artifactRepo: artifactRepo,
		addr:         addr,
		mux:          http.NewServeMux(),
		hub:          NewWSHub(bus),
	}
	s.registerRoutes()
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{Addr: s.addr, Handler: s.mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.hub.Run(ctx)
	})
	g.Go(func() error {
		log.Printf("atelier server listening on %s", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/projects", s.handleListProjects)
	s.mux.HandleFunc("POST /api/projects", s.handleCreateProject)
	s.mux.HandleFunc("GET /api/projects/{id}", s.handleGetProject)
	s.mux.HandleFunc("DELETE /api/projects/{id}", s.handleDeleteProject)
	s.mux.HandleFunc("GET /api/projects/{id}/phases", s.handlePhases)
	s.mux.HandleFunc("GET /api/projects/{id}/artifacts", s.handleArtifacts)
	s.mux.HandleFunc("GET /api/projects/{id}/messages", s.handleMessages)
	s.mux.HandleFunc("POST /api/projects/{id}/messages", s.handleSendMessage)
	s.mux.HandleFunc("POST /api/artifacts/{id}/approve", s.handleApprove)
	s.mux.HandleFunc("GET /ws", s.hub.HandleWS)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.projects.ListProjects(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string `json:"user_id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Mode        string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.projects.CreateProject(r.Context(), primary.CreateProjectRequest{
		UserID:      req.UserID,
		Name:        req.Name,
		Description: req.Description,
		Mode:        req.Mode,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp.Project)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.projects.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.projects.DeleteProject(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePhases resolves the phase board for a project directly from the
// store - a stateless read that works for any project, not only the
// manager's active one.
func (s *Server) handlePhases(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	project, err := s.projectRepo.GetByID(r.Context(), projectID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	rows, err := s.artifactRepo.ListByProject(r.Context(), projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	artifacts := make([]models.Artifact, 0, len(rows))
	for _, row := range rows {
		artifacts = append(artifacts, *row)
	}
	docs := phase.DocStatesOf(artifacts)
	statuses := phase.ResolveAll(docs, project.Mode)

	type phaseEntry struct {
		Type   string `json:"type"`
		Title  string `json:"title"`
		Status string `json:"status"`
	}
	out := struct {
		ProjectID    string       `json:"project_id"`
		Mode         string       `json:"mode"`
		NextExpected string       `json:"next_expected,omitempty"`
		Phases       []phaseEntry `json:"phases"`
	}{ProjectID: projectID, Mode: project.Mode}

	if next, ok := phase.NextExpected(docs, project.Mode); ok {
		out.NextExpected = next
	}
	for _, t := range phase.Pipeline {
		out.Phases = append(out.Phases, phaseEntry{
			Type:   t,
			Title:  phase.Title(t),
			Status: string(statuses[t]),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleArtifacts(w http.ResponseWriter, r *http.Request) {
	rows, err := s.artifactRepo.ListByProject(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]artifactJSON, 0, len(rows))
	for _, row := range rows {
		out = append(out, toArtifactJSON(row))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.chat.History(r.Context(), r.PathValue("id"), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.chat.SendMessage(r.Context(), primary.SendMessageRequest{
		ProjectID: r.PathValue("id"),
		Text:      req.Text,
	})
	if err != nil {
		switch {
		case errors.Is(err, primary.ErrCooldown):
			writeError(w, http.StatusTooManyRequests, err)
		case errors.Is(err, primary.ErrGenerationUnavailable):
			writeError(w, http.StatusBadGateway, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	artifactID := r.PathValue("id")
	var req struct {
		ApprovedBy string `json:"approved_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	artifact, err := s.artifactRepo.GetByID(r.Context(), artifactID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if s.pipeline.ActiveProject() != artifact.ProjectID {
		if err := s.pipeline.SetActiveProject(r.Context(), artifact.ProjectID); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	resp, err := s.pipeline.Approve(r.Context(), primary.ApproveRequest{
		ArtifactID: artifactID,
		ApprovedBy: req.ApprovedBy,
	})
	if err != nil {
		if errors.Is(err, primary.ErrInvalidTransition) {
			writeError(w, http.StatusConflict, err)
		} else {
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, toArtifactJSON(&resp.Artifact))
}

// artifactJSON is the wire shape of an artifact row.
type artifactJSON struct {
	ID                 string `json:"id"`
	ProjectID          string `json:"project_id"`
	ArtifactType       string `json:"artifact_type"`
	Title              string `json:"title"`
	Content            string `json:"content"`
	Status             string `json:"status"`
	Version            int    `json:"version"`
	UpdatedByMessageID string `json:"updated_by_message_id,omitempty"`
	ApprovedAt         string `json:"approved_at,omitempty"`
	ApprovedBy         string `json:"approved_by,omitempty"`
	StaleReason        string `json:"stale_reason,omitempty"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

func toArtifactJSON(a *models.Artifact) artifactJSON {
	out := artifactJSON{
		ID:                 a.ID,
		ProjectID:          a.ProjectID,
		ArtifactType:       a.ArtifactType,
		Title:              phase.Title(a.ArtifactType),
		Content:            a.Content,
		Status:             a.Status,
		Version:            a.Version,
		UpdatedByMessageID: a.UpdatedByMessageID.String,
		ApprovedBy:         a.ApprovedBy.String,
		StaleReason:        a.StaleReason.String,
		CreatedAt:          a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          a.UpdatedAt.Format(time.RFC3339),
	}
	if a.ApprovedAt.Valid {
		out.ApprovedAt = a.ApprovedAt.Time.Format(time.RFC3339)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
