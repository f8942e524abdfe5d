package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/waynehead99/SmartSchedular/internal/schedule"
	"github.com/waynehead99/SmartSchedular/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encoding response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// writeEngineError maps engine sentinels onto HTTP statuses. Only invalid
// task and conflict are hard failures; everything else the engine already
// degraded into notes.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidTask):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, schedule.ErrConflict):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, schedule.ErrUnschedulable):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.log.Error().Err(err).Msg("internal error")
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("id"))
}

// --- scheduling ---

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req schedule.SuggestRequest

	q := r.URL.Query()
	if v := q.Get("task_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "task_id must be an integer")
			return
		}
		req.TaskID = id
	}
	if v := q.Get("horizon_days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 {
			s.writeError(w, http.StatusBadRequest, "horizon_days must be a positive integer")
			return
		}
		req.HorizonDays = days
	}

	result, err := s.engine.Suggest(r.Context(), req)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if result.Suggestions == nil {
		result.Suggestions = []schedule.Suggestion{} // empty list, not null
	}
	s.writeJSON(w, http.StatusOK, result)
}

type approveRequest struct {
	TaskID          int    `json:"task_id"`
	SuggestedStart  string `json:"suggested_start"`
	DurationMinutes int    `json:"duration_minutes"`
}

type approveResponse struct {
	ID     int64     `json:"id"`
	TaskID int       `json:"task_id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	start, err := time.Parse(time.RFC3339, req.SuggestedStart)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "suggested_start must be RFC 3339")
		return
	}
	if req.DurationMinutes <= 0 {
		s.writeError(w, http.StatusBadRequest, "duration_minutes must be positive")
		return
	}

	booked, err := s.committer.Approve(r.Context(), schedule.ApproveRequest{
		TaskID:  req.TaskID,
		Start:   start,
		Minutes: req.DurationMinutes,
	})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, approveResponse{
		ID:     booked.ID,
		TaskID: booked.TaskID,
		Start:  booked.Start,
		End:    booked.End,
	})
}

// --- projects ---

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.db.ListProjects(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	for i := range projects {
		if projects[i].Color == "" {
			projects[i].Color = ColorFor(projects[i].ID)
		}
	}
	if projects == nil {
		projects = []store.Project{}
	}
	s.writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var p store.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if p.Name == "" {
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if p.Priority == 0 {
		p.Priority = schedule.PriorityMedium
	}
	if p.Status == "" {
		p.Status = "In Progress"
	}
	if _, err := s.db.CreateProject(r.Context(), &p); err != nil {
		s.writeEngineError(w, err)
		return
	}
	if p.Color == "" {
		p.Color = ColorFor(p.ID)
		if err := s.db.UpdateProject(r.Context(), &p); err != nil {
			s.writeEngineError(w, err)
			return
		}
	}
	s.writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	p, err := s.db.GetProject(r.Context(), id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if p == nil {
		s.writeError(w, http.StatusNotFound, "project not found")
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	var p store.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p.ID = id
	if err := s.db.UpdateProject(r.Context(), &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeError(w, http.StatusNotFound, "project not found")
			return
		}
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	if err := s.db.DeleteProject(r.Context(), id); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- tasks ---

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.db.ListTasks(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if tasks == nil {
		tasks = []store.Task{}
	}
	s.writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var t store.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if t.Title == "" {
		s.writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if t.EstimatedMinutes <= 0 {
		s.writeError(w, http.StatusBadRequest, "estimated_minutes must be positive")
		return
	}
	if t.Priority == 0 {
		t.Priority = schedule.PriorityMedium
	}
	if t.Status == "" {
		t.Status = string(schedule.StatusNotStarted)
	}
	if _, err := s.db.CreateTask(r.Context(), &t); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	var t store.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	t.ID = id
	if err := s.db.UpdateTask(r.Context(), &t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	if err := s.db.DeleteTask(r.Context(), id); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- calendar ---

type intervalPayload struct {
	ID     int64     `json:"id,omitempty"`
	TaskID int       `json:"task_id,omitempty"`
	Title  string    `json:"title"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

func (s *Server) handleListIntervals(w http.ResponseWriter, r *http.Request) {
	intervals, err := s.db.ListIntervals(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	out := make([]intervalPayload, len(intervals))
	for i, iv := range intervals {
		out[i] = intervalPayload{ID: iv.ID, TaskID: iv.TaskID, Title: iv.Title, Start: iv.Start, End: iv.End}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateInterval(w http.ResponseWriter, r *http.Request) {
	var p intervalPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !p.End.After(p.Start) {
		s.writeError(w, http.StatusBadRequest, "end must be after start")
		return
	}
	id, err := s.db.CreateInterval(r.Context(), schedule.Interval{
		TaskID: p.TaskID,
		Title:  p.Title,
		Start:  p.Start,
		End:    p.End,
	}, store.SourceManual)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	p.ID = id
	s.writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleDeleteInterval(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid interval id")
		return
	}
	if err := s.db.DeleteInterval(r.Context(), id); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- misc ---

func (s *Server) handleProjectStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.db.ProjectStatus(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if status == nil {
		status = []store.ProjectProgress{}
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
