package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/campaign-studio/internal/pipeline"
	"github.com/jonathan/campaign-studio/internal/server/middleware"
	"github.com/jonathan/campaign-studio/internal/status"
	"github.com/jonathan/campaign-studio/internal/store"
	"github.com/jonathan/campaign-studio/internal/types"
)

// SubmitJobResponse is returned by POST /api/jobs. Submission is
// asynchronous; the client polls the status endpoint with the returned ID.
type SubmitJobResponse struct {
	JobID  uuid.UUID       `json:"job_id"`
	Status types.JobStatus `json:"status"`
}

// JobSummary is one row in the GET /api/jobs listing.
type JobSummary struct {
	JobID       uuid.UUID       `json:"job_id"`
	Title       string          `json:"title,omitempty"`
	BusinessURL string          `json:"business_url"`
	Stage       types.Stage     `json:"stage"`
	Status      types.JobStatus `json:"status"`
	Tier        types.Tier      `json:"tier"`
	CreatedAt   string          `json:"created_at"`
}

// handleRegister creates a new account and returns a bearer token.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req types.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.userService.Register(r.Context(), &req)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	token, err := s.jwtService.GenerateToken(user.ID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusCreated, types.LoginResponse{User: user, Token: token})
}

// handleLogin authenticates and returns a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.userService.Login(r.Context(), &req)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	token, err := s.jwtService.GenerateToken(user.ID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, types.LoginResponse{User: user, Token: token})
}

// handleSubmitJob registers a campaign job and returns immediately; all
// provider work happens on the dispatcher's workers.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req types.SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	// The tier is read from the account once, here; the job keeps this
	// snapshot for its whole run.
	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	job, err := s.dispatcher.Submit(r.Context(), userID, req.Input(), user.Tier)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusAccepted, SubmitJobResponse{JobID: job.ID, Status: job.Status})
}

// handleJobStatus returns the polling projection for one job.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.ownedJob(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, status.Project(job))
}

// handleJobPackage returns the delivered package of a completed job.
func (s *Server) handleJobPackage(w http.ResponseWriter, r *http.Request) {
	job, ok := s.ownedJob(w, r)
	if !ok {
		return
	}
	if job.Package == nil {
		s.serviceError(w, &pipeline.InvalidStateError{
			JobID:  job.ID,
			Status: job.Status,
			Reason: "package is not ready",
		})
		return
	}
	s.jsonResponse(w, http.StatusOK, job.Package)
}

// handleRegenerate asks for one content type of a completed job to be
// regenerated. Like submission, the work itself runs on a worker.
func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	job, ok := s.ownedJob(w, r)
	if !ok {
		return
	}

	var req types.RegenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	queued, err := s.engine.RequestRegeneration(r.Context(), job.ID, req.ContentType, req.Feedback)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, SubmitJobResponse{JobID: queued.ID, Status: queued.Status})
}

// handleCancel requests cancellation at the job's next stage boundary.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	job, ok := s.ownedJob(w, r)
	if !ok {
		return
	}
	if err := s.engine.RequestCancel(r.Context(), job.ID); err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, map[string]string{"status": "cancel_requested"})
}

// handleListJobs lists the authenticated user's jobs, newest first.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	jobs, err := s.store.ListJobsByUser(r.Context(), userID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	summaries := make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, JobSummary{
			JobID:       job.ID,
			Title:       job.Input.Title,
			BusinessURL: job.Input.BusinessURL,
			Stage:       job.Stage,
			Status:      job.Status,
			Tier:        job.Tier,
			CreatedAt:   job.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"jobs": summaries})
}

// ownedJob loads the job from the path's {id} and enforces that it belongs
// to the authenticated user. Jobs of other users surface as 404, not 403,
// so job IDs can't be probed.
func (s *Server) ownedJob(w http.ResponseWriter, r *http.Request) (*types.Job, bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}

	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid job id")
		return nil, false
	}

	job, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.errorResponse(w, http.StatusNotFound, "job not found")
			return nil, false
		}
		s.serviceError(w, err)
		return nil, false
	}
	if job.UserID != userID {
		s.errorResponse(w, http.StatusNotFound, "job not found")
		return nil, false
	}
	return job, true
}

// serviceError maps a service-layer error onto the wire.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	code := HTTPStatus(err)
	if code == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		s.errorResponse(w, code, "internal server error")
		return
	}
	s.errorResponse(w, code, err.Error())
}
