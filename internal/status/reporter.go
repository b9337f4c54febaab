// Package status projects job store state into the shape polling clients
// consume. The reporter reads the store on every call and holds no state of
// its own, so it can never report progress the store has not committed.
package status

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jonathan/campaign-studio/internal/pipeline"
	"github.com/jonathan/campaign-studio/internal/store"
	"github.com/jonathan/campaign-studio/internal/tier"
	"github.com/jonathan/campaign-studio/internal/types"
)

// ContentReadiness describes one content type's progress toward delivery.
type ContentReadiness struct {
	Type    types.ContentType `json:"type"`
	Ready   bool              `json:"ready"`
	Verdict types.Verdict     `json:"verdict"`

	// Score is present once the quality gate has run.
	Score *float64 `json:"score,omitempty"`

	Regenerations int `json:"regenerations"`
}

// JobStatus is the polling projection of one job.
type JobStatus struct {
	JobID     uuid.UUID       `json:"job_id"`
	Stage     types.Stage     `json:"stage"`
	Status    types.JobStatus `json:"status"`
	Percent   int             `json:"percent"`
	Tier      types.Tier      `json:"tier"`
	CreatedAt string          `json:"created_at"`

	ContentReadiness []ContentReadiness `json:"content_readiness,omitempty"`
	ErrorSummary     string             `json:"error_summary,omitempty"`
	PackageReady     bool               `json:"package_ready"`
}

// Reporter answers status queries from the job store.
type Reporter struct {
	store store.JobStore
}

// NewReporter creates a status reporter over the given store.
func NewReporter(st store.JobStore) *Reporter {
	return &Reporter{store: st}
}

// GetStatus returns the current projection for one job. It is safe to call
// at any polling frequency; every call reads the latest persisted record.
func (r *Reporter) GetStatus(ctx context.Context, jobID uuid.UUID) (*JobStatus, error) {
	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &pipeline.NotFoundError{JobID: jobID}
		}
		return nil, err
	}
	return Project(job), nil
}

// Project builds the status projection from a job record.
func Project(job *types.Job) *JobStatus {
	s := &JobStatus{
		JobID:        job.ID,
		Stage:        job.Stage,
		Status:       job.Status,
		Percent:      percent(job),
		Tier:         job.Tier,
		CreatedAt:    job.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		PackageReady: job.Status == types.JobCompleted && job.Package != nil,
	}
	if job.Error != nil {
		s.ErrorSummary = job.Error.Message
	}

	policy, err := tier.Lookup(job.Tier)
	if err != nil {
		return s
	}
	for _, ct := range policy.ContentTypes {
		item := job.Item(ct)
		cr := ContentReadiness{Type: ct, Verdict: types.VerdictPending}
		if item != nil {
			cr.Verdict = item.Verdict.Status
			cr.Ready = item.Verdict.Status == types.VerdictApproved
			cr.Regenerations = item.Regenerations
			if item.Verdict.Status != types.VerdictPending {
				score := item.Verdict.Score
				cr.Score = &score
			}
		}
		s.ContentReadiness = append(s.ContentReadiness, cr)
	}
	return s
}

// percent estimates progress from the stage pointer. Terminal jobs pin to
// the ends of the range regardless of where they stopped.
func percent(job *types.Job) int {
	switch job.Status {
	case types.JobCompleted:
		return 100
	case types.JobQueued:
		return 0
	}
	idx := types.StageIndex(job.Stage)
	if idx < 0 {
		return 0
	}
	return idx * 100 / len(types.StageOrder)
}
