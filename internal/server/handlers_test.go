package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/campaign-studio/internal/dispatch"
	"github.com/jonathan/campaign-studio/internal/pipeline"
	"github.com/jonathan/campaign-studio/internal/provider"
	"github.com/jonathan/campaign-studio/internal/store"
	"github.com/jonathan/campaign-studio/internal/tier"
	"github.com/jonathan/campaign-studio/internal/types"
)

// okProviders succeed immediately; handler tests never exercise provider
// behavior, only the HTTP surface.
type okProviders struct{}

func (okProviders) AnalyzeProfile(_ context.Context, url string, _ tier.Policy) (*types.BusinessProfile, error) {
	return &types.BusinessProfile{URL: url, BusinessName: "Testco", Industry: "retail", Confidence: 0.9}, nil
}

func (okProviders) ResearchTrends(_ context.Context, _ *types.BusinessProfile, _ tier.Policy) (*types.TrendResearch, error) {
	return &types.TrendResearch{
		Opportunities: []types.TrendOpportunity{{Type: types.TrendIndustry, Title: "t"}},
		Confidence:    0.6,
	}, nil
}

func (okProviders) GenerateContent(_ context.Context, req provider.GenerateRequest, _ tier.Policy) (*types.ContentItem, error) {
	now := time.Now().UTC()
	return &types.ContentItem{
		ID: uuid.New(), Type: req.Type, Payload: "content",
		Verdict:   types.QualityVerdict{Status: types.VerdictPending},
		CreatedAt: now, UpdatedAt: now,
	}, nil
}

func (okProviders) AssessQuality(_ context.Context, _ *types.ContentItem, _ *types.BusinessProfile, _ tier.Policy) (types.QualityVerdict, error) {
	return types.QualityVerdict{Status: types.VerdictApproved, Score: 90}, nil
}

type testEnv struct {
	server *Server
	store  *store.Memory
	engine *pipeline.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	st := store.NewMemory()
	p := okProviders{}
	providers := provider.Set{Profile: p, Trends: p, Content: p, Quality: p}
	engine := pipeline.New(st, providers, pipeline.Config{
		StageRetries: 1, RetryBackoff: time.Millisecond,
		GenTimeout: time.Second, VideoGenTimeout: time.Second,
	}, nil)
	dispatcher := dispatch.New(st, engine, dispatch.DefaultConfig(), nil)

	srv, err := New(Config{Port: 0}, Deps{Store: st, Dispatcher: dispatcher, Engine: engine})
	require.NoError(t, err)

	return &testEnv{server: srv, store: st, engine: engine}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

// registerUser registers an account and returns its ID and token.
func (e *testEnv) registerUser(t *testing.T, email string) (uuid.UUID, string) {
	t.Helper()
	rec := e.do(t, "POST", "/api/auth/register", "", types.CreateUserRequest{
		Name: "Test User", Email: email, Password: "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp types.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.User.ID, resp.Token
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	userID, token := env.registerUser(t, "owner@example.com")
	require.NotEqual(t, uuid.Nil, userID)
	require.NotEmpty(t, token)

	rec := env.do(t, "POST", "/api/auth/login", "", types.LoginRequest{
		Email: "owner@example.com", Password: "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, userID, resp.User.ID)
	assert.Equal(t, types.TierBasic, resp.User.Tier, "new accounts start on basic")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "dup@example.com")

	rec := env.do(t, "POST", "/api/auth/register", "", types.CreateUserRequest{
		Name: "Other", Email: "dup@example.com", Password: "password123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "owner@example.com")

	rec := env.do(t, "POST", "/api/auth/login", "", types.LoginRequest{
		Email: "owner@example.com", Password: "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, "POST", "/api/auth/login", "", types.LoginRequest{
		Email: "nobody@example.com", Password: "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "unknown email gets the same response")
}

func TestJobRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, route := range []struct{ method, path string }{
		{"POST", "/api/jobs"},
		{"GET", "/api/jobs"},
		{"GET", "/api/jobs/" + uuid.NewString() + "/status"},
		{"POST", "/api/jobs/" + uuid.NewString() + "/regenerate"},
	} {
		rec := env.do(t, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.method, route.path)
	}
}

func TestSubmitJobAccepted(t *testing.T) {
	env := newTestEnv(t)
	userID, token := env.registerUser(t, "owner@example.com")

	rec := env.do(t, "POST", "/api/jobs", token, types.SubmitJobRequest{
		BusinessURL:  "https://apexroofing.example.com",
		CampaignGoal: "leads",
		BrandVoice:   "friendly",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp SubmitJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, types.JobQueued, resp.Status)

	job, err := env.store.GetJob(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, userID, job.UserID)
	assert.Equal(t, types.TierBasic, job.Tier, "tier read from the account at submission")
}

func TestSubmitJobValidation(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerUser(t, "owner@example.com")

	rec := env.do(t, "POST", "/api/jobs", token, types.SubmitJobRequest{
		BusinessURL: "not a url",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "POST", "/api/jobs", token, types.SubmitJobRequest{
		BusinessURL:  "https://example.com",
		CampaignGoal: "world domination",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "goal outside the allowed set")
}

func TestJobStatusAndOwnership(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerUser(t, "owner@example.com")
	_, otherToken := env.registerUser(t, "other@example.com")

	rec := env.do(t, "POST", "/api/jobs", token, types.SubmitJobRequest{
		BusinessURL: "https://example.com",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var submitted SubmitJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))

	rec = env.do(t, "GET", fmt.Sprintf("/api/jobs/%s/status", submitted.JobID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var statusBody map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statusBody))
	assert.Equal(t, "queued", statusBody["status"])
	assert.Equal(t, float64(0), statusBody["percent"])

	// Another user's job reads as missing, not forbidden.
	rec = env.do(t, "GET", fmt.Sprintf("/api/jobs/%s/status", submitted.JobID), otherToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, "GET", fmt.Sprintf("/api/jobs/%s/status", uuid.New()), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, "GET", "/api/jobs/not-a-uuid/status", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// runJob drives a queued job to completion through the pipeline engine,
// standing in for a dispatcher worker.
func (e *testEnv) runJob(t *testing.T, jobID uuid.UUID) {
	t.Helper()
	claimed, err := e.store.ClaimJob(context.Background(), "test-worker", time.Now().UTC())
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.Equal(t, jobID, claimed.ID)
	require.NoError(t, e.engine.Run(context.Background(), claimed))
}

func TestJobPackageLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerUser(t, "owner@example.com")

	rec := env.do(t, "POST", "/api/jobs", token, types.SubmitJobRequest{
		BusinessURL: "https://example.com",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var submitted SubmitJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))

	// Not ready while queued.
	rec = env.do(t, "GET", fmt.Sprintf("/api/jobs/%s/package", submitted.JobID), token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	env.runJob(t, submitted.JobID)

	rec = env.do(t, "GET", fmt.Sprintf("/api/jobs/%s/package", submitted.JobID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pkg types.CampaignPackage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pkg))
	assert.True(t, pkg.Has(types.ContentText))
}

func TestRegenerateEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerUser(t, "owner@example.com")

	rec := env.do(t, "POST", "/api/jobs", token, types.SubmitJobRequest{
		BusinessURL: "https://example.com",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var submitted SubmitJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))

	// Still queued: regeneration is an InvalidState conflict.
	rec = env.do(t, "POST", fmt.Sprintf("/api/jobs/%s/regenerate", submitted.JobID), token,
		types.RegenerateRequest{ContentType: types.ContentText, Feedback: "shorter"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	env.runJob(t, submitted.JobID)

	// Never-generated type: basic tier has no image.
	rec = env.do(t, "POST", fmt.Sprintf("/api/jobs/%s/regenerate", submitted.JobID), token,
		types.RegenerateRequest{ContentType: types.ContentImage})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, "POST", fmt.Sprintf("/api/jobs/%s/regenerate", submitted.JobID), token,
		types.RegenerateRequest{ContentType: types.ContentText, Feedback: "shorter"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	env.runJob(t, submitted.JobID)

	// Cap exhausted on basic tier after one regeneration.
	rec = env.do(t, "POST", fmt.Sprintf("/api/jobs/%s/regenerate", submitted.JobID), token,
		types.RegenerateRequest{ContentType: types.ContentText})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCancelEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerUser(t, "owner@example.com")

	rec := env.do(t, "POST", "/api/jobs", token, types.SubmitJobRequest{
		BusinessURL: "https://example.com",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var submitted SubmitJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))

	rec = env.do(t, "POST", fmt.Sprintf("/api/jobs/%s/cancel", submitted.JobID), token, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	job, err := env.store.GetJob(context.Background(), submitted.JobID)
	require.NoError(t, err)
	assert.Equal(t, types.JobCancelled, job.Status)

	// Cancelling again conflicts: the job already finished.
	rec = env.do(t, "POST", fmt.Sprintf("/api/jobs/%s/cancel", submitted.JobID), token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListJobs(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.registerUser(t, "owner@example.com")
	_, otherToken := env.registerUser(t, "other@example.com")

	for i := 0; i < 3; i++ {
		rec := env.do(t, "POST", "/api/jobs", token, types.SubmitJobRequest{
			BusinessURL: fmt.Sprintf("https://example%d.com", i),
		})
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	rec := env.do(t, "GET", "/api/jobs", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Jobs []JobSummary `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Len(t, listing.Jobs, 3)

	rec = env.do(t, "GET", "/api/jobs", otherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Empty(t, listing.Jobs)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
