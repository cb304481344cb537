package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/synth-api/internal/api/middleware"
	"github.com/phrazzld/synth-api/internal/domain"
	"github.com/phrazzld/synth-api/internal/mocks"
	"github.com/phrazzld/synth-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const helloBody = `{"text":"hello","voice":"Joanna","language":"en-US","voiceType":"neural"}`

func newTestRouter(svc SynthesisService, owner string) http.Handler {
	r := chi.NewRouter()
	auth := middleware.NewAuthMiddleware(&mocks.MockVerifier{Owner: owner})
	NewSynthesisHandler(svc).RegisterRoutes(r, auth.Authenticate)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer token")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func record(taskID, owner string, status domain.TaskStatus, url string, created time.Time) *domain.TaskRecord {
	return &domain.TaskRecord{
		TaskID: taskID,
		Owner:  owner,
		Request: domain.SynthesisRequest{
			Text: "hello", Voice: "Joanna", Language: "en-US", VoiceType: "neural",
		},
		Status:      status,
		ArtifactURL: url,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	want := domain.SynthesisRequest{Text: "hello", Voice: "Joanna", Language: "en-US", VoiceType: "neural"}

	for _, path := range []string{"/api/synthesis", "/synthesize"} {
		path := path
		t.Run(path, func(t *testing.T) {
			t.Parallel()
			svc := new(mocks.TestifyMockSynthesisService)
			svc.On("Submit", mock.Anything, "u1", want).Return("T1", nil)

			rr := doRequest(t, newTestRouter(svc, "u1"), http.MethodPost, path, helloBody)

			assert.Equal(t, http.StatusAccepted, rr.Code)
			assert.JSONEq(t, `{"taskId":"T1"}`, rr.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestSubmit_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantError  string
	}{
		{
			name:       "malformed json",
			body:       `{"text":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
		{
			name:       "missing field",
			body:       `{"text":"hello","voice":"Joanna","language":"en-US"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid voiceType: required field",
		},
		{
			name:       "domain validation",
			body:       helloBody,
			serviceErr: domain.NewValidationError("voiceType", "must be one of standard, neural, generative, long-form"),
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid voiceType: must be one of standard, neural, generative, long-form",
		},
		{
			name:       "upstream failure",
			body:       helloBody,
			serviceErr: errors.New("ThrottlingException: rate exceeded"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "An unexpected error occurred",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := new(mocks.TestifyMockSynthesisService)
			if tc.serviceErr != nil {
				svc.On("Submit", mock.Anything, "u1", mock.Anything).Return("", tc.serviceErr)
			}

			rr := doRequest(t, newTestRouter(svc, "u1"), http.MethodPost, "/api/synthesis", tc.body)

			assert.Equal(t, tc.wantStatus, rr.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantError, resp["error"])
			svc.AssertExpectations(t)
		})
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	completed := record("T1", "u1", domain.TaskStatusCompleted, "https://example.com/T1.mp3?sig=1", created)

	tests := []struct {
		name       string
		owner      string
		rec        *domain.TaskRecord
		serviceErr error
		wantStatus int
		retryAfter string
	}{
		{name: "owner sees task", owner: "u1", rec: completed, wantStatus: http.StatusOK},
		{name: "other owner is forbidden", owner: "u2", rec: completed, wantStatus: http.StatusForbidden},
		{name: "missing task", owner: "u1", serviceErr: fmt.Errorf("%w: T1", task.ErrTaskNotFound), wantStatus: http.StatusNotFound},
		{
			name:       "transient failure",
			owner:      "u1",
			serviceErr: fmt.Errorf("%w: query task T1: timeout", task.ErrTransient),
			wantStatus: http.StatusServiceUnavailable,
			retryAfter: "2",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := new(mocks.TestifyMockSynthesisService)
			svc.On("CheckOne", mock.Anything, "T1").Return(tc.rec, tc.serviceErr)

			rr := doRequest(t, newTestRouter(svc, tc.owner), http.MethodGet, "/api/synthesis/T1", "")

			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.Equal(t, tc.retryAfter, rr.Header().Get("Retry-After"))
			if tc.wantStatus == http.StatusOK {
				var resp TaskResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.Equal(t, "T1", resp.TaskID)
				assert.Equal(t, "completed", resp.Status)
				assert.Equal(t, completed.ArtifactURL, resp.URL)
				assert.Equal(t, "hello", resp.Text)
			}
		})
	}
}

func TestCheckStatus_Legacy(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := new(mocks.TestifyMockSynthesisService)
	svc.On("CheckOne", mock.Anything, "T1").
		Return(record("T1", "u1", domain.TaskStatusCompleted, "https://example.com/T1.mp3?sig=1", created), nil)
	router := newTestRouter(svc, "u1")

	rr := doRequest(t, router, http.MethodPost, "/check_status", `{"taskId":"T1"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t,
		`{"task_status":{"SynthesisTask":{"TaskId":"T1","TaskStatus":"completed","PreSignedUrl":"https://example.com/T1.mp3?sig=1"}}}`,
		rr.Body.String())

	rr = doRequest(t, router, http.MethodPost, "/check_status", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestList_NewestFirst(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	recs := []*domain.TaskRecord{
		record("old", "u1", domain.TaskStatusFailed, "", base),
		record("new", "u1", domain.TaskStatusInProgress, "", base.Add(2*time.Hour)),
		record("mid", "u1", domain.TaskStatusInProgress, "", base.Add(time.Hour)),
	}

	t.Run("api", func(t *testing.T) {
		t.Parallel()
		svc := new(mocks.TestifyMockSynthesisService)
		svc.On("List", mock.Anything, "u1").Return(recs, nil)

		rr := doRequest(t, newTestRouter(svc, "u1"), http.MethodGet, "/api/synthesis", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var resp TaskListResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Len(t, resp.Tasks, 3)
		assert.Equal(t, "new", resp.Tasks[0].TaskID)
		assert.Equal(t, "mid", resp.Tasks[1].TaskID)
		assert.Equal(t, "old", resp.Tasks[2].TaskID)
	})

	t.Run("legacy history", func(t *testing.T) {
		t.Parallel()
		svc := new(mocks.TestifyMockSynthesisService)
		svc.On("List", mock.Anything, "u1").Return([]*domain.TaskRecord{}, nil)

		rr := doRequest(t, newTestRouter(svc, "u1"), http.MethodGet, "/history", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"history":[]}`, rr.Body.String())
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()
		svc := new(mocks.TestifyMockSynthesisService)
		svc.On("List", mock.Anything, "u1").Return(nil, fmt.Errorf("%w: list tasks: closed", task.ErrTransient))

		rr := doRequest(t, newTestRouter(svc, "u1"), http.MethodGet, "/api/synthesis", "")
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		serviceErr error
		wantStatus int
	}{
		{name: "deleted", path: "/api/synthesis/T1", wantStatus: http.StatusNoContent},
		{name: "legacy route", path: "/history/T1", wantStatus: http.StatusNoContent},
		{name: "not owned", path: "/api/synthesis/T1", serviceErr: task.ErrNotOwned, wantStatus: http.StatusForbidden},
		{name: "missing", path: "/history/T1", serviceErr: task.ErrTaskNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := new(mocks.TestifyMockSynthesisService)
			svc.On("Delete", mock.Anything, "u1", "T1").Return(tc.serviceErr)

			rr := doRequest(t, newTestRouter(svc, "u1"), http.MethodDelete, tc.path, "")

			assert.Equal(t, tc.wantStatus, rr.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestRoutes_RequireAuthentication(t *testing.T) {
	t.Parallel()

	svc := new(mocks.TestifyMockSynthesisService)
	router := newTestRouter(svc, "u1")

	req := httptest.NewRequest(http.MethodGet, "/api/synthesis", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}
