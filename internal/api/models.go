package api

import (
	"time"

	"github.com/phrazzld/synth-api/internal/domain"
)

// SynthesisRequest is the request body for submitting a synthesis task.
// Field names match the original web client.
type SynthesisRequest struct {
	Text      string `json:"text"      validate:"required"`
	Voice     string `json:"voice"     validate:"required"`
	Language  string `json:"language"  validate:"required"`
	VoiceType string `json:"voiceType" validate:"required"`
}

// ToDomain converts the request body to a domain.SynthesisRequest.
func (r SynthesisRequest) ToDomain() domain.SynthesisRequest {
	return domain.SynthesisRequest{
		Text:      r.Text,
		Voice:     r.Voice,
		Language:  r.Language,
		VoiceType: r.VoiceType,
	}
}

// SubmitResponse is returned once a task has been accepted.
type SubmitResponse struct {
	TaskID string `json:"taskId"`
}

// CheckStatusRequest is the body of the legacy status check endpoint.
type CheckStatusRequest struct {
	TaskID string `json:"taskId" validate:"required"`
}

// TaskResponse describes one task record.
type TaskResponse struct {
	TaskID    string    `json:"taskId"`
	Status    string    `json:"status"`
	URL       string    `json:"url,omitempty"`
	Text      string    `json:"text"`
	Voice     string    `json:"voice"`
	Language  string    `json:"language"`
	VoiceType string    `json:"voiceType"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TaskListResponse wraps a list of tasks.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}

// HistoryResponse is the legacy list shape consumed by the web client.
type HistoryResponse struct {
	History []TaskResponse `json:"history"`
}

// LegacyStatusResponse mirrors the Polly GetSpeechSynthesisTask response
// shape returned by the legacy status endpoint.
type LegacyStatusResponse struct {
	TaskStatus LegacyTaskStatus `json:"task_status"`
}

// LegacyTaskStatus wraps the synthesis task description.
type LegacyTaskStatus struct {
	SynthesisTask LegacySynthesisTask `json:"SynthesisTask"`
}

// LegacySynthesisTask holds the fields the web client reads.
type LegacySynthesisTask struct {
	TaskID       string `json:"TaskId"`
	TaskStatus   string `json:"TaskStatus"`
	PreSignedURL string `json:"PreSignedUrl,omitempty"`
}

func taskToResponse(rec *domain.TaskRecord) TaskResponse {
	return TaskResponse{
		TaskID:    rec.TaskID,
		Status:    string(rec.Status),
		URL:       rec.ArtifactURL,
		Text:      rec.Request.Text,
		Voice:     rec.Request.Voice,
		Language:  rec.Request.Language,
		VoiceType: rec.Request.VoiceType,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func tasksToResponse(recs []*domain.TaskRecord) []TaskResponse {
	out := make([]TaskResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, taskToResponse(rec))
	}
	return out
}

func taskToLegacyStatus(rec *domain.TaskRecord) LegacyStatusResponse {
	return LegacyStatusResponse{
		TaskStatus: LegacyTaskStatus{
			SynthesisTask: LegacySynthesisTask{
				TaskID:       rec.TaskID,
				TaskStatus:   string(rec.Status),
				PreSignedURL: rec.ArtifactURL,
			},
		},
	}
}
