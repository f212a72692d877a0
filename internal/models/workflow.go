package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one message in an append-only conversation history.
// The history is owned by the session layer; the workflow only reads it.
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Classification is the structured judgment returned by the query classifier.
type Classification struct {
	IsNewsRequest bool    `json:"is_news_request"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning"`
}

// DefaultClassification is the value used whenever the classifier cannot
// produce a usable result. It routes the query to the general path.
func DefaultClassification() *Classification {
	return &Classification{
		IsNewsRequest: false,
		Confidence:    0.5,
		Reasoning:     "fallback",
	}
}

type RetrievalStatus string

const (
	RetrievalStatusSuccess RetrievalStatus = "success"
	RetrievalStatusError   RetrievalStatus = "error"
)

// Item is one normalized article or web snippet.
type Item struct {
	Title       string     `json:"title"`
	Snippet     string     `json:"snippet"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// RetrievalResult is the shared result shape produced by both the news
// retriever and the web searcher. Collaborators never raise; any underlying
// failure is converted into an error-status result.
type RetrievalResult struct {
	Status     RetrievalStatus `json:"status"`
	Items      []Item          `json:"items"`
	Message    string          `json:"message"`
	TotalCount int             `json:"total_count"`
}

func NewErrorResult(message string) *RetrievalResult {
	return &RetrievalResult{
		Status:  RetrievalStatusError,
		Items:   []Item{},
		Message: message,
	}
}

func NewSuccessResult(items []Item, total int, message string) *RetrievalResult {
	if items == nil {
		items = []Item{}
	}
	return &RetrievalResult{
		Status:     RetrievalStatusSuccess,
		Items:      items,
		Message:    message,
		TotalCount: total,
	}
}

func (r *RetrievalResult) Succeeded() bool {
	return r != nil && r.Status == RetrievalStatusSuccess
}

// Sufficient reports whether the result carries at least min items.
// An error-status result is never sufficient.
func (r *RetrievalResult) Sufficient(min int) bool {
	return r.Succeeded() && len(r.Items) >= min
}

// NewsCategories is the fixed category vocabulary of the news retriever.
// Order matters: when a query mentions several categories the first match
// in this enumeration wins.
var NewsCategories = []string{
	"general",
	"business",
	"technology",
	"entertainment",
	"health",
	"science",
	"sports",
}

type WorkflowStatus string

const (
	WorkflowStatusPending   WorkflowStatus = "pending"
	WorkflowStatusCompleted WorkflowStatus = "completed"
	WorkflowStatusFailed    WorkflowStatus = "failed"
)

type StageStatus string

const (
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
	StageStatusDegraded  StageStatus = "degraded"
)

// StageStats records one executed pipeline stage, in execution order.
type StageStats struct {
	Name      string        `json:"name"`
	Status    StageStatus   `json:"status"`
	Duration  time.Duration `json:"duration"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
}

// WorkflowState is the mutable record threaded through one pipeline
// invocation. It is created fresh per query, mutated in place by each stage
// and returned whole so callers can inspect the classification, the raw
// retrieval results and the error field for diagnostics.
type WorkflowState struct {
	ID        string `json:"id"`
	RequestID string `json:"request_id"`

	Query   string             `json:"query"`
	History []ConversationTurn `json:"history,omitempty"`

	Classification *Classification  `json:"classification,omitempty"`
	NewsResult     *RetrievalResult `json:"news_result,omitempty"`
	WebResult      *RetrievalResult `json:"web_result,omitempty"`

	FinalResponse string `json:"final_response"`
	Err           error  `json:"-"`

	Status    WorkflowStatus `json:"status"`
	StartTime time.Time      `json:"start_time"`
	EndTime   *time.Time     `json:"end_time,omitempty"`
	Stages    []StageStats   `json:"stages,omitempty"`
}

// NewWorkflowState builds the initial state for one invocation. The caller's
// history slice is copied so the workflow never aliases caller-owned memory.
func NewWorkflowState(query string, history []ConversationTurn) *WorkflowState {
	copied := make([]ConversationTurn, len(history))
	copy(copied, history)

	return &WorkflowState{
		ID:        uuid.New().String(),
		RequestID: uuid.New().String(),
		Query:     query,
		History:   copied,
		Status:    WorkflowStatusPending,
		StartTime: time.Now(),
	}
}

func (state *WorkflowState) MarkCompleted() {
	state.Status = WorkflowStatusCompleted
	now := time.Now()
	state.EndTime = &now
}

func (state *WorkflowState) MarkFailed(err error) {
	state.Status = WorkflowStatusFailed
	state.Err = err
	now := time.Now()
	state.EndTime = &now
}

func (state *WorkflowState) RecordStage(name string, status StageStatus, startTime time.Time) {
	now := time.Now()
	state.Stages = append(state.Stages, StageStats{
		Name:      name,
		Status:    status,
		Duration:  now.Sub(startTime),
		StartTime: startTime,
		EndTime:   now,
	})
}

// StageNames returns the executed stage names in order.
func (state *WorkflowState) StageNames() []string {
	names := make([]string, len(state.Stages))
	for i, stage := range state.Stages {
		names[i] = stage.Name
	}
	return names
}

// NewTurns returns the user/assistant pair this invocation produced. The
// session layer appends these to its own history; the workflow itself never
// mutates caller-owned state.
func (state *WorkflowState) NewTurns() []ConversationTurn {
	return []ConversationTurn{
		{Role: RoleUser, Content: state.Query},
		{Role: RoleAssistant, Content: state.FinalResponse},
	}
}

func (state *WorkflowState) GetDuration() time.Duration {
	if state.EndTime != nil {
		return state.EndTime.Sub(state.StartTime)
	}
	return time.Since(state.StartTime)
}

func GenerateRequestID() string {
	return uuid.New().String()
}

func GenerateSessionID() string {
	return uuid.New().String()
}
