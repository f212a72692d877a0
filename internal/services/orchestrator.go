package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"newsgenie/internal/models"
	"newsgenie/internal/pkg/logger"
)

// Routing policy. The confidence comparison is strictly greater-than: a
// classification at exactly the threshold routes to the general path.
const (
	newsConfidenceThreshold = 0.6
	minNewsArticles         = 3
	newsFetchPageSize       = 5
	webSearchMaxResults     = 5
	maxNewsContextItems     = 5
	maxWebContextItems      = 3
)

// Stage names, in the order the pipeline can visit them.
const (
	StageClassify      = "classify_query"
	StageFetchNews     = "fetch_news"
	StageWebSearch     = "web_search"
	StageRespond       = "generate_response"
	StageHandleGeneral = "handle_general"
)

const apologyResponse = "I apologize, but I encountered a problem while answering your question. Please try again in a moment."

// LLMClient is the language-model collaborator boundary.
type LLMClient interface {
	// ClassifyQuery never fails: unusable model output degrades to the
	// default classification. A nil return is a contract violation.
	ClassifyQuery(ctx context.Context, query string) *models.Classification
	Chat(ctx context.Context, input string, history []models.ConversationTurn) (string, error)
	HealthCheck(ctx context.Context) error
}

// NewsRetriever is the news collaborator boundary. Both operations return
// the normalized result shape instead of raising.
type NewsRetriever interface {
	FetchTopHeadlines(ctx context.Context, category, country string, pageSize int) *models.RetrievalResult
	Search(ctx context.Context, query string, pageSize int, dateRange time.Duration) *models.RetrievalResult
	HealthCheck(ctx context.Context) error
}

// WebSearcher is the best-effort web-search collaborator boundary.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) *models.RetrievalResult
	HealthCheck(ctx context.Context) error
}

// Orchestrator sequences one query through the routing pipeline:
//
//	classify_query → fetch_news → (web_search) → generate_response
//	              ↘ handle_general
//
// Collaborators are injected at construction; the orchestrator holds no
// other state and is safe for concurrent invocations.
type Orchestrator struct {
	llm    LLMClient
	news   NewsRetriever
	web    WebSearcher
	logger *logger.Logger
}

func NewOrchestrator(llm LLMClient, news NewsRetriever, web WebSearcher, log *logger.Logger) *Orchestrator {
	log.Info("Orchestrator initialized",
		"confidence_threshold", newsConfidenceThreshold,
		"min_news_articles", minNewsArticles)

	return &Orchestrator{
		llm:    llm,
		news:   news,
		web:    web,
		logger: log,
	}
}

// Run executes the full pipeline for one user turn. It always returns a
// terminal WorkflowState and never propagates an error past its boundary:
// total failure yields an apology response with Err set. The caller's
// history slice is copied up front and never mutated.
func (orchestrator *Orchestrator) Run(ctx context.Context, query string, history []models.ConversationTurn) *models.WorkflowState {
	state := models.NewWorkflowState(query, history)

	orchestrator.logger.LogWorkflow(state.ID, "", "workflow_started", 0, nil)

	orchestrator.classify(ctx, state)

	var fatal error
	if shouldFetchNews(state.Classification) {
		fatal = orchestrator.fetchNews(ctx, state)
		if fatal == nil {
			if needsWebFallback(state.NewsResult) {
				orchestrator.webSearchFallback(ctx, state)
			}
			fatal = orchestrator.respond(ctx, state)
		}
	} else {
		fatal = orchestrator.handleGeneral(ctx, state)
	}

	if fatal != nil {
		state.FinalResponse = apologyResponse
		state.MarkFailed(fatal)
		orchestrator.logger.LogWorkflow(state.ID, "", "workflow_failed", state.GetDuration(), fatal)
		return state
	}

	state.MarkCompleted()
	orchestrator.logger.LogWorkflow(state.ID, "", "workflow_completed", state.GetDuration(), nil)
	return state
}

// shouldFetchNews is the first routing decision. A nil classification (the
// classify-stage failure case) behaves like the default fallback value and
// routes to the general path.
func shouldFetchNews(classification *models.Classification) bool {
	if classification == nil {
		return false
	}
	return classification.IsNewsRequest && classification.Confidence > newsConfidenceThreshold
}

// needsWebFallback is the second routing decision: supplement with web
// results when the news fetch failed or brought back too little material.
func needsWebFallback(newsResult *models.RetrievalResult) bool {
	if newsResult == nil || newsResult.Status == models.RetrievalStatusError {
		return true
	}
	return len(newsResult.Items) < minNewsArticles
}

func (orchestrator *Orchestrator) classify(ctx context.Context, state *models.WorkflowState) {
	startTime := time.Now()

	classification := orchestrator.llm.ClassifyQuery(ctx, state.Query)
	if classification == nil {
		// Contract violation by the collaborator. Leave Classification nil
		// so routing falls back to the general path, and keep the error for
		// diagnostics; it is never surfaced to the user.
		state.Err = models.NewClassificationError("CLASSIFIER_NO_RESULT", "classifier returned no result")
		state.RecordStage(StageClassify, models.StageStatusFailed, startTime)
		orchestrator.logger.LogStage(state.ID, StageClassify, time.Since(startTime), nil, state.Err)
		return
	}

	state.Classification = classification
	state.RecordStage(StageClassify, models.StageStatusCompleted, startTime)

	orchestrator.logger.LogStage(state.ID, StageClassify, time.Since(startTime), map[string]any{
		"is_news_request": classification.IsNewsRequest,
		"confidence":      classification.Confidence,
	}, nil)
}

// detectCategory scans the query for the fixed category vocabulary. The
// first category in enumeration order wins.
func detectCategory(query string) string {
	lowered := strings.ToLower(query)
	for _, category := range models.NewsCategories {
		if strings.Contains(lowered, category) {
			return category
		}
	}
	return ""
}

func (orchestrator *Orchestrator) fetchNews(ctx context.Context, state *models.WorkflowState) error {
	startTime := time.Now()

	var result *models.RetrievalResult
	category := detectCategory(state.Query)
	if category != "" {
		result = orchestrator.news.FetchTopHeadlines(ctx, category, "", newsFetchPageSize)
	} else {
		result = orchestrator.news.Search(ctx, state.Query, newsFetchPageSize, 0)
	}

	if result == nil {
		err := models.NewRetrievalError("NEWS_FETCH_NO_RESULT", "news retriever returned no result")
		state.Err = err
		state.RecordStage(StageFetchNews, models.StageStatusFailed, startTime)
		orchestrator.logger.LogStage(state.ID, StageFetchNews, time.Since(startTime), map[string]any{
			"category": category,
		}, err)
		return err
	}

	state.NewsResult = result

	stageStatus := models.StageStatusCompleted
	if !result.Succeeded() {
		stageStatus = models.StageStatusDegraded
	}
	state.RecordStage(StageFetchNews, stageStatus, startTime)

	orchestrator.logger.LogStage(state.ID, StageFetchNews, time.Since(startTime), map[string]any{
		"category":       category,
		"status":         string(result.Status),
		"articles_found": len(result.Items),
	}, nil)

	return nil
}

// webSearchFallback is strictly best-effort: every failure, including a nil
// result from the collaborator, is absorbed into an error-status result and
// the pipeline proceeds to response generation regardless.
func (orchestrator *Orchestrator) webSearchFallback(ctx context.Context, state *models.WorkflowState) {
	startTime := time.Now()

	result := orchestrator.web.Search(ctx, state.Query, webSearchMaxResults)
	if result == nil {
		result = models.NewErrorResult("web search returned no result")
	}
	state.WebResult = result

	stageStatus := models.StageStatusCompleted
	if !result.Succeeded() {
		stageStatus = models.StageStatusDegraded
	}
	state.RecordStage(StageWebSearch, stageStatus, startTime)

	orchestrator.logger.LogStage(state.ID, StageWebSearch, time.Since(startTime), map[string]any{
		"status":        string(result.Status),
		"results_found": len(result.Items),
	}, nil)
}

func (orchestrator *Orchestrator) respond(ctx context.Context, state *models.WorkflowState) error {
	startTime := time.Now()

	input := state.Query
	contextBlock := buildContextBlock(state.NewsResult, state.WebResult)
	if contextBlock != "" {
		input = fmt.Sprintf(`Based on the following information, please answer the user's question:

%s

User's question: %s

Please provide a helpful, informative response that synthesizes the information above.`, contextBlock, state.Query)
	}

	response, err := orchestrator.llm.Chat(ctx, input, state.History)
	if err != nil {
		state.RecordStage(StageRespond, models.StageStatusFailed, startTime)
		orchestrator.logger.LogStage(state.ID, StageRespond, time.Since(startTime), nil, err)
		return models.NewResponseError("RESPONSE_GENERATION_FAILED", "final synthesis failed").WithCause(err)
	}

	state.FinalResponse = response
	state.RecordStage(StageRespond, models.StageStatusCompleted, startTime)

	orchestrator.logger.LogStage(state.ID, StageRespond, time.Since(startTime), map[string]any{
		"context_present": contextBlock != "",
		"response_length": len(response),
	}, nil)

	return nil
}

func (orchestrator *Orchestrator) handleGeneral(ctx context.Context, state *models.WorkflowState) error {
	startTime := time.Now()

	response, err := orchestrator.llm.Chat(ctx, state.Query, state.History)
	if err != nil {
		state.RecordStage(StageHandleGeneral, models.StageStatusFailed, startTime)
		orchestrator.logger.LogStage(state.ID, StageHandleGeneral, time.Since(startTime), nil, err)
		return models.NewResponseError("RESPONSE_GENERATION_FAILED", "general response failed").WithCause(err)
	}

	state.FinalResponse = response
	state.RecordStage(StageHandleGeneral, models.StageStatusCompleted, startTime)

	orchestrator.logger.LogStage(state.ID, StageHandleGeneral, time.Since(startTime), map[string]any{
		"response_length": len(response),
	}, nil)

	return nil
}

// buildContextBlock assembles the retrieved context for the synthesis call.
// News results take priority and suppress web context entirely; at most one
// source contributes.
func buildContextBlock(newsResult, webResult *models.RetrievalResult) string {
	var builder strings.Builder

	if newsResult.Succeeded() && len(newsResult.Items) > 0 {
		builder.WriteString("Recent News Articles:\n")
		for i, item := range newsResult.Items {
			if i >= maxNewsContextItems {
				break
			}
			fmt.Fprintf(&builder, "%d. %s\n   Source: %s\n   %s\n   URL: %s\n",
				i+1, item.Title, item.Source, item.Snippet, item.URL)
		}
		return builder.String()
	}

	if webResult.Succeeded() && len(webResult.Items) > 0 {
		builder.WriteString("Additional Information:\n")
		for i, item := range webResult.Items {
			if i >= maxWebContextItems {
				break
			}
			fmt.Fprintf(&builder, "%d. %s\n   %s\n   URL: %s\n",
				i+1, item.Title, item.Snippet, item.URL)
		}
		return builder.String()
	}

	return ""
}

// HealthCheck fans over the collaborators and reports the first failure.
func (orchestrator *Orchestrator) HealthCheck(ctx context.Context) error {
	checks := map[string]func(context.Context) error{
		"gemini":    orchestrator.llm.HealthCheck,
		"news":      orchestrator.news.HealthCheck,
		"websearch": orchestrator.web.HealthCheck,
	}

	for name, check := range checks {
		if err := check(ctx); err != nil {
			return fmt.Errorf("collaborator %s unhealthy: %w", name, err)
		}
	}
	return nil
}
