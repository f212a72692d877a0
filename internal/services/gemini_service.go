package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"newsgenie/internal/config"
	"newsgenie/internal/models"
	"newsgenie/internal/pkg/logger"
)

// systemPrompt frames every synthesis call. Classification uses its own
// single-shot prompt instead.
const systemPrompt = `You are NewsGenie, an intelligent AI assistant specialized in news aggregation and general conversation.

Your capabilities:
1. Answer general questions on any topic with helpful, accurate information
2. Help users find and understand news articles
3. Provide context and analysis for current events
4. Maintain engaging, friendly conversations

When users ask about news or current events, summarize key points clearly,
provide background and cite sources when discussing specific articles.
When users ask general questions, be helpful, accurate and conversational.

Always be informative, objective, and helpful.`

const classificationPromptTemplate = `Analyze this user query and determine if it's requesting news/current events or if it's a general question.

User query: "%s"

Respond with ONLY a JSON object in this exact format:
{
    "is_news_request": true or false,
    "confidence": 0.0 to 1.0,
    "reasoning": "brief explanation"
}

A query is news-related if it:
- Asks about current events, recent news, or breaking news
- Requests news in specific categories (business, tech, sports, etc.)
- Asks "what's happening" or "latest news"
- References recent/current events

A query is general if it:
- Asks for explanations, definitions, or how-to information
- Requests recommendations or advice
- Is conversational or personal
- Asks about historical facts or timeless information`

type GeminiService struct {
	client *genai.Client
	config config.GeminiConfig
	logger *logger.Logger
}

type generationRequest struct {
	Prompt      string
	SystemRole  string
	History     []models.ConversationTurn
	Temperature *float32
	MaxTokens   int32
}

func NewGeminiService(cfg config.GeminiConfig, log *logger.Logger) (*GeminiService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("Gemini API key required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	log.Info("Gemini service initialized",
		"model", cfg.Model,
		"max_tokens", cfg.MaxTokens,
		"temperature", cfg.Temperature)

	return &GeminiService{
		client: client,
		config: cfg,
		logger: log,
	}, nil
}

// ClassifyQuery asks the model for the strict 3-field JSON judgment. It
// never returns an error: any model or parse failure degrades to the default
// classification, which routes the query to the general path.
func (service *GeminiService) ClassifyQuery(ctx context.Context, query string) *models.Classification {
	startTime := time.Now()

	temperature := float32(0.1)
	raw, err := service.generate(ctx, &generationRequest{
		Prompt:      fmt.Sprintf(classificationPromptTemplate, query),
		SystemRole:  "You are an expert query classifier for a news AI assistant.",
		Temperature: &temperature,
		MaxTokens:   250,
	})
	if err != nil {
		service.logger.LogService("gemini", "classify_query", time.Since(startTime), map[string]any{
			"query": query,
		}, err)
		return models.DefaultClassification()
	}

	classification := parseClassification(raw)

	service.logger.LogService("gemini", "classify_query", time.Since(startTime), map[string]any{
		"query":           query,
		"is_news_request": classification.IsNewsRequest,
		"confidence":      classification.Confidence,
	}, nil)

	return classification
}

// parseClassification turns the model's raw text into a Classification.
// Malformed output of any kind yields the default fallback value.
func parseClassification(raw string) *models.Classification {
	cleaned := stripCodeFence(raw)
	if cleaned == "" {
		return models.DefaultClassification()
	}

	var parsed struct {
		IsNewsRequest *bool    `json:"is_news_request"`
		Confidence    *float64 `json:"confidence"`
		Reasoning     string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return models.DefaultClassification()
	}
	if parsed.IsNewsRequest == nil || parsed.Confidence == nil {
		return models.DefaultClassification()
	}

	confidence := *parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &models.Classification{
		IsNewsRequest: *parsed.IsNewsRequest,
		Confidence:    confidence,
		Reasoning:     parsed.Reasoning,
	}
}

// stripCodeFence removes an optional markdown code fence wrapping the
// model's JSON output.
func stripCodeFence(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

// Chat issues one synthesis call with the full prior conversation as
// preceding turns and input as the final user message.
func (service *GeminiService) Chat(ctx context.Context, input string, history []models.ConversationTurn) (string, error) {
	startTime := time.Now()

	raw, err := service.generate(ctx, &generationRequest{
		Prompt:     input,
		SystemRole: systemPrompt,
		History:    history,
	})

	service.logger.LogService("gemini", "chat", time.Since(startTime), map[string]any{
		"input_length":    len(input),
		"history_turns":   len(history),
		"response_length": len(raw),
	}, err)

	if err != nil {
		return "", models.NewResponseError("GEMINI_CHAT_FAILED", "response generation failed").WithCause(err)
	}
	return raw, nil
}

func (service *GeminiService) generate(ctx context.Context, req *generationRequest) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, service.config.Timeout)
	defer cancel()

	genConfig := &genai.GenerateContentConfig{}

	if req.SystemRole != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.SystemRole, genai.RoleUser)
	}

	if req.Temperature != nil {
		genConfig.Temperature = req.Temperature
	} else {
		temperature := float32(service.config.Temperature)
		genConfig.Temperature = &temperature
	}

	if req.MaxTokens != 0 {
		genConfig.MaxOutputTokens = req.MaxTokens
	} else {
		genConfig.MaxOutputTokens = int32(service.config.MaxTokens)
	}

	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		role := genai.Role(genai.RoleUser)
		if turn.Role == models.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))

	result, err := service.client.Models.GenerateContent(genCtx, service.config.Model, contents, genConfig)
	if err != nil {
		if genCtx.Err() != nil {
			return "", models.NewTimeoutError("GEMINI_TIMEOUT", "generation timed out").WithCause(err)
		}
		return "", models.WrapExternalError("GEMINI", err)
	}

	if len(result.Candidates) == 0 {
		return "", models.NewExternalError("GEMINI_EMPTY", "no response candidates generated")
	}

	candidate := result.Candidates[0]
	text := ""
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			text += part.Text
		}
	}

	return text, nil
}

func (service *GeminiService) HealthCheck(ctx context.Context) error {
	testCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	temperature := float32(0)
	raw, err := service.generate(testCtx, &generationRequest{
		Prompt:      "Respond with 'OK' if you can process this request",
		Temperature: &temperature,
		MaxTokens:   10,
	})
	if err != nil {
		return fmt.Errorf("gemini health check failed: %w", err)
	}
	if raw == "" {
		return errors.New("gemini health check returned empty response")
	}
	return nil
}
