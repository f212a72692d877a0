package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"newsgenie/internal/config"
	"newsgenie/internal/models"
	"newsgenie/internal/pkg/logger"
)

// NewsService is the NewsAPI collaborator. Both operations always return the
// normalized RetrievalResult shape: transport, API and decode failures are
// converted into error-status results, never raised to the router.
type NewsService struct {
	httpClient *http.Client
	config     config.NewsConfig
	logger     *logger.Logger
}

type newsAPIResponse struct {
	Status       string `json:"status"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

func NewNewsService(cfg config.NewsConfig, log *logger.Logger) (*NewsService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("News API key required")
	}

	service := &NewsService{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     log,
	}

	log.Info("News service initialized",
		"base_url", cfg.BaseURL,
		"country", cfg.Country,
		"page_size", cfg.PageSize)

	return service, nil
}

// FetchTopHeadlines fetches headlines for one category of the fixed
// vocabulary. An unknown category is reported as an error-status result.
func (service *NewsService) FetchTopHeadlines(ctx context.Context, category, country string, pageSize int) *models.RetrievalResult {
	if category != "" && !validCategory(category) {
		return models.NewErrorResult(fmt.Sprintf(
			"invalid category %q, valid options: %s",
			category, strings.Join(models.NewsCategories, ", ")))
	}
	if country == "" {
		country = service.config.Country
	}
	if pageSize <= 0 {
		pageSize = service.config.PageSize
	}

	params := url.Values{}
	params.Set("country", country)
	params.Set("pageSize", strconv.Itoa(pageSize))
	if category != "" {
		params.Set("category", strings.ToLower(category))
	}

	return service.request(ctx, "top-headlines", params)
}

// Search runs a free-text query over everything published within dateRange
// (the last 7 days when zero), newest first.
func (service *NewsService) Search(ctx context.Context, query string, pageSize int, dateRange time.Duration) *models.RetrievalResult {
	if strings.TrimSpace(query) == "" {
		return models.NewErrorResult("search query cannot be empty")
	}
	if pageSize <= 0 {
		pageSize = service.config.PageSize
	}
	if dateRange <= 0 {
		dateRange = 7 * 24 * time.Hour
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("pageSize", strconv.Itoa(pageSize))
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("from", time.Now().Add(-dateRange).Format("2006-01-02"))
	params.Set("to", time.Now().Format("2006-01-02"))

	return service.request(ctx, "everything", params)
}

func (service *NewsService) request(ctx context.Context, endpoint string, params url.Values) *models.RetrievalResult {
	startTime := time.Now()
	requestURL := fmt.Sprintf("%s/%s?%s", strings.TrimSuffix(service.config.BaseURL, "/"), endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return models.NewErrorResult(fmt.Sprintf("failed to build news request: %v", err))
	}
	req.Header.Set("X-Api-Key", service.config.APIKey)

	resp, err := service.httpClient.Do(req)
	if err != nil {
		service.logger.LogService("newsapi", endpoint, time.Since(startTime), map[string]any{
			"params": params.Encode(),
		}, err)
		return models.NewErrorResult(fmt.Sprintf("news request failed: %v", err))
	}
	defer resp.Body.Close()

	var payload newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		service.logger.LogService("newsapi", endpoint, time.Since(startTime), nil, err)
		return models.NewErrorResult(fmt.Sprintf("failed to decode news response: %v", err))
	}

	if resp.StatusCode != http.StatusOK || payload.Status != "ok" {
		message := payload.Message
		if message == "" {
			message = fmt.Sprintf("news API returned status %d", resp.StatusCode)
		}
		service.logger.LogService("newsapi", endpoint, time.Since(startTime), map[string]any{
			"status_code": resp.StatusCode,
			"api_code":    payload.Code,
		}, errors.New(message))
		return models.NewErrorResult(message)
	}

	items := make([]models.Item, 0, len(payload.Articles))
	for _, article := range payload.Articles {
		items = append(items, normalizeArticle(
			article.Title, article.Description, article.URL,
			article.Source.Name, article.PublishedAt))
	}

	service.logger.LogService("newsapi", endpoint, time.Since(startTime), map[string]any{
		"articles_found": len(items),
		"total_results":  payload.TotalResults,
	}, nil)

	return models.NewSuccessResult(items, payload.TotalResults,
		fmt.Sprintf("found %d articles", len(items)))
}

func normalizeArticle(title, description, articleURL, source, publishedAt string) models.Item {
	if title == "" {
		title = "No title"
	}
	if description == "" {
		description = "No description available"
	}
	if source == "" {
		source = "Unknown"
	}

	item := models.Item{
		Title:   title,
		Snippet: description,
		URL:     articleURL,
		Source:  source,
	}
	if parsed, err := time.Parse(time.RFC3339, publishedAt); err == nil {
		item.PublishedAt = &parsed
	}
	return item
}

func validCategory(category string) bool {
	lowered := strings.ToLower(category)
	for _, known := range models.NewsCategories {
		if lowered == known {
			return true
		}
	}
	return false
}

func (service *NewsService) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result := service.FetchTopHeadlines(checkCtx, "", "", 1)
	if !result.Succeeded() {
		return fmt.Errorf("news health check failed: %s", result.Message)
	}
	return nil
}
