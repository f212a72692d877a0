package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/sony/gobreaker"

	"newsgenie/internal/config"
	"newsgenie/internal/models"
	"newsgenie/internal/pkg/logger"
)

// WebSearchService scrapes the DuckDuckGo HTML endpoint for general web
// results. It is the best-effort fallback collaborator: every failure mode,
// including an open circuit breaker, is absorbed into an error-status result.
type WebSearchService struct {
	collector *colly.Collector
	breaker   *gobreaker.CircuitBreaker
	config    config.WebSearchConfig
	logger    *logger.Logger
}

func NewWebSearchService(cfg config.WebSearchConfig, log *logger.Logger) (*WebSearchService, error) {
	collector := colly.NewCollector(
		colly.UserAgent("NewsGenie/1.0 (news assistant; respectful crawler)"),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "web_search",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	log.Info("Web search service initialized",
		"base_url", cfg.BaseURL,
		"max_results", cfg.MaxResults)

	return &WebSearchService{
		collector: collector,
		breaker:   breaker,
		config:    cfg,
		logger:    log,
	}, nil
}

// Search runs a free-text web search and returns up to maxResults snippets.
func (service *WebSearchService) Search(ctx context.Context, query string, maxResults int) *models.RetrievalResult {
	startTime := time.Now()

	if strings.TrimSpace(query) == "" {
		return models.NewErrorResult("search query cannot be empty")
	}
	if maxResults <= 0 {
		maxResults = service.config.MaxResults
	}

	result, err := service.breaker.Execute(func() (interface{}, error) {
		return service.scrape(ctx, query, maxResults)
	})

	items, _ := result.([]models.Item)

	service.logger.LogService("websearch", "search", time.Since(startTime), map[string]any{
		"query":         query,
		"results_found": len(items),
		"breaker_state": service.breaker.State().String(),
	}, err)

	if err != nil {
		return models.NewErrorResult(fmt.Sprintf("web search failed: %v", err))
	}
	if len(items) == 0 {
		return models.NewSuccessResult(nil, 0, "no results found")
	}

	return models.NewSuccessResult(items, len(items),
		fmt.Sprintf("found %d results", len(items)))
}

func (service *WebSearchService) scrape(ctx context.Context, query string, maxResults int) ([]models.Item, error) {
	collector := service.collector.Clone()

	var items []models.Item
	var scrapeErr error

	collector.OnHTML("div.result", func(e *colly.HTMLElement) {
		if len(items) >= maxResults {
			return
		}

		link := e.DOM.Find("a.result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		snippet := selectionText(e.DOM.Find(".result__snippet").First())

		if title == "" || href == "" {
			return
		}

		resultURL := resolveResultURL(href)
		items = append(items, models.Item{
			Title:   title,
			Snippet: snippet,
			URL:     resultURL,
			Source:  hostOf(resultURL),
		})
	})

	collector.OnError(func(_ *colly.Response, err error) {
		scrapeErr = err
	})

	searchURL := fmt.Sprintf("%s?%s", strings.TrimSuffix(service.config.BaseURL, "?"),
		url.Values{"q": {query}}.Encode())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := collector.Visit(searchURL); err != nil {
		return nil, err
	}
	collector.Wait()

	if scrapeErr != nil {
		return nil, scrapeErr
	}
	return items, nil
}

func selectionText(selection *goquery.Selection) string {
	return strings.Join(strings.Fields(selection.Text()), " ")
}

// resolveResultURL unwraps DuckDuckGo's redirect links (the target sits in
// the uddg query parameter) and returns direct links unchanged.
func resolveResultURL(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "Unknown"
	}
	return parsed.Host
}

func (service *WebSearchService) HealthCheck(ctx context.Context) error {
	if service.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("web search circuit breaker is open")
	}
	return nil
}
