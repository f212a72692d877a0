package services_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"newsgenie/internal/config"
	"newsgenie/internal/models"
	"newsgenie/internal/services"
)

func newNewsService(t *testing.T, baseURL string) *services.NewsService {
	t.Helper()
	service, err := services.NewNewsService(config.NewsConfig{
		APIKey:   "test-key",
		BaseURL:  baseURL,
		Country:  "us",
		PageSize: 10,
		Timeout:  5 * time.Second,
	}, newTestLogger(t))
	if err != nil {
		t.Fatalf("failed to build news service: %v", err)
	}
	return service
}

func TestNewNewsServiceRequiresAPIKey(t *testing.T) {
	_, err := services.NewNewsService(config.NewsConfig{}, newTestLogger(t))
	if err == nil {
		t.Fatal("expected an error for a missing API key")
	}
}

func TestFetchTopHeadlinesNormalizesArticles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("X-Api-Key = %q, want test-key", got)
		}
		if got := r.URL.Query().Get("category"); got != "technology" {
			t.Errorf("category = %q, want technology", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "ok",
			"totalResults": 2,
			"articles": [
				{
					"source": {"name": "TechWire"},
					"title": "Chips get faster",
					"description": "A new fabrication process.",
					"url": "https://techwire.example/chips",
					"publishedAt": "2025-06-01T10:00:00Z"
				},
				{
					"source": {"name": ""},
					"title": "",
					"description": "",
					"url": "https://example.com/bare",
					"publishedAt": "not-a-date"
				}
			]
		}`))
	}))
	defer server.Close()

	result := newNewsService(t, server.URL).FetchTopHeadlines(context.Background(), "technology", "", 5)

	if !result.Succeeded() {
		t.Fatalf("expected success, got %s: %s", result.Status, result.Message)
	}
	if len(result.Items) != 2 || result.TotalCount != 2 {
		t.Fatalf("items = %d, total = %d", len(result.Items), result.TotalCount)
	}

	first := result.Items[0]
	if first.Title != "Chips get faster" || first.Source != "TechWire" {
		t.Errorf("unexpected first item: %+v", first)
	}
	if first.PublishedAt == nil {
		t.Error("expected publishedAt to be parsed")
	}

	second := result.Items[1]
	if second.Title != "No title" || second.Snippet != "No description available" || second.Source != "Unknown" {
		t.Errorf("missing fields not normalized: %+v", second)
	}
	if second.PublishedAt != nil {
		t.Errorf("unparseable publishedAt should stay nil, got %v", second.PublishedAt)
	}
}

func TestFetchTopHeadlinesRejectsUnknownCategory(t *testing.T) {
	service := newNewsService(t, "http://127.0.0.1:1")

	result := service.FetchTopHeadlines(context.Background(), "astrology", "", 5)

	if result.Status != models.RetrievalStatusError {
		t.Fatalf("expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.Message, "astrology") || !strings.Contains(result.Message, "technology") {
		t.Errorf("error message should name the bad category and the valid options: %q", result.Message)
	}
}

func TestNewsSearchSendsDateWindow(t *testing.T) {
	var query, from, sortBy string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("q")
		from = r.URL.Query().Get("from")
		sortBy = r.URL.Query().Get("sortBy")
		w.Write([]byte(`{"status": "ok", "totalResults": 0, "articles": []}`))
	}))
	defer server.Close()

	result := newNewsService(t, server.URL).Search(context.Background(), "fusion energy", 5, 0)

	if !result.Succeeded() {
		t.Fatalf("expected success, got %s: %s", result.Status, result.Message)
	}
	if query != "fusion energy" {
		t.Errorf("q = %q", query)
	}
	if sortBy != "publishedAt" {
		t.Errorf("sortBy = %q", sortBy)
	}
	wantFrom := time.Now().Add(-7 * 24 * time.Hour).Format("2006-01-02")
	if from != wantFrom {
		t.Errorf("from = %q, want %q", from, wantFrom)
	}
}

func TestNewsSearchRejectsEmptyQuery(t *testing.T) {
	service := newNewsService(t, "http://127.0.0.1:1")

	result := service.Search(context.Background(), "   ", 5, 0)

	if result.Status != models.RetrievalStatusError {
		t.Fatalf("expected error status, got %s", result.Status)
	}
}

func TestNewsRequestFailuresBecomeErrorResults(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "api error payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"status": "error", "code": "apiKeyInvalid", "message": "Your API key is invalid"}`))
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"status": "error", "message": "upstream down"}`))
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json at all`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			result := newNewsService(t, server.URL).FetchTopHeadlines(context.Background(), "general", "", 5)

			if result.Status != models.RetrievalStatusError {
				t.Fatalf("expected error status, got %s", result.Status)
			}
			if result.Message == "" {
				t.Error("error result should carry a message")
			}
			if len(result.Items) != 0 {
				t.Errorf("error result should carry no items, got %d", len(result.Items))
			}
		})
	}
}

func TestNewsRequestTransportErrorBecomesErrorResult(t *testing.T) {
	// Unroutable address, the request fails before any response.
	result := newNewsService(t, "http://127.0.0.1:1").FetchTopHeadlines(context.Background(), "general", "", 5)

	if result.Status != models.RetrievalStatusError {
		t.Fatalf("expected error status, got %s", result.Status)
	}
}
