package services_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"newsgenie/internal/config"
	"newsgenie/internal/models"
	"newsgenie/internal/services"
)

const searchResultsPage = `<!DOCTYPE html>
<html><body>
<div class="results">
	<div class="result">
		<a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgolang.example%2Fgenerics&amp;rut=abc">Go generics explained</a>
		<div class="result__snippet">A   practical
		introduction to type parameters.</div>
	</div>
	<div class="result">
		<a class="result__a" href="https://blog.example/post">Second result</a>
		<div class="result__snippet">Second snippet.</div>
	</div>
	<div class="result">
		<a class="result__a" href="https://third.example/page">Third result</a>
		<div class="result__snippet">Third snippet.</div>
	</div>
	<div class="result">
		<a class="result__a" href="">Broken entry</a>
	</div>
</div>
</body></html>`

func newWebSearchService(t *testing.T, baseURL string) *services.WebSearchService {
	t.Helper()
	service, err := services.NewWebSearchService(config.WebSearchConfig{
		BaseURL:    baseURL,
		MaxResults: 5,
		Timeout:    5 * time.Second,
	}, newTestLogger(t))
	if err != nil {
		t.Fatalf("failed to build web search service: %v", err)
	}
	return service
}

func TestWebSearchParsesResults(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, searchResultsPage)
	}))
	defer server.Close()

	result := newWebSearchService(t, server.URL).Search(context.Background(), "go generics", 5)

	if !result.Succeeded() {
		t.Fatalf("expected success, got %s: %s", result.Status, result.Message)
	}
	if gotQuery != "go generics" {
		t.Errorf("q = %q", gotQuery)
	}
	if len(result.Items) != 3 {
		t.Fatalf("items = %d, want 3 (entry without href must be skipped)", len(result.Items))
	}

	first := result.Items[0]
	if first.Title != "Go generics explained" {
		t.Errorf("title = %q", first.Title)
	}
	if first.URL != "https://golang.example/generics" {
		t.Errorf("redirect link not unwrapped: %q", first.URL)
	}
	if first.Source != "golang.example" {
		t.Errorf("source = %q", first.Source)
	}
	if first.Snippet != "A practical introduction to type parameters." {
		t.Errorf("snippet whitespace not normalized: %q", first.Snippet)
	}
}

func TestWebSearchRespectsMaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, searchResultsPage)
	}))
	defer server.Close()

	result := newWebSearchService(t, server.URL).Search(context.Background(), "go", 2)

	if !result.Succeeded() {
		t.Fatalf("expected success, got %s: %s", result.Status, result.Message)
	}
	if len(result.Items) != 2 {
		t.Errorf("items = %d, want 2", len(result.Items))
	}
}

func TestWebSearchEmptyQueryIsError(t *testing.T) {
	result := newWebSearchService(t, "http://127.0.0.1:1").Search(context.Background(), "  ", 5)

	if result.Status != models.RetrievalStatusError {
		t.Fatalf("expected error status, got %s", result.Status)
	}
}

func TestWebSearchNoMatchesIsEmptySuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="no-results">Nothing found</div></body></html>`)
	}))
	defer server.Close()

	result := newWebSearchService(t, server.URL).Search(context.Background(), "zxqv", 5)

	if !result.Succeeded() {
		t.Fatalf("expected success, got %s: %s", result.Status, result.Message)
	}
	if len(result.Items) != 0 {
		t.Errorf("items = %d, want 0", len(result.Items))
	}
}

func TestWebSearchServerErrorBecomesErrorResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	result := newWebSearchService(t, server.URL).Search(context.Background(), "anything", 5)

	if result.Status != models.RetrievalStatusError {
		t.Fatalf("expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.Message, "web search failed") {
		t.Errorf("message = %q", result.Message)
	}
}

func TestWebSearchBreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	service := newWebSearchService(t, server.URL)

	for i := 0; i < 5; i++ {
		result := service.Search(context.Background(), "anything", 5)
		if result.Status != models.RetrievalStatusError {
			t.Fatalf("call %d: expected error status", i)
		}
	}

	hitsBefore := hits
	result := service.Search(context.Background(), "anything", 5)
	if result.Status != models.RetrievalStatusError {
		t.Fatal("open breaker should still yield an error result, not a panic or success")
	}
	if hits != hitsBefore {
		t.Errorf("open breaker must fail fast without hitting the endpoint, hits %d -> %d", hitsBefore, hits)
	}
	if err := service.HealthCheck(context.Background()); err == nil {
		t.Error("health check should fail while the breaker is open")
	}
}

func TestWebSearchQueryIsEscaped(t *testing.T) {
	var rawQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		fmt.Fprint(w, `<html><body></body></html>`)
	}))
	defer server.Close()

	newWebSearchService(t, server.URL).Search(context.Background(), "a&b=c d", 5)

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		t.Fatalf("bad query string %q: %v", rawQuery, err)
	}
	if got := values.Get("q"); got != "a&b=c d" {
		t.Errorf("q = %q, want the original query round-tripped", got)
	}
}
