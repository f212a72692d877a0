package services

import (
	"testing"

	"newsgenie/internal/models"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want models.Classification
	}{
		{
			name: "plain json",
			raw:  `{"is_news_request": true, "confidence": 0.85, "reasoning": "asks about current events"}`,
			want: models.Classification{IsNewsRequest: true, Confidence: 0.85, Reasoning: "asks about current events"},
		},
		{
			name: "json code fence",
			raw:  "```json\n{\"is_news_request\": true, \"confidence\": 0.7, \"reasoning\": \"news\"}\n```",
			want: models.Classification{IsNewsRequest: true, Confidence: 0.7, Reasoning: "news"},
		},
		{
			name: "bare code fence",
			raw:  "```\n{\"is_news_request\": false, \"confidence\": 0.9, \"reasoning\": \"general\"}\n```",
			want: models.Classification{IsNewsRequest: false, Confidence: 0.9, Reasoning: "general"},
		},
		{
			name: "surrounding whitespace",
			raw:  "  \n{\"is_news_request\": false, \"confidence\": 0.2, \"reasoning\": \"chat\"}\n  ",
			want: models.Classification{IsNewsRequest: false, Confidence: 0.2, Reasoning: "chat"},
		},
		{
			name: "confidence clamped high",
			raw:  `{"is_news_request": true, "confidence": 1.7, "reasoning": "over"}`,
			want: models.Classification{IsNewsRequest: true, Confidence: 1, Reasoning: "over"},
		},
		{
			name: "confidence clamped low",
			raw:  `{"is_news_request": true, "confidence": -0.3, "reasoning": "under"}`,
			want: models.Classification{IsNewsRequest: true, Confidence: 0, Reasoning: "under"},
		},
		{
			name: "missing reasoning keeps parsed values",
			raw:  `{"is_news_request": true, "confidence": 0.8}`,
			want: models.Classification{IsNewsRequest: true, Confidence: 0.8, Reasoning: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseClassification(tt.raw)
			if *got != tt.want {
				t.Errorf("parseClassification(%q) = %+v, want %+v", tt.raw, *got, tt.want)
			}
		})
	}
}

func TestParseClassificationFallsBack(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace only", "   \n  "},
		{"not json", "Sure! Here is my analysis: the query is about news."},
		{"truncated json", `{"is_news_request": true, "confi`},
		{"missing is_news_request", `{"confidence": 0.8, "reasoning": "x"}`},
		{"missing confidence", `{"is_news_request": true, "reasoning": "x"}`},
		{"wrong types", `{"is_news_request": "yes", "confidence": "high"}`},
		{"empty fence", "```json\n```"},
	}

	want := models.DefaultClassification()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseClassification(tt.raw)
			if *got != *want {
				t.Errorf("parseClassification(%q) = %+v, want default %+v", tt.raw, *got, *want)
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
		{"", ""},
	}

	for _, tt := range tests {
		if got := stripCodeFence(tt.raw); got != tt.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestDetectCategoryFirstMatchWins(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"technology news please", "technology"},
		{"Business and sports roundup", "business"},
		{"HEALTH updates", "health"},
		{"tell me a joke", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := detectCategory(tt.query); got != tt.want {
			t.Errorf("detectCategory(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}
