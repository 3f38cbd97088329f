package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jmelwick/rove/schema"
)

// DefaultSearchEndpoint is the Tavily search API.
const DefaultSearchEndpoint = "https://api.tavily.com/search"

const (
	defaultMaxResults = 5
	// Per-result content cap, so one verbose page cannot flood the
	// observation.
	defaultMaxContentChars = 8000
)

// Search queries a Tavily-compatible web search API.
type Search struct {
	apiKey     string
	endpoint   string
	maxResults int
	maxChars   int
	httpClient *http.Client
}

// NewSearch creates the search tool with the given API key.
func NewSearch(apiKey string) *Search {
	return &Search{
		apiKey:     apiKey,
		endpoint:   DefaultSearchEndpoint,
		maxResults: defaultMaxResults,
		maxChars:   defaultMaxContentChars,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithEndpoint points the tool at a different Tavily-compatible endpoint.
func (t *Search) WithEndpoint(url string) *Search {
	t.endpoint = url
	return t
}

// WithMaxResults sets the default result count.
func (t *Search) WithMaxResults(n int) *Search {
	t.maxResults = n
	return t
}

// WithHTTPClient replaces the HTTP client.
func (t *Search) WithHTTPClient(c *http.Client) *Search {
	t.httpClient = c
	return t
}

func (t *Search) Name() string { return "search" }

func (t *Search) Description() string {
	return "Search the web for information using a search engine."
}

func (t *Search) ParameterSchema() map[string]any {
	return schema.Object(map[string]*schema.Property{
		"query":       schema.String("The search query"),
		"max_results": schema.Integer("Maximum number of results").Min(1).Max(20).Default(defaultMaxResults),
	}, "query")
}

type searchRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
}

type searchResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (t *Search) Execute(ctx context.Context, args map[string]string) (string, error) {
	query := strings.TrimSpace(args["query"])
	if query == "" {
		query = strings.TrimSpace(args["input"])
	}
	if query == "" {
		return "", fmt.Errorf("no search query provided")
	}
	if t.apiKey == "" {
		return "", fmt.Errorf("search API key is not configured")
	}

	maxResults := t.maxResults
	if raw := args["max_results"]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			maxResults = n
		}
	}

	body, err := json.Marshal(searchRequest{
		APIKey:        t.apiKey,
		Query:         query,
		MaxResults:    maxResults,
		IncludeAnswer: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}
	if len(parsed.Results) == 0 && parsed.Answer == "" {
		return fmt.Sprintf("No results found for %q", query), nil
	}

	return t.formatResults(query, &parsed), nil
}

func (t *Search) formatResults(query string, resp *searchResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Search results for %q:\n", query)
	if resp.Answer != "" {
		fmt.Fprintf(&sb, "\nAnswer: %s\n", resp.Answer)
	}
	for i, r := range resp.Results {
		title := r.Title
		if title == "" {
			title = r.URL
		}
		fmt.Fprintf(&sb, "\n%d. %s\n   %s\n", i+1, title, r.URL)
		if r.Content != "" {
			fmt.Fprintf(&sb, "   %s\n", truncate(r.Content, t.maxChars))
		}
	}
	return sb.String()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "... [truncated]"
}
