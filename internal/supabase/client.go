package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/christopherklint97/gigcal/internal/project"
)

// Client reads projects and users through the PostgREST API of a Supabase
// project.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	backoff    func(attempt int) time.Duration
}

func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/") + "/rest/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:  logger,
		backoff: backoff,
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	c.logger.Debug("supabase API request", "method", method, "path", path)

	var resp *http.Response
	maxRetries := 3
	requestStart := time.Now()
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, u, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if attempt == maxRetries || ctx.Err() != nil {
				c.logger.Error("API request transport error", "method", method, "path", path, "error", err, "elapsed", time.Since(requestStart))
				return nil, fmt.Errorf("sending request: %w", err)
			}
			c.logger.Debug("API request transport error, retrying", "method", method, "path", path, "attempt", attempt+1, "error", err)
			if err := c.wait(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				c.logger.Error("API request failed after retries", "method", method, "path", path, "status", resp.StatusCode, "attempts", maxRetries+1, "elapsed", time.Since(requestStart))
				return nil, fmt.Errorf("API returned status %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.logger.Debug("API request retryable error", "method", method, "path", path, "status", resp.StatusCode, "attempt", attempt+1)
			if err := c.wait(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("supabase API response", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(respBody), "elapsed", time.Since(requestStart))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("API request failed", "method", method, "path", path, "status", resp.StatusCode, "response", truncate(string(respBody), 200))
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	return respBody, nil
}

func (c *Client) wait(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.backoff(attempt)):
		return nil
	}
}

func backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// FetchProjects returns non-deleted projects touching [start, end], ordered
// by start date.
func (c *Client) FetchProjects(ctx context.Context, start, end time.Time) ([]project.Project, error) {
	s := start.UTC().Format(time.RFC3339)
	e := end.UTC().Format(time.RFC3339)

	query := url.Values{
		"select":     {"*"},
		"deleted_at": {"is.null"},
		"start_date": {"lte." + e},
		"or":         {fmt.Sprintf("(end_date.gte.%s,and(end_date.is.null,start_date.gte.%s))", s, s)},
		"order":      {"start_date.asc"},
	}

	data, err := c.doRequest(ctx, http.MethodGet, "/projects", query)
	if err != nil {
		return nil, fmt.Errorf("getting projects: %w", err)
	}

	var rows []projectRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing projects response: %w", err)
	}

	projects := make([]project.Project, 0, len(rows))
	for _, r := range rows {
		p, err := r.toProject()
		if err != nil {
			c.logger.Debug("skipping project with unparseable dates", "id", r.ID, "error", err)
			continue
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// FetchUsers returns the users with the given IDs in one request.
func (c *Client) FetchUsers(ctx context.Context, ids []string) ([]project.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := url.Values{
		"select": {"id,full_name,email,company_name"},
		"id":     {"in.(" + strings.Join(ids, ",") + ")"},
	}

	data, err := c.doRequest(ctx, http.MethodGet, "/users", query)
	if err != nil {
		return nil, fmt.Errorf("getting users: %w", err)
	}

	var users []project.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("parsing users response: %w", err)
	}
	return users, nil
}
