package sportsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"sportsbook/internal/models"
)

// Client fetches event state from the sports data API. Everything it returns
// is treated as untrusted and possibly stale by the callers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type fixture struct {
	FixtureID string `json:"fixture_id"`
	Status    string `json:"status"`
	Elapsed   *int   `json:"elapsed"`
	Kickoff   string `json:"kickoff"` // RFC3339
}

type fixturesResponse struct {
	Fixtures []fixture `json:"fixtures"`
}

type resultResponse struct {
	FixtureID string `json:"fixture_id"`
	Finished  bool   `json:"finished"`
	Winner    string `json:"winner"`
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// GetLiveEvents fetches all in-play fixtures for a sport.
func (c *Client) GetLiveEvents(ctx context.Context, sport string) ([]models.EventEntry, error) {
	url := fmt.Sprintf("%s/fixtures?sport=%s&live=all", c.baseURL, sport)
	resp, err := c.getFixtures(ctx, url)
	if err != nil {
		return nil, err
	}
	return toEntries(resp.Fixtures, models.EventSourceLive), nil
}

// GetUpcomingEvents fetches scheduled fixtures for a sport.
func (c *Client) GetUpcomingEvents(ctx context.Context, sport string) ([]models.EventEntry, error) {
	url := fmt.Sprintf("%s/fixtures?sport=%s&status=scheduled", c.baseURL, sport)
	resp, err := c.getFixtures(ctx, url)
	if err != nil {
		return nil, err
	}
	return toEntries(resp.Fixtures, models.EventSourceUpcoming), nil
}

// GetEventResult fetches the final result for a fixture.
func (c *Client) GetEventResult(ctx context.Context, eventID string) (*models.EventResult, error) {
	url := fmt.Sprintf("%s/fixtures/%s/result", c.baseURL, eventID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.addHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sports feed API error: %d - %s", resp.StatusCode, string(body))
	}

	var result resultResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &models.EventResult{
		EventID:  result.FixtureID,
		Finished: result.Finished,
		Outcome:  result.Winner,
	}, nil
}

func (c *Client) getFixtures(ctx context.Context, url string) (*fixturesResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.addHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fixtures: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sports feed API error: %d - %s", resp.StatusCode, string(body))
	}

	var result fixturesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
}

func toEntries(fixtures []fixture, source models.EventSource) []models.EventEntry {
	entries := make([]models.EventEntry, 0, len(fixtures))
	for _, f := range fixtures {
		kickoff, err := time.Parse(time.RFC3339, f.Kickoff)
		if err != nil {
			// Skip fixtures with unparseable kickoff times rather than
			// admitting events we cannot reason about.
			continue
		}
		entries = append(entries, models.EventEntry{
			EventID:   f.FixtureID,
			Source:    source,
			Elapsed:   f.Elapsed,
			StartTime: kickoff,
		})
	}
	return entries
}
