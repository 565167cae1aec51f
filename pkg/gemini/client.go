package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/chayanin/tripvote-service/internal/service"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"
)

var (
	ErrMissingAPIKey = errors.New("gemini API key is not configured")
	ErrNoPlaces      = errors.New("no places provided for itinerary generation")
)

// Client calls the Generative Language API to turn an aggregated vote list
// into a structured itinerary. Implements service.ItineraryGenerator.
type Client struct {
	BaseURL string
	Model   string

	apiKey     string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL:    defaultBaseURL,
		Model:      defaultModel,
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *Client) Generate(ctx context.Context, places []service.AggregatedPlace) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if len(places) == 0 {
		return nil, ErrNoPlaces
	}

	prompt, err := buildTourGuidePrompt(places)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	body, err := json.Marshal(generateContentRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.BaseURL, c.Model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call gemini: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, raw)
	}

	var parsed generateContentResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("gemini returned no candidates")
	}

	return parseItinerary(parsed.Candidates[0].Content.Parts[0].Text)
}

func buildTourGuidePrompt(places []service.AggregatedPlace) (string, error) {
	placesJSON, err := json.MarshalIndent(places, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are an expert local tour guide with deep knowledge of culture, transportation, and optimal travel routes.\n\n")
	b.WriteString("A group of travelers has voted on places they want to visit. Create the perfect one-day itinerary.\n\n")
	b.WriteString("VOTED PLACES:\n")
	b.Write(placesJSON)
	b.WriteString(`

YOUR TASKS:
1. Reorder the places to minimize travel time and create a logical geographic flow
2. Suggest 2-3 additional places that complement the group's interests
3. For each transition, specify transportation method, duration, line/route and approximate cost
4. Recommend how long to spend at each location
5. Add expert tips, best times to visit and cultural notes

RESPONSE FORMAT (JSON):
{
  "itinerary": [
    {
      "place": {"id": "...", "name": "...", "location": {"lat": 0, "lng": 0}, "description": "...", "tags": [], "votes": 0, "isAiSuggestion": false},
      "timeAllocation": "1-2 hours",
      "recommendedTime": "Morning (9-11 AM)",
      "tourGuideInsight": "...",
      "commuteToNext": {"method": "...", "duration": "...", "details": "...", "cost": "..."}
    }
  ],
  "overview": "...",
  "totalEstimatedTime": "...",
  "totalEstimatedCost": "..."
}

IMPORTANT:
- Return ONLY valid JSON, no markdown formatting or code blocks
- For suggestions, set "isAiSuggestion": true and use "id": "NEW_1", "NEW_2", etc.
- The last place should have "commuteToNext": null`)

	return b.String(), nil
}

// parseItinerary extracts the itinerary JSON from the model's text output,
// tolerating markdown code fences, and fails loudly on anything malformed.
func parseItinerary(text string) (json.RawMessage, error) {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var check struct {
		Itinerary []json.RawMessage `json:"itinerary"`
	}
	if err := json.Unmarshal([]byte(clean), &check); err != nil {
		return nil, fmt.Errorf("parse itinerary: %w", err)
	}
	if len(check.Itinerary) == 0 {
		return nil, errors.New("itinerary is missing or empty")
	}

	return json.RawMessage(clean), nil
}
