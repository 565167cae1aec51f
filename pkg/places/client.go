package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultBaseURL = "https://places.googleapis.com/v1/places:searchNearby"

var ErrMissingAPIKey = errors.New("google maps API key is not configured")

// Region is a preset search center.
type Region struct {
	Name string
	Lat  float64
	Lng  float64
}

var Regions = []Region{
	{Name: "Tokyo", Lat: 35.6762, Lng: 139.6503},
	{Name: "Kyoto", Lat: 35.0116, Lng: 135.7681},
	{Name: "Osaka", Lat: 34.6937, Lng: 135.5023},
}

// filterTypes maps app-level filters to Places API included types.
var filterTypes = map[string][]string{
	"vibe":            {"tourist_attraction", "amusement_park", "night_club"},
	"architecture":    {"church", "mosque", "synagogue", "hindu_temple"},
	"old-sightseeing": {"place_of_worship", "historical_landmark"},
	"nature":          {"park", "natural_feature"},
	"modern":          {"shopping_mall", "museum", "art_gallery"},
	"all":             {"tourist_attraction", "historical_landmark", "park", "museum"},
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is the normalized catalog record; the voting core treats it as opaque.
type Place struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Location    LatLng   `json:"location"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
	Image       string   `json:"image,omitempty"`
}

type SearchOptions struct {
	Filter string
	City   string
	Limit  int
	Center *LatLng
	Radius float64
}

type Client struct {
	BaseURL string

	apiKey     string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

// Search fetches points of interest around the requested center, or around
// the preset regions when no center is given.
func (c *Client) Search(ctx context.Context, opts SearchOptions) ([]Place, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	types, ok := filterTypes[opts.Filter]
	if !ok {
		types = filterTypes["all"]
	}
	limit := opts.Limit
	if limit <= 0 || limit > 60 {
		limit = 30
	}
	radius := opts.Radius
	if radius <= 0 {
		radius = 5000
	}

	if opts.Center != nil {
		return c.searchRegion(ctx, *opts.Center, types, limit, radius)
	}

	regions := Regions
	if opts.City != "" && !strings.EqualFold(opts.City, "all") {
		regions = nil
		for _, r := range Regions {
			if strings.EqualFold(r.Name, opts.City) {
				regions = append(regions, r)
			}
		}
		if len(regions) == 0 {
			return nil, fmt.Errorf("unknown city %q", opts.City)
		}
	}

	perRegion := (limit + len(regions) - 1) / len(regions)
	var all []Place
	for _, region := range regions {
		found, err := c.searchRegion(ctx, LatLng{Lat: region.Lat, Lng: region.Lng}, types, perRegion, radius)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", region.Name, err)
		}
		all = append(all, found...)
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

type searchNearbyRequest struct {
	IncludedTypes       []string `json:"includedTypes"`
	MaxResultCount      int      `json:"maxResultCount"`
	LocationRestriction struct {
		Circle struct {
			Center struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"center"`
			Radius float64 `json:"radius"`
		} `json:"circle"`
	} `json:"locationRestriction"`
}

type searchNearbyResponse struct {
	Places []struct {
		ID          string `json:"id"`
		DisplayName struct {
			Text string `json:"text"`
		} `json:"displayName"`
		Location struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
		Types            []string `json:"types"`
		EditorialSummary struct {
			Text string `json:"text"`
		} `json:"editorialSummary"`
		FormattedAddress string `json:"formattedAddress"`
		Photos           []struct {
			Name string `json:"name"`
		} `json:"photos"`
	} `json:"places"`
}

func (c *Client) searchRegion(ctx context.Context, center LatLng, types []string, limit int, radius float64) ([]Place, error) {
	if limit > 20 {
		limit = 20 // API maximum per request
	}

	var reqBody searchNearbyRequest
	reqBody.IncludedTypes = types
	reqBody.MaxResultCount = limit
	reqBody.LocationRestriction.Circle.Center.Latitude = center.Lat
	reqBody.LocationRestriction.Circle.Center.Longitude = center.Lng
	reqBody.LocationRestriction.Circle.Radius = radius

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask",
		"places.id,places.displayName,places.location,places.types,places.editorialSummary,places.formattedAddress,places.photos")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call places API: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places API returned status %d: %s", resp.StatusCode, raw)
	}

	var parsed searchNearbyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	places := make([]Place, 0, len(parsed.Places))
	for _, p := range parsed.Places {
		description := p.EditorialSummary.Text
		if description == "" {
			description = p.FormattedAddress
		}
		image := ""
		if len(p.Photos) > 0 {
			image = p.Photos[0].Name
		}
		places = append(places, Place{
			ID:          p.ID,
			Name:        p.DisplayName.Text,
			Location:    LatLng{Lat: p.Location.Latitude, Lng: p.Location.Longitude},
			Tags:        p.Types,
			Description: description,
			Image:       image,
		})
	}
	return places, nil
}
