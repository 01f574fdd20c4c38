// Package maps queries the Google Places web service for prospecting.
package maps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	apphttp "fieldsales-workers/internal/common/http"
)

var ErrPlacesRequest = errors.New("places request failed")

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l LatLng) String() string {
	return strconv.FormatFloat(l.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(l.Lng, 'f', 6, 64)
}

// Bias narrows autocomplete results around a point.
type Bias struct {
	Location     LatLng
	RadiusMeters int
}

type Prediction struct {
	PlaceID       string `json:"placeId"`
	Description   string `json:"description"`
	MainText      string `json:"mainText"`
	SecondaryText string `json:"secondaryText"`
}

type Place struct {
	PlaceID        string  `json:"placeId"`
	Name           string  `json:"name"`
	Vicinity       string  `json:"vicinity"`
	Location       LatLng  `json:"location"`
	Rating         float64 `json:"rating,omitempty"`
	BusinessStatus string  `json:"businessStatus,omitempty"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *apphttp.Client
	limiter *rate.Limiter
}

// NewClient limits outgoing requests to rps with a burst of one second's worth.
func NewClient(baseURL, apiKey string, rps float64, timeout time.Duration) *Client {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http:    apphttp.NewClient(timeout),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

type autocompleteResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Predictions  []struct {
		PlaceID              string `json:"place_id"`
		Description          string `json:"description"`
		StructuredFormatting struct {
			MainText      string `json:"main_text"`
			SecondaryText string `json:"secondary_text"`
		} `json:"structured_formatting"`
	} `json:"predictions"`
}

func (c *Client) Autocomplete(ctx context.Context, input string, bias *Bias) ([]Prediction, error) {
	q := url.Values{}
	q.Set("input", input)
	if bias != nil {
		q.Set("location", bias.Location.String())
		q.Set("radius", strconv.Itoa(bias.RadiusMeters))
	}

	var resp autocompleteResponse
	if err := c.get(ctx, "autocomplete", q, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}

	out := make([]Prediction, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		out = append(out, Prediction{
			PlaceID:       p.PlaceID,
			Description:   p.Description,
			MainText:      p.StructuredFormatting.MainText,
			SecondaryText: p.StructuredFormatting.SecondaryText,
		})
	}
	return out, nil
}

type nearbyResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		PlaceID        string  `json:"place_id"`
		Name           string  `json:"name"`
		Vicinity       string  `json:"vicinity"`
		Rating         float64 `json:"rating"`
		BusinessStatus string  `json:"business_status"`
		Geometry       struct {
			Location LatLng `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (c *Client) NearbySearch(ctx context.Context, location LatLng, radiusMeters int, keyword string) ([]Place, error) {
	q := url.Values{}
	q.Set("location", location.String())
	q.Set("radius", strconv.Itoa(radiusMeters))
	if keyword != "" {
		q.Set("keyword", keyword)
	}

	var resp nearbyResponse
	if err := c.get(ctx, "nearbysearch", q, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}

	out := make([]Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, Place{
			PlaceID:        r.PlaceID,
			Name:           r.Name,
			Vicinity:       r.Vicinity,
			Location:       r.Geometry.Location,
			Rating:         r.Rating,
			BusinessStatus: r.BusinessStatus,
		})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("places rate limit: %w", err)
	}
	q.Set("key", c.apiKey)
	target := fmt.Sprintf("%s/%s/json?%s", c.baseURL, endpoint, q.Encode())
	if err := c.http.DoJSON(ctx, http.MethodGet, target, nil, nil, out); err != nil {
		return fmt.Errorf("%w: %w", ErrPlacesRequest, err)
	}
	return nil
}

func checkStatus(status, message string) error {
	switch status {
	case "OK", "ZERO_RESULTS":
		return nil
	default:
		return fmt.Errorf("%w: status %s %s", ErrPlacesRequest, status, message)
	}
}
