// Package weather looks up current and forecast conditions and turns them
// into an indoor/outdoor advisory.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/klamlamwork/playroom/internal/model"
	"github.com/klamlamwork/playroom/pkg/metrics"
	"github.com/klamlamwork/playroom/pkg/tracing"
)

// DefaultBaseURL is the OpenWeatherMap API root.
const DefaultBaseURL = "https://api.openweathermap.org"

// ErrMalformed is returned for responses missing the condition data.
var ErrMalformed = errors.New("malformed weather response")

// Sample is one forecast point.
type Sample struct {
	Time      time.Time
	Condition string
}

// Config holds client settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client talks to the OpenWeatherMap current and forecast endpoints.
type Client struct {
	http    *http.Client
	apiKey  string
	baseURL string
}

// NewClient creates a client. Timeout bounds every call.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		apiKey:  cfg.APIKey,
		baseURL: base,
	}
}

// code accepts both the numeric and the string form of "cod".
type code string

func (c *code) UnmarshalJSON(b []byte) error {
	*c = code(strings.Trim(string(b), `"`))
	return nil
}

type condition struct {
	Main string `json:"main"`
}

type currentResponse struct {
	Cod     code        `json:"cod"`
	Weather []condition `json:"weather"`
}

type forecastResponse struct {
	Cod  code `json:"cod"`
	List []struct {
		Dt      int64       `json:"dt"`
		Weather []condition `json:"weather"`
	} `json:"list"`
}

// Current returns the condition label at the coordinates now.
func (c *Client) Current(ctx context.Context, at model.Coordinates) (string, error) {
	var resp currentResponse
	if err := c.get(ctx, "weather", at, &resp); err != nil {
		return "", err
	}
	if resp.Cod != "200" || len(resp.Weather) == 0 || resp.Weather[0].Main == "" {
		return "", ErrMalformed
	}
	return resp.Weather[0].Main, nil
}

// Forecast returns the forecast samples at the coordinates.
func (c *Client) Forecast(ctx context.Context, at model.Coordinates) ([]Sample, error) {
	var resp forecastResponse
	if err := c.get(ctx, "forecast", at, &resp); err != nil {
		return nil, err
	}
	if resp.Cod != "200" || len(resp.List) == 0 {
		return nil, ErrMalformed
	}
	samples := make([]Sample, 0, len(resp.List))
	for _, item := range resp.List {
		if len(item.Weather) == 0 {
			return nil, ErrMalformed
		}
		samples = append(samples, Sample{
			Time:      time.Unix(item.Dt, 0).UTC(),
			Condition: item.Weather[0].Main,
		})
	}
	return samples, nil
}

func (c *Client) get(ctx context.Context, endpoint string, at model.Coordinates, out any) (err error) {
	ctx, span := tracing.Tracer("playroom/weather").Start(ctx, "weather."+endpoint)
	defer span.End()
	span.SetAttributes(attribute.String("weather.endpoint", endpoint))

	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.RecordWeatherLookup(endpoint, result, time.Since(start).Seconds())
	}()

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(at.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(at.Longitude, 'f', -1, 64))
	q.Set("appid", c.apiKey)
	u := fmt.Sprintf("%s/data/2.5/%s?%s", c.baseURL, endpoint, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build weather request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("weather %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("weather %s returned status %d", endpoint, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode weather %s response: %w", endpoint, err)
	}
	return nil
}
