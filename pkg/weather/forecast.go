package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/logger"
)

// interface guards
var _ gate.ResourceProvider = &ForecastProvider{}
var _ gate.ParamValidator = &ForecastProvider{}

// ForecastProvider returns the current conditions block of a Forecast.io
// (Dark Sky API) forecast for "lat,lng".
type ForecastProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     logger.Logger
}

func NewForecastProvider(config gate.Config, log logger.Logger) *ForecastProvider {
	return &ForecastProvider{
		baseURL: strings.TrimRight(config.Weather.BaseURL, "/"),
		apiKey:  config.Weather.APIKey,
		client:  &http.Client{Timeout: time.Duration(config.Weather.TimeoutSec) * time.Second},
		log:     log,
	}
}

// ParseLatLng parses "lat,lng" in decimal degrees.
func ParseLatLng(params string) (lat, lng float64, err error) {
	latStr, lngStr, found := strings.Cut(strings.TrimSpace(params), ",")
	if !found {
		return 0, 0, gate.NewErr(gate.MalformedRequest, "expected 'lat,lng', got %q", params)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, gate.NewErr(gate.MalformedRequest, "invalid latitude %q", latStr)
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil || lng < -180 || lng > 180 {
		return 0, 0, gate.NewErr(gate.MalformedRequest, "invalid longitude %q", lngStr)
	}
	return lat, lng, nil
}

func (p *ForecastProvider) ValidateParams(params string) error {
	_, _, err := ParseLatLng(params)
	return err
}

func (p *ForecastProvider) Fetch(ctx context.Context, params string) ([]byte, error) {
	lat, lng, err := ParseLatLng(params)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/forecast/%s/%s,%s", p.baseURL, p.apiKey,
		strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lng, 'f', -1, 64))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := p.client.Do(req)
	if err != nil {
		p.log.Warn("forecast request failed", map[string]any{"error": err.Error()})
		return nil, gate.NewErr(gate.UpstreamUnavailable, "forecast request failed: %v", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, gate.NewErr(gate.UpstreamUnavailable, "forecast read failed: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		p.log.Warn("forecast upstream error", map[string]any{"status": res.StatusCode})
		return nil, gate.NewErr(gate.UpstreamUnavailable, "forecast upstream returned %s", res.Status)
	}
	var forecast struct {
		Currently json.RawMessage `json:"currently"`
	}
	if err := json.Unmarshal(body, &forecast); err != nil {
		return nil, gate.NewErr(gate.UpstreamUnavailable, "forecast response: %v", err)
	}
	if len(forecast.Currently) == 0 || string(forecast.Currently) == "null" {
		return nil, gate.NewErr(gate.NotFound, "no current conditions for %s", params)
	}
	return forecast.Currently, nil
}
