package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RateSource returns a table of rates quoted against base: 1 base = rates[code] code.
type RateSource interface {
	FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

// StaticSource serves a fixed table, typically from configuration.
type StaticSource struct {
	rates map[string]decimal.Decimal
}

func NewStaticSource(rates map[string]string) (*StaticSource, error) {
	parsed := make(map[string]decimal.Decimal, len(rates))
	for code, raw := range rates {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("static rate %s: %w", code, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("static rate %s must be positive", code)
		}
		parsed[strings.ToUpper(code)] = rate
	}
	return &StaticSource{rates: parsed}, nil
}

// FetchRates rebases the static table onto base.
func (s *StaticSource) FetchRates(_ context.Context, base string) (map[string]decimal.Decimal, error) {
	pivot, ok := s.rates[base]
	if !ok {
		if len(s.rates) > 0 {
			return nil, fmt.Errorf("static rates do not include base %s", base)
		}
		pivot = decimal.NewFromInt(1)
	}

	out := make(map[string]decimal.Decimal, len(s.rates)+1)
	for code, rate := range s.rates {
		out[code] = rate.Div(pivot)
	}
	out[base] = decimal.NewFromInt(1)
	return out, nil
}

// HTTPRateSource reads the exchangerate-api.com v6 "latest" endpoint.
type HTTPRateSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPRateSource(baseURL, apiKey string, timeout time.Duration) *HTTPRateSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPRateSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type latestResponse struct {
	Result          string                     `json:"result"`
	ErrorType       string                     `json:"error-type"`
	ConversionRates map[string]decimal.Decimal `json:"conversion_rates"`
}

func (s *HTTPRateSource) FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	url := fmt.Sprintf("%s/%s/latest/%s", s.baseURL, s.apiKey, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build rate request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate api returned status %d", resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if body.Result != "" && body.Result != "success" {
		return nil, fmt.Errorf("rate api error: %s", body.ErrorType)
	}

	rates := make(map[string]decimal.Decimal, len(body.ConversionRates))
	for code, rate := range body.ConversionRates {
		if rate.IsPositive() {
			rates[code] = rate
		}
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("rate api returned no usable rates")
	}
	return rates, nil
}
