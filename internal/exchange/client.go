package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrUnavailable covers every upstream failure mode: network error,
// timeout, non-2xx status, undecodable body. Callers degrade (empty
// currency list, rejected transfer) instead of crashing.
var ErrUnavailable = errors.New("exchange rate service unavailable")

var ErrRateNotFound = errors.New("conversion rate not found")

type Client struct {
	baseURL      string
	apiKey       string
	baseCurrency string
	httpClient   *http.Client
	logger       *zap.Logger
}

func NewClient(baseURL, apiKey, baseCurrency string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		baseCurrency: baseCurrency,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

type ratesResponse struct {
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// Rates fetches the full conversion table anchored at the given base
// currency. The upstream contract: GET <baseURL>/<apiKey>/latest/<base>
// returning {"conversion_rates": {"USD": 1, "EUR": 0.9, ...}}. The base
// currency rated against itself is 1 in the returned table.
func (c *Client) Rates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	url := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, c.apiKey, base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rates request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Exchange rate request failed", zap.String("base", base), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Exchange rate API returned non-OK status",
			zap.String("base", base),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.logger.Error("Failed to decode exchange rate response", zap.String("base", base), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(body.ConversionRates) == 0 {
		return nil, fmt.Errorf("%w: empty conversion_rates", ErrUnavailable)
	}

	rates := make(map[string]decimal.Decimal, len(body.ConversionRates))
	for code, rate := range body.ConversionRates {
		rates[code] = decimal.NewFromFloat(rate)
	}
	return rates, nil
}

// Rate returns the single cross-rate from one currency to another.
func (c *Client) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	rates, err := c.Rates(ctx, from)
	if err != nil {
		return decimal.Decimal{}, err
	}
	rate, ok := rates[to]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s -> %s", ErrRateNotFound, from, to)
	}
	return rate, nil
}

// Currencies returns the sorted currency codes of the configured base
// table, used as the selectable choices on the signup and profile forms.
func (c *Client) Currencies(ctx context.Context) ([]string, error) {
	rates, err := c.Rates(ctx, c.baseCurrency)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(rates))
	for code := range rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}
