package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/EZGGdotxyz/ezgg-service/internal/core"
	"github.com/EZGGdotxyz/ezgg-service/internal/metrics"
)

const openExchangeRatesURL = "https://openexchangerates.org/api"

// ExchangeRatesClient fetches USD-base fiat rates from Open Exchange Rates.
type ExchangeRatesClient struct {
	httpClient *http.Client
	appID      string
	baseURL    string
}

// NewExchangeRatesClient creates a client with the given API app id. An
// empty baseURL selects the public endpoint.
func NewExchangeRatesClient(appID, baseURL string) *ExchangeRatesClient {
	if baseURL == "" {
		baseURL = openExchangeRatesURL
	}
	return &ExchangeRatesClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		appID:      appID,
		baseURL:    baseURL,
	}
}

type latestRatesResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// LatestRates returns the current USD-base rate table.
func (c *ExchangeRatesClient) LatestRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/latest.json?app_id=%s", c.baseURL, url.QueryEscape(c.appID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create rates request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ExchangeRateRefreshTotal.WithLabelValues("error").Inc()
		return nil, core.UnavailableError("exchange rates request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ExchangeRateRefreshTotal.WithLabelValues("error").Inc()
		return nil, core.UnavailableError("exchange rates returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ExchangeRateRefreshTotal.WithLabelValues("error").Inc()
		return nil, core.UnavailableError("failed to read rates response: %v", err)
	}

	var rates latestRatesResponse
	if err := json.Unmarshal(body, &rates); err != nil {
		metrics.ExchangeRateRefreshTotal.WithLabelValues("error").Inc()
		return nil, core.UnavailableError("failed to decode rates response: %v", err)
	}
	if len(rates.Rates) == 0 {
		metrics.ExchangeRateRefreshTotal.WithLabelValues("error").Inc()
		return nil, core.UnavailableError("rates response empty")
	}

	metrics.ExchangeRateRefreshTotal.WithLabelValues("success").Inc()
	logrus.WithField("currencies", len(rates.Rates)).Debug("exchange rates refreshed")
	return rates.Rates, nil
}
