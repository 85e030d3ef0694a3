package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"importscout/internal/countries"
	"importscout/internal/logger"
	"importscout/internal/store/redisstore"
)

const (
	exchangeTimeout  = 8 * time.Second
	exchangeCacheTTL = time.Hour
)

// ExchangeRate is the USD → local-currency rate for a country.
type ExchangeRate struct {
	CurrencyCode string  `json:"currency_code"`
	Rate         float64 `json:"rate"`
}

// Exchange fetches USD exchange rates from open.er-api.com with a
// time-boxed redis cache. A missing or failed rate falls back to 1 so
// downstream "_local" mirrors degrade to USD values instead of aborting the
// sourcing stage.
type Exchange struct {
	BaseURL string

	cache  *redisstore.Store
	log    *logger.Logger
	client *http.Client
}

func NewExchange(cache *redisstore.Store, log *logger.Logger) *Exchange {
	return &Exchange{
		BaseURL: "https://open.er-api.com/v6/latest/USD",
		cache:   cache,
		log:     log.With("service", "Exchange"),
		client:  &http.Client{Timeout: exchangeTimeout},
	}
}

// Rate resolves the exchange rate for a country. USD countries skip both the
// cache and the network.
func (e *Exchange) Rate(ctx context.Context, countryCode string) ExchangeRate {
	currency := countries.Currency(countryCode)
	if currency == "USD" {
		return ExchangeRate{CurrencyCode: "USD", Rate: 1}
	}

	cacheKey := "exchange_rate:" + currency
	if e.cache != nil {
		var cached ExchangeRate
		if err := e.cache.GetJSON(ctx, cacheKey, &cached); err == nil && cached.Rate > 0 {
			return cached
		}
	}

	rate, err := e.fetch(ctx, currency)
	if err != nil {
		e.log.Warn("rate fetch failed, defaulting to 1", "currency", currency, "error", err.Error())
		return ExchangeRate{CurrencyCode: currency, Rate: 1}
	}

	result := ExchangeRate{CurrencyCode: currency, Rate: rate}
	if e.cache != nil {
		if err := e.cache.SetJSON(ctx, cacheKey, result, exchangeCacheTTL); err != nil {
			e.log.Warn("rate cache write failed", "error", err.Error())
		}
	}
	return result
}

func (e *Exchange) fetch(ctx context.Context, currency string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.BaseURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("exchange rate api status %d", resp.StatusCode)
	}

	var decoded struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, err
	}

	rate, ok := decoded.Rates[currency]
	if !ok {
		return 0, fmt.Errorf("no rate for %s", currency)
	}
	return rate, nil
}
