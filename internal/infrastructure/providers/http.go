package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/marketstat/pctrun/internal/domain"
)

// HTTPConfig holds the daily-bars endpoint settings.
type HTTPConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// RequestsPerMinute caps the outbound rate; burst of 1.
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// DefaultHTTPConfig returns conservative free-tier settings.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		RequestTimeout:    10 * time.Second,
		RequestsPerMinute: 30,
	}
}

// HTTPProvider fetches daily bars from a JSON endpoint, guarded by a
// circuit breaker and a client-side rate limiter.
type HTTPProvider struct {
	cfg     HTTPConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// barPayload is the wire format of one daily bar.
type barPayload struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type historyPayload struct {
	Symbol string       `json:"symbol"`
	Bars   []barPayload `json:"bars"`
}

// NewHTTPProvider builds the provider. The breaker trips after 3
// consecutive failures or a 5% error rate over at least 20 requests.
func NewHTTPProvider(cfg HTTPConfig) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider base URL is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultHTTPConfig().RequestTimeout
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultHTTPConfig().RequestsPerMinute
	}

	settings := gobreaker.Settings{
		Name:     "history-provider",
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("provider circuit breaker state change")
		},
	}

	return &HTTPProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1),
	}, nil
}

func (p *HTTPProvider) Name() string { return "http" }

// FetchDailyBars requests history and validates it into a series. Rate
// limiting waits on the caller's context; breaker-open errors surface
// immediately.
func (p *HTTPProvider) FetchDailyBars(ctx context.Context, symbol string, lookbackDays int) (*domain.PriceSeries, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := p.breaker.Execute(func() (any, error) {
		return p.fetch(ctx, symbol, lookbackDays)
	})
	if err != nil {
		return nil, fmt.Errorf("provider fetch for %s: %w", symbol, err)
	}
	return result.(*domain.PriceSeries), nil
}

func (p *HTTPProvider) fetch(ctx context.Context, symbol string, lookbackDays int) (*domain.PriceSeries, error) {
	endpoint := fmt.Sprintf("%s/v1/history/%s?days=%d", p.cfg.BaseURL, url.PathEscape(symbol), lookbackDays)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, &ErrSymbolNotFound{Symbol: symbol, Provider: p.Name()}
	default:
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var payload historyPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode history payload: %w", err)
	}

	bars := make([]domain.Bar, 0, len(payload.Bars))
	for i, b := range payload.Bars {
		ts, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			return nil, fmt.Errorf("bar %d: bad date %q: %w", i, b.Date, err)
		}
		bars = append(bars, domain.Bar{
			Timestamp: ts.UTC(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}

	series, err := domain.NewPriceSeries(symbol, bars)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("symbol", symbol).Int("bars", series.Len()).
		Dur("latency", time.Since(start)).Msg("fetched series from provider")
	return series, nil
}
