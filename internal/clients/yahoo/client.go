// Package yahoo provides a daily price history client for the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/market-confidence/internal/clientdata"
	"github.com/aristath/market-confidence/internal/domain"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	DefaultPeriod  = "1y"
)

// ValidPeriods are the named ranges accepted by the chart API
var ValidPeriods = map[string]bool{
	"1d": true, "5d": true, "1mo": true, "3mo": true, "6mo": true,
	"1y": true, "2y": true, "5y": true, "10y": true, "ytd": true, "max": true,
}

// ErrNoData is returned when the chart API answers without any usable bars
var ErrNoData = errors.New("no price data returned")

// chartResponse mirrors the v8 chart response (trimmed to needed fields)
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				Currency  string `json:"currency"`
				GmtOffset int64  `json:"gmtoffset"`
				Timezone  string `json:"timezone"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Client fetches daily bars from the chart API.
// It implements domain.PriceHistoryProvider.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
	cacheRepo  *clientdata.Repository
	now        func() time.Time
}

// NewClient creates a new chart API client.
// An empty baseURL uses DefaultBaseURL; cacheRepo is optional - if nil, caching is disabled.
func NewClient(baseURL string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.With().Str("client", "yahoo").Logger(),
		cacheRepo:  cacheRepo,
		now:        time.Now,
	}
}

// GetHistory returns daily bars for the symbol, cache first.
// Failures are logged and yield an empty slice; a stale cache entry is
// preferred over no data when the API fails.
func (c *Client) GetHistory(ctx context.Context, symbol string, req domain.HistoryRequest) []domain.Bar {
	cacheKey := symbol + ":" + req.Key()

	if bars, ok := c.fromCache(cacheKey, true); ok {
		c.log.Debug().Str("symbol", symbol).Str("key", cacheKey).Msg("Cache hit")
		return bars
	}

	bars, err := c.FetchHistory(ctx, symbol, req)
	if err != nil {
		if stale, ok := c.fromCache(cacheKey, false); ok {
			c.log.Warn().
				Err(err).
				Str("symbol", symbol).
				Int("bars", len(stale)).
				Msg("API failed, using stale cached history")
			return stale
		}
		c.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to fetch price history")
		return []domain.Bar{}
	}

	if c.cacheRepo != nil {
		ttl := clientdata.PriceHistoryTTL(req.End, c.now())
		if err := c.cacheRepo.Store(clientdata.TablePriceHistory, cacheKey, bars, ttl); err != nil {
			c.log.Warn().Err(err).Str("key", cacheKey).Msg("Failed to cache price history")
		}
	}

	return bars
}

// FetchHistory calls the chart API directly, without caching.
// Bars are dated by the exchange-local calendar day and bars without a close are dropped.
func (c *Client) FetchHistory(ctx context.Context, symbol string, req domain.HistoryRequest) ([]domain.Bar, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	if req.HasRange() {
		params.Set("period1", strconv.FormatInt(req.Start.Unix(), 10))
		params.Set("period2", strconv.FormatInt(req.End.Unix(), 10))
	} else {
		period := req.Period
		if period == "" {
			period = DefaultPeriod
		}
		if !ValidPeriods[period] {
			return nil, fmt.Errorf("invalid period %q", period)
		}
		params.Set("range", period)
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())
	c.log.Debug().Str("url", endpoint).Msg("Fetching chart")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (compatible; market-confidence/1.0)")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	var chart chartResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&chart)

	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to parse response: %w", decodeErr)
	}

	bars := parseBars(&chart)
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	// A date range is end-exclusive
	if req.HasRange() {
		end := domain.NormalizeDate(req.End)
		kept := bars[:0]
		for _, b := range bars {
			if b.Date.Before(end) {
				kept = append(kept, b)
			}
		}
		bars = kept
		if len(bars) == 0 {
			return nil, ErrNoData
		}
	}

	c.log.Info().
		Str("symbol", symbol).
		Int("bars", len(bars)).
		Msg("Fetched price history")

	return bars, nil
}

func parseBars(chart *chartResponse) []domain.Bar {
	if len(chart.Chart.Result) == 0 {
		return nil
	}
	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	quote := result.Indicators.Quote[0]

	bars := make([]domain.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closePrice := at(quote.Close, i)
		if closePrice == nil {
			continue
		}
		local := time.Unix(ts+result.Meta.GmtOffset, 0).UTC()
		bars = append(bars, domain.Bar{
			Date:   domain.NormalizeDate(local),
			Open:   valueOr(at(quote.Open, i), *closePrice),
			High:   valueOr(at(quote.High, i), *closePrice),
			Low:    valueOr(at(quote.Low, i), *closePrice),
			Close:  *closePrice,
			Volume: valueOr(at(quote.Volume, i), 0),
		})
	}
	return bars
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func (c *Client) fromCache(key string, freshOnly bool) ([]domain.Bar, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	var bars []domain.Bar
	var found bool
	var err error
	if freshOnly {
		found, err = c.cacheRepo.GetIfFresh(clientdata.TablePriceHistory, key, &bars)
	} else {
		found, err = c.cacheRepo.Get(clientdata.TablePriceHistory, key, &bars)
	}
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to read price history cache")
		return nil, false
	}
	if !found || len(bars) == 0 {
		return nil, false
	}

	// Decoded timestamps come back in the local zone
	for i := range bars {
		bars[i].Date = bars[i].Date.UTC()
	}
	return bars, true
}
