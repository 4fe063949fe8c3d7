package connectors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"intradaybot/src/model"
)

const (
	defaultRetryAttempts   = 3
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second
)

type finnhubNews struct {
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// FinnhubClient fetches company news one symbol at a time, paced by a
// limiter and guarded by a circuit breaker.
type FinnhubClient struct {
	token    string
	lookback time.Duration
	http     *resty.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	log      *logger.Entry
	now      func() time.Time
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == 429 || code == 408
}

// NewFinnhubClient builds a client from cfg. FinnhubRetries is the number of
// extra attempts per request.
func NewFinnhubClient(cfg Config, log *logger.Entry) *FinnhubClient {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	baseURL := strings.TrimRight(cfg.FinnhubBaseURL, "/")
	if baseURL == "" {
		baseURL = "https://finnhub.io/api/v1"
	}
	timeout := cfg.FinnhubTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.FinnhubRPS
	if rps <= 0 {
		rps = 1
	}
	days := cfg.FinnhubLookbackDays
	if days <= 0 {
		days = 2
	}
	retries := cfg.FinnhubRetries
	if retries < 0 {
		retries = defaultRetryAttempts
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(retries).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	st := gobreaker.Settings{
		Name:     "finnhub",
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logger.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("circuit breaker state changed")
		},
	}

	return &FinnhubClient{
		token:    cfg.FinnhubToken,
		lookback: time.Duration(days) * 24 * time.Hour,
		http:     httpClient,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		breaker:  gobreaker.NewCircuitBreaker(st),
		log:      log.WithField("component", "finnhub"),
		now:      time.Now,
	}
}

func (c *FinnhubClient) Name() string { return "finnhub" }

// Fetch queries every symbol and returns what succeeded. Per-symbol
// failures are joined into the returned error.
func (c *FinnhubClient) Fetch(ctx context.Context, symbols []string) ([]model.NewsItem, error) {
	var (
		items []model.NewsItem
		errs  []error
	)
	for _, symbol := range symbols {
		if err := c.limiter.Wait(ctx); err != nil {
			errs = append(errs, err)
			break
		}
		got, err := c.companyNews(ctx, symbol)
		if err != nil {
			c.log.WithError(err).WithField("symbol", symbol).Warn("company news failed")
			errs = append(errs, fmt.Errorf("%s: %w", symbol, err))
			continue
		}
		items = append(items, got...)
	}
	return items, errors.Join(errs...)
}

func (c *FinnhubClient) companyNews(ctx context.Context, symbol string) ([]model.NewsItem, error) {
	now := c.now().UTC()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		var rows []finnhubNews
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"from":   now.Add(-c.lookback).Format("2006-01-02"),
				"to":     now.Format("2006-01-02"),
				"token":  c.token,
			}).
			SetResult(&rows).
			Get("/company-news")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode(), GetErrorMsg(resp.StatusCode()))
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}

	rows := out.([]finnhubNews)
	items := make([]model.NewsItem, 0, len(rows))
	for _, row := range rows {
		if row.Headline == "" && row.URL == "" {
			continue
		}
		source := row.Source
		if source == "" {
			source = "finnhub"
		}
		items = append(items, model.NewsItem{
			Symbol: symbol,
			Ts:     row.Datetime,
			Title:  row.Headline,
			Source: source,
			URL:    row.URL,
		})
	}
	return items, nil
}
