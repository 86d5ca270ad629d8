// Copyright 2024-2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package prices

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/nest-vault/nv-api/common"
	"github.com/rs/zerolog/log"
)

var (
	ErrProviderStatus = errors.New("price provider returned non-200 status")
)

// Client fetches quotes from a tiingo-style market data API. Historical
// requests are serialized with a fixed inter-call delay to stay inside the
// provider quota; transient failures retry with exponential backoff.
type Client struct {
	baseURL string
	token   string
	tickers []string
	delay   time.Duration
	cache   *common.Cache
	httpc   *http.Client

	lastCall time.Time
	lock     sync.Mutex
}

// NewClient creates a price client. cache may be nil to disable quote
// caching; delay is the minimum spacing between provider calls.
func NewClient(baseURL string, token string, tickers []string, delay time.Duration, cache *common.Cache) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		tickers: tickers,
		delay:   delay,
		cache:   cache,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

type iexQuote struct {
	Ticker    string  `json:"ticker"`
	Last      float64 `json:"tngoLast"`
	PrevClose float64 `json:"prevClose"`
	Timestamp string  `json:"timestamp"`
}

type eodBar struct {
	Date     string  `json:"date"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adjClose"`
}

// LivePrices returns the latest quote for every tracked ticker
func (c *Client) LivePrices(ctx context.Context) (map[string]Quote, error) {
	tickerList := strings.Join(c.tickers, ",")
	cacheKey := "live:" + tickerList

	if c.cache != nil {
		if raw, ok := c.cache.Get(ctx, cacheKey); ok {
			quotes := make(map[string]Quote)
			if err := json.Unmarshal(raw, &quotes); err == nil {
				return quotes, nil
			}
		}
	}

	url := fmt.Sprintf("%s/iex?tickers=%s&token=%s", c.baseURL, tickerList, c.token)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var raw []iexQuote
	if err := json.Unmarshal(body, &raw); err != nil {
		log.Error().Stack().Err(err).Msg("could not unmarshal live quote response")
		return nil, err
	}

	quotes := make(map[string]Quote, len(raw))
	for _, q := range raw {
		if q.Last <= 0 {
			continue
		}
		asOf, _ := time.Parse(time.RFC3339, q.Timestamp)
		changePct := 0.0
		if q.PrevClose > 0 {
			changePct = (q.Last - q.PrevClose) / q.PrevClose * 100
		}
		quotes[strings.ToUpper(q.Ticker)] = Quote{
			Ticker:        strings.ToUpper(q.Ticker),
			Price:         q.Last,
			ChangePercent: changePct,
			AsOf:          asOf,
		}
	}

	if c.cache != nil {
		if encoded, err := json.Marshal(quotes); err == nil {
			if err := c.cache.Set(ctx, cacheKey, encoded); err != nil {
				log.Warn().Err(err).Msg("could not cache live quotes")
			}
		}
	}

	return quotes, nil
}

// HistoricalCloses returns daily closing prices for a ticker keyed by date
func (c *Client) HistoricalCloses(ctx context.Context, ticker string, from time.Time, to time.Time) (map[string]float64, error) {
	url := fmt.Sprintf("%s/tiingo/daily/%s/prices?startDate=%s&endDate=%s&format=json&token=%s",
		c.baseURL, strings.ToLower(ticker), from.Format("2006-01-02"), to.Format("2006-01-02"), c.token)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var bars []eodBar
	if err := json.Unmarshal(body, &bars); err != nil {
		log.Error().Stack().Err(err).Str("Ticker", ticker).Msg("could not unmarshal historical price response")
		return nil, err
	}

	closes := make(map[string]float64, len(bars))
	for _, bar := range bars {
		// dates arrive as RFC3339 timestamps; only the calendar date matters
		day := bar.Date
		if len(day) > 10 {
			day = day[:10]
		}
		price := bar.AdjClose
		if price == 0 {
			price = bar.Close
		}
		if price > 0 {
			closes[day] = price
		}
	}

	return closes, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	c.throttle()

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %d", ErrProviderStatus, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("%w: %d", ErrProviderStatus, resp.StatusCode))
		}

		body, err = ioutil.ReadAll(resp.Body)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		log.Warn().Stack().Err(err).Msg("price provider request failed")
		return nil, err
	}

	return body, nil
}

// throttle enforces the inter-call delay across goroutines
func (c *Client) throttle() {
	if c.delay <= 0 {
		return
	}

	c.lock.Lock()
	wait := c.delay - time.Since(c.lastCall)
	if wait > 0 {
		time.Sleep(wait)
	}
	c.lastCall = time.Now()
	c.lock.Unlock()
}
