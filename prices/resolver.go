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
	"time"
)

// Resolver chooses a valuation price for a fund in priority order: an exact
// historical close when one is loaded for the date, then a live quote, then
// nothing (the caller falls back to the transaction-implied price). Proxy
// conversion applies to whichever source wins.
type Resolver struct {
	funds      *FundMap
	live       map[string]Quote
	historical map[string]map[string]float64 // ticker -> date -> close
}

// NewResolver builds a resolver over the fund basket. live and historical may
// each be nil; missing data is what the fallback chain is for.
func NewResolver(funds *FundMap, live map[string]Quote, historical map[string]map[string]float64) *Resolver {
	return &Resolver{
		funds:      funds,
		live:       live,
		historical: historical,
	}
}

// Resolve returns the valuation price for a fund on a date. The boolean is
// false when neither a historical close nor a live quote is available, in
// which case the caller keeps the transaction-implied price.
func (r *Resolver) Resolve(fund string, date time.Time) (Price, bool) {
	ticker, ok := r.funds.Ticker(fund)
	if !ok {
		return Price{}, false
	}

	if closes, ok := r.historical[ticker]; ok {
		if close, ok := closes[date.Format("2006-01-02")]; ok {
			value, source := r.funds.Convert(fund, close, SourceHistorical)
			return Price{Value: value, Source: source}, true
		}
	}

	if quote, ok := r.live[ticker]; ok && quote.Price > 0 {
		value, source := r.funds.Convert(fund, quote.Price, SourceLive)
		return Price{Value: value, Source: source}, true
	}

	return Price{}, false
}

// LiveMap resolves a fund-keyed price map from live quotes only, used for
// current-snapshot valuation
func (r *Resolver) LiveMap(funds []string, _ time.Time) map[string]Price {
	out := make(map[string]Price, len(funds))
	for _, fund := range funds {
		ticker, ok := r.funds.Ticker(fund)
		if !ok {
			continue
		}
		if quote, ok := r.live[ticker]; ok && quote.Price > 0 {
			value, source := r.funds.Convert(fund, quote.Price, SourceLive)
			out[fund] = Price{Value: value, Source: source}
		}
	}
	return out
}

// HistoricalMap resolves a fund-keyed price map for one date from loaded
// closes, used during backfill
func (r *Resolver) HistoricalMap(funds []string, date time.Time) map[string]Price {
	day := date.Format("2006-01-02")
	out := make(map[string]Price, len(funds))
	for _, fund := range funds {
		ticker, ok := r.funds.Ticker(fund)
		if !ok {
			continue
		}
		if closes, ok := r.historical[ticker]; ok {
			if close, ok := closes[day]; ok {
				value, source := r.funds.Convert(fund, close, SourceHistorical)
				out[fund] = Price{Value: value, Source: source}
			}
		}
	}
	return out
}
