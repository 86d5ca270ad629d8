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

package portfolio

import (
	"sort"
	"strings"
)

// ClosedShareEpsilon is the share count below which a position counts as
// closed. Closed positions are excluded from current-holdings views and
// totals but stay in the ledger; a later purchase reopens them.
const ClosedShareEpsilon = 1e-4

// Position is the derived state of one (fund, money source) pair after
// replaying the ledger and applying valuation prices
type Position struct {
	Fund        string  `json:"fund"`
	MoneySource string  `json:"money_source"`
	Shares      float64 `json:"shares"`
	CostBasis   float64 `json:"cost_basis"`
	LatestNAV   float64 `json:"latest_nav"`
	MarketValue float64 `json:"market_value"`
	GainLoss    float64 `json:"gain_loss"`
	PriceSource string  `json:"price_source"`
	Closed      bool    `json:"closed"`
}

// FundTotal rolls a fund's open positions up across money sources
type FundTotal struct {
	Fund            string  `json:"fund"`
	Shares          float64 `json:"shares"`
	CostBasis       float64 `json:"cost_basis"`
	MarketValue     float64 `json:"market_value"`
	CurrentPrice    float64 `json:"current_price"`
	GainLoss        float64 `json:"gain_loss"`
	GainLossPercent float64 `json:"gain_loss_percent"`
	PriceSource     string  `json:"price_source"`
}

// View is a valued portfolio: every position touched by the ledger plus
// aggregate totals over the open ones
type View struct {
	Positions       []*Position `json:"positions"`
	MarketValue     float64     `json:"market_value"`
	CostBasis       float64     `json:"cost_basis"`
	GainLoss        float64     `json:"gain_loss"`
	GainLossPercent float64     `json:"gain_loss_percent"`
	Contributions   float64     `json:"contributions"`
	Withdrawals     float64     `json:"withdrawals"`
}

// Position finds the position for a fund and money source, nil when the
// ledger never touched that pair
func (v *View) Position(fund string, moneySource string) *Position {
	for _, p := range v.Positions {
		if strings.EqualFold(p.Fund, fund) && strings.EqualFold(p.MoneySource, moneySource) {
			return p
		}
	}
	return nil
}

// Open returns the current holdings: positions with meaningful share counts
func (v *View) Open() []*Position {
	open := make([]*Position, 0, len(v.Positions))
	for _, p := range v.Positions {
		if !p.Closed {
			open = append(open, p)
		}
	}
	return open
}

// FundTotals aggregates open positions per fund, for fund-level performance
func (v *View) FundTotals() []*FundTotal {
	byFund := make(map[string]*FundTotal)
	order := make([]string, 0)

	for _, p := range v.Positions {
		if p.Closed {
			continue
		}
		ft, ok := byFund[p.Fund]
		if !ok {
			ft = &FundTotal{
				Fund:         p.Fund,
				CurrentPrice: p.LatestNAV,
				PriceSource:  p.PriceSource,
			}
			byFund[p.Fund] = ft
			order = append(order, p.Fund)
		}
		ft.Shares += p.Shares
		ft.CostBasis += p.CostBasis
		ft.MarketValue += p.MarketValue
		ft.GainLoss += p.GainLoss
	}

	sort.Strings(order)
	totals := make([]*FundTotal, 0, len(order))
	for _, fund := range order {
		ft := byFund[fund]
		if ft.CostBasis > 0 {
			ft.GainLossPercent = ft.GainLoss / ft.CostBasis * 100
		}
		totals = append(totals, ft)
	}
	return totals
}
