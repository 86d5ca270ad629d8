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

// Package portfolio folds an ordered transaction ledger into per-(fund,
// money source) positions under weighted-average-cost accounting. Replay is
// a pure function: ledger plus prices in, view out, no persistence.
package portfolio

import (
	"math"
	"sort"
	"strings"

	"github.com/nest-vault/nv-api/ledger"
	"github.com/nest-vault/nv-api/prices"
)

type cashFlow int

const (
	flowNeutral cashFlow = iota
	flowDeposit
	flowWithdrawal
)

var depositKeywords = []string{"contribution", "rollover in", "deposit", "transfer in"}
var withdrawalKeywords = []string{"withdrawal", "distribution", "transfer out"}

func classifyCashFlow(activity string) cashFlow {
	lower := strings.ToLower(activity)
	for _, kw := range depositKeywords {
		if strings.Contains(lower, kw) {
			return flowDeposit
		}
	}
	for _, kw := range withdrawalKeywords {
		if strings.Contains(lower, kw) {
			return flowWithdrawal
		}
	}
	return flowNeutral
}

// SortTransactions orders the ledger for replay: ascending date, with the
// primary fingerprint as the same-day tie-break. Same-day ordering changes
// intermediate average-cost values, so the tie-break is a fixed contract
// rather than whatever order the query returned rows in.
func SortTransactions(trxs []*ledger.Transaction) {
	sort.SliceStable(trxs, func(i, j int) bool {
		if trxs[i].Date.Equal(trxs[j].Date) {
			return trxs[i].TransactionHash < trxs[j].TransactionHash
		}
		return trxs[i].Date.Before(trxs[j].Date)
	})
}

type positionKey struct {
	fund        string
	moneySource string
}

type runningPosition struct {
	fund        string
	moneySource string
	shares      float64
	costBasis   float64
	latestNAV   float64
}

// Builder accumulates position state transaction by transaction. The
// snapshot backfill feeds it one day at a time, carrying state forward
// instead of re-scanning the full ledger per day; View never mutates the
// running state, so interleaving Apply and View is safe.
type Builder struct {
	positions     map[positionKey]*runningPosition
	order         []positionKey
	contributions float64
	withdrawals   float64
}

func NewBuilder() *Builder {
	return &Builder{
		positions: make(map[positionKey]*runningPosition),
		order:     make([]positionKey, 0, 8),
	}
}

// Apply folds one transaction into the running state. Transactions must
// arrive in SortTransactions order; Apply is total over normalized input.
func (b *Builder) Apply(t *ledger.Transaction) {
	magnitude := math.Abs(t.Amount)
	switch classifyCashFlow(t.Activity) {
	case flowDeposit:
		if magnitude > 0 {
			b.contributions += magnitude
		}
	case flowWithdrawal:
		if magnitude > 0 {
			b.withdrawals += magnitude
		}
	}

	key := positionKey{
		fund:        strings.ToLower(t.Fund),
		moneySource: strings.ToLower(t.MoneySource),
	}
	pos, ok := b.positions[key]
	if !ok {
		pos = &runningPosition{
			fund:        t.Fund,
			moneySource: t.MoneySource,
		}
		b.positions[key] = pos
		b.order = append(b.order, key)
	}

	switch {
	case t.Units > 0:
		// acquisition: cost is the cash amount when present, else implied
		cost := magnitude
		if cost == 0 {
			cost = math.Abs(t.Units * t.UnitPrice)
		}
		pos.costBasis += cost
		pos.shares += t.Units
	case t.Units < 0:
		// disposal at weighted-average cost: basis shrinks proportionally,
		// realized gain/loss is not tracked separately
		avgCost := 0.0
		if pos.shares > 0 {
			avgCost = pos.costBasis / pos.shares
		}
		sold := math.Min(math.Abs(t.Units), pos.shares)
		pos.costBasis = math.Max(0, pos.costBasis-avgCost*sold)
		pos.shares = math.Max(0, pos.shares-sold)
	}

	if t.UnitPrice > 0 {
		pos.latestNAV = t.UnitPrice
	}
}

// View values the current state against the supplied price map and returns
// an immutable portfolio view. Funds missing from the map keep their
// transaction-implied price.
func (b *Builder) View(quotes map[string]prices.Price) *View {
	view := &View{
		Positions: make([]*Position, 0, len(b.order)),
	}

	for _, key := range b.order {
		rp := b.positions[key]

		nav := rp.latestNAV
		source := prices.SourceTransaction
		if q, ok := quotes[rp.fund]; ok && q.Value > 0 {
			nav = q.Value
			source = q.Source
		} else if q, ok := quotes[strings.ToLower(rp.fund)]; ok && q.Value > 0 {
			nav = q.Value
			source = q.Source
		}

		p := &Position{
			Fund:        rp.fund,
			MoneySource: rp.moneySource,
			Shares:      rp.shares,
			CostBasis:   rp.costBasis,
			LatestNAV:   nav,
			MarketValue: rp.shares * nav,
			PriceSource: source,
			Closed:      math.Abs(rp.shares) < ClosedShareEpsilon,
		}
		p.GainLoss = p.MarketValue - p.CostBasis
		view.Positions = append(view.Positions, p)

		if !p.Closed {
			view.MarketValue += p.MarketValue
			view.CostBasis += p.CostBasis
			view.GainLoss += p.GainLoss
		}
	}

	sort.Slice(view.Positions, func(i, j int) bool {
		if view.Positions[i].Fund == view.Positions[j].Fund {
			return view.Positions[i].MoneySource < view.Positions[j].MoneySource
		}
		return view.Positions[i].Fund < view.Positions[j].Fund
	})

	if view.CostBasis > 0 {
		view.GainLossPercent = view.GainLoss / view.CostBasis * 100
	}
	view.Contributions = b.contributions
	view.Withdrawals = b.withdrawals

	return view
}

// Replay folds a sorted transaction list into a valued portfolio view
func Replay(trxs []*ledger.Transaction, quotes map[string]prices.Price) *View {
	b := NewBuilder()
	for _, t := range trxs {
		b.Apply(t)
	}
	return b.View(quotes)
}
