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
	"time"
)

// Price provenance recorded on every valued holding so downstream consumers
// can tell a real market price from an estimate.
const (
	SourceTransaction = "transaction" // last observed trade price from the ledger
	SourceLive        = "live"        // fresh quote from the provider
	SourceHistorical  = "historical"  // daily close for an exact date
	SourceProxy       = "proxy"       // converted from a proxy instrument's price
)

// Quote is a live price observation for one ticker
type Quote struct {
	Ticker        string    `json:"ticker"`
	Price         float64   `json:"price"`
	ChangePercent float64   `json:"change_percent"`
	AsOf          time.Time `json:"as_of"`
}

// Price is a resolved valuation price with provenance
type Price struct {
	Value  float64 `json:"value"`
	Source string  `json:"source"`
}

// Provider delivers market data. It is best-effort: callers degrade to
// transaction-implied pricing when it returns errors or partial data.
type Provider interface {
	// LivePrices returns the latest quotes for the tracked basket
	LivePrices(ctx context.Context) (map[string]Quote, error)
	// HistoricalCloses returns daily closing prices keyed by date (2006-01-02)
	HistoricalCloses(ctx context.Context, ticker string, from time.Time, to time.Time) (map[string]float64, error)
}
