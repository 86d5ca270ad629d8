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

package snapshot

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nest-vault/nv-api/ledger"
)

// snapshot provenance tags
const (
	SourceAutomated          = "automated"
	SourceManualRebuild      = "manual-rebuild"
	SourceBackfill           = "backfill"
	SourceBackfillHistorical = "backfill-historical"
)

// PortfolioSnapshot is the persisted aggregate portfolio state for one
// calendar date; at most one exists per date
type PortfolioSnapshot struct {
	ID              uuid.UUID `json:"id"`
	Date            time.Time `json:"snapshot_date"`
	MarketValue     float64   `json:"market_value"`
	CostBasis       float64   `json:"cost_basis"`
	GainLoss        float64   `json:"gain_loss"`
	GainLossPercent float64   `json:"gain_loss_percent"`
	Contributions   float64   `json:"contributions"`
	Withdrawals     float64   `json:"withdrawals"`
	Source          string    `json:"snapshot_source"`
	MarketStatus    string    `json:"market_status"`
	SnapshotTime    time.Time `json:"snapshot_time"`
}

// HoldingSnapshot is one open (fund, money source) position on the snapshot
// date, with the provenance of the price used to value it
type HoldingSnapshot struct {
	ID          uuid.UUID `json:"id"`
	Date        time.Time `json:"snapshot_date"`
	Fund        string    `json:"fund"`
	MoneySource string    `json:"money_source"`
	Shares      float64   `json:"shares"`
	UnitPrice   float64   `json:"unit_price"`
	MarketValue float64   `json:"market_value"`
	CostBasis   float64   `json:"cost_basis"`
	GainLoss    float64   `json:"gain_loss"`
	PriceSource string    `json:"price_source"`
}

// FundSnapshot rolls a fund up across money sources for fund-level
// performance queries
type FundSnapshot struct {
	ID              uuid.UUID `json:"id"`
	Date            time.Time `json:"snapshot_date"`
	Fund            string    `json:"fund"`
	Shares          float64   `json:"shares"`
	CostBasis       float64   `json:"cost_basis"`
	MarketValue     float64   `json:"market_value"`
	CurrentPrice    float64   `json:"current_price"`
	GainLoss        float64   `json:"gain_loss"`
	GainLossPercent float64   `json:"gain_loss_percent"`
	PriceSource     string    `json:"price_source"`
}

// LedgerStore is the reconciler's read-only view of the transaction ledger
type LedgerStore interface {
	Transactions(ctx context.Context, filter ledger.Filter) ([]*ledger.Transaction, error)
	EarliestDate(ctx context.Context) (time.Time, error)
}

// Store persists snapshot rows. The reconciler exclusively owns writes to
// these tables; Persist and UpdateValues are single datastore transactions.
type Store interface {
	Get(ctx context.Context, date time.Time) (*PortfolioSnapshot, error)
	Dates(ctx context.Context) ([]time.Time, error)
	Holdings(ctx context.Context, date time.Time) ([]*HoldingSnapshot, error)
	// Delete removes the date's holdings and fund rows before the parent
	// portfolio row, respecting referential ordering
	Delete(ctx context.Context, date time.Time) error
	Persist(ctx context.Context, snap *PortfolioSnapshot, holdings []*HoldingSnapshot, funds []*FundSnapshot) error
	// UpdateValues rewrites a snapshot's valuation in place after historical
	// repricing
	UpdateValues(ctx context.Context, snap *PortfolioSnapshot, holdings []*HoldingSnapshot) error
}

// DateError pins a failure to the date it occurred on
type DateError struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// RangeReport summarizes a range rebuild; one date's failure never aborts
// the remaining dates
type RangeReport struct {
	Requested int         `json:"requested"`
	Rebuilt   int         `json:"rebuilt"`
	Failed    int         `json:"failed"`
	Errors    []DateError `json:"errors,omitempty"`
}

// BackfillReport summarizes a backfill pass
type BackfillReport struct {
	Total   int         `json:"total"`
	Created int         `json:"created"`
	Skipped int         `json:"skipped"`
	Failed  int         `json:"failed"`
	Errors  []DateError `json:"errors,omitempty"`
}
