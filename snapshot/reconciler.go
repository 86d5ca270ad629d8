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

// Package snapshot reconciles the transaction ledger with the persisted
// daily snapshot tables. Every snapshot is a full replay (or an incremental
// carry-forward during backfill) of the ledger through its date, so a
// rebuild after a ledger correction converges on the same rows.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nest-vault/nv-api/common"
	"github.com/nest-vault/nv-api/ledger"
	"github.com/nest-vault/nv-api/marketcal"
	"github.com/nest-vault/nv-api/observability/opentelemetry"
	"github.com/nest-vault/nv-api/portfolio"
	"github.com/nest-vault/nv-api/prices"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
)

var (
	ErrSnapshotExists = errors.New("snapshot already exists for date")
)

// Reconciler derives snapshots from the ledger. It owns all writes to the
// snapshot tables; valuation prices come from the provider when one is
// configured and fall back to transaction-implied prices otherwise.
type Reconciler struct {
	ledger   LedgerStore
	store    Store
	provider prices.Provider
	funds    *prices.FundMap

	// Now is replaceable for tests
	Now func() time.Time
}

// New builds a reconciler; provider may be nil for offline operation
func New(ledgerStore LedgerStore, snapStore Store, provider prices.Provider, funds *prices.FundMap) *Reconciler {
	return &Reconciler{
		ledger:   ledgerStore,
		store:    snapStore,
		provider: provider,
		funds:    funds,
		Now:      time.Now,
	}
}

// Create replays the ledger through the given date and persists the result.
// A snapshot that already exists for the date is a conflict unless force is
// set, in which case the old rows are replaced.
func (r *Reconciler) Create(ctx context.Context, date time.Time, force bool, source string) (*PortfolioSnapshot, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "snapshot.Create")
	defer span.End()

	date = common.MidnightUTC(date)

	existing, err := r.store.Get(ctx, date)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if !force {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotExists, date.Format(ledger.DateOnly))
		}
		if err := r.store.Delete(ctx, date); err != nil {
			return nil, err
		}
	}

	trxs, err := r.ledger.Transactions(ctx, ledger.Filter{End: date})
	if err != nil {
		return nil, err
	}
	if len(trxs) == 0 {
		return nil, fmt.Errorf("%w on or before %s", ledger.ErrNoTransactions, date.Format(ledger.DateOnly))
	}
	portfolio.SortTransactions(trxs)

	quotes := r.liveQuotes(ctx, trxs)
	view := portfolio.Replay(trxs, quotes)

	now := r.Now()
	snap, holdings, funds := buildRows(date, view, source, marketcal.StatusAt(now), now)
	if err := r.store.Persist(ctx, snap, holdings, funds); err != nil {
		return nil, err
	}

	log.Info().Time("Date", date).Str("Source", source).
		Float64("MarketValue", snap.MarketValue).Int("Holdings", len(holdings)).
		Msg("snapshot created")
	return snap, nil
}

// liveQuotes fetches live prices for the funds the ledger touches. Quote
// failures degrade to transaction-implied prices rather than failing the
// snapshot.
func (r *Reconciler) liveQuotes(ctx context.Context, trxs []*ledger.Transaction) map[string]prices.Price {
	if r.provider == nil {
		return nil
	}

	live, err := r.provider.LivePrices(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("live prices unavailable, using transaction-implied prices")
		return nil
	}

	resolver := prices.NewResolver(r.funds, live, nil)
	return resolver.LiveMap(distinctFunds(trxs), r.Now())
}

func distinctFunds(trxs []*ledger.Transaction) []string {
	seen := make(map[string]bool, 8)
	funds := make([]string, 0, 8)
	for _, t := range trxs {
		if !seen[t.Fund] {
			seen[t.Fund] = true
			funds = append(funds, t.Fund)
		}
	}
	return funds
}

// buildRows turns a valued portfolio view into persistable snapshot rows.
// Closed positions are excluded from the holding rows; a position that was
// sold to zero no longer appears in current holdings.
func buildRows(date time.Time, view *portfolio.View, source string, status string, now time.Time) (*PortfolioSnapshot, []*HoldingSnapshot, []*FundSnapshot) {
	snap := &PortfolioSnapshot{
		ID:              uuid.New(),
		Date:            date,
		MarketValue:     view.MarketValue,
		CostBasis:       view.CostBasis,
		GainLoss:        view.GainLoss,
		GainLossPercent: view.GainLossPercent,
		Contributions:   view.Contributions,
		Withdrawals:     view.Withdrawals,
		Source:          source,
		MarketStatus:    status,
		SnapshotTime:    now,
	}

	open := view.Open()
	holdings := make([]*HoldingSnapshot, 0, len(open))
	for _, p := range open {
		holdings = append(holdings, &HoldingSnapshot{
			ID:          uuid.New(),
			Date:        date,
			Fund:        p.Fund,
			MoneySource: p.MoneySource,
			Shares:      p.Shares,
			UnitPrice:   p.LatestNAV,
			MarketValue: p.MarketValue,
			CostBasis:   p.CostBasis,
			GainLoss:    p.GainLoss,
			PriceSource: p.PriceSource,
		})
	}

	totals := view.FundTotals()
	funds := make([]*FundSnapshot, 0, len(totals))
	for _, ft := range totals {
		funds = append(funds, &FundSnapshot{
			ID:              uuid.New(),
			Date:            date,
			Fund:            ft.Fund,
			Shares:          ft.Shares,
			CostBasis:       ft.CostBasis,
			MarketValue:     ft.MarketValue,
			CurrentPrice:    ft.CurrentPrice,
			GainLoss:        ft.GainLoss,
			GainLossPercent: ft.GainLossPercent,
			PriceSource:     ft.PriceSource,
		})
	}

	return snap, holdings, funds
}

// RebuildRange force-recreates every snapshot in the inclusive date range.
// Dates are processed independently; a failure is recorded and the loop
// moves on.
func (r *Reconciler) RebuildRange(ctx context.Context, begin time.Time, end time.Time) (*RangeReport, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "snapshot.RebuildRange")
	defer span.End()

	begin = common.MidnightUTC(begin)
	end = common.MidnightUTC(end)
	if end.Before(begin) {
		begin, end = end, begin
	}

	report := &RangeReport{}
	for d := begin; !d.After(end); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Requested++
		if _, err := r.Create(ctx, d, true, SourceManualRebuild); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, DateError{
				Date:   d.Format(ledger.DateOnly),
				Reason: err.Error(),
			})
			log.Warn().Err(err).Time("Date", d).Msg("could not rebuild snapshot")
			continue
		}
		report.Rebuilt++
	}

	log.Info().Int("Requested", report.Requested).Int("Rebuilt", report.Rebuilt).
		Int("Failed", report.Failed).Msg("snapshot range rebuilt")
	return report, nil
}

// Backfill fills snapshot gaps between begin and end (zero values default to
// the earliest ledger date and today). The ledger is replayed once with the
// running position state carried forward day to day, so a long history does
// not cost a full replay per date. Dates that already have a snapshot are
// left alone; backfilled rows are marked closed since no live session
// applies to a reconstructed date.
func (r *Reconciler) Backfill(ctx context.Context, begin time.Time, end time.Time) (*BackfillReport, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "snapshot.Backfill")
	defer span.End()

	if begin.IsZero() {
		earliest, err := r.ledger.EarliestDate(ctx)
		if err != nil {
			return nil, err
		}
		begin = earliest
	}
	if end.IsZero() {
		end = r.Now()
	}
	begin = common.MidnightUTC(begin)
	end = common.MidnightUTC(end)
	if end.Before(begin) {
		begin, end = end, begin
	}

	existing, err := r.store.Dates(ctx)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(existing))
	for _, d := range existing {
		have[d.Format(ledger.DateOnly)] = true
	}

	trxs, err := r.ledger.Transactions(ctx, ledger.Filter{End: end})
	if err != nil {
		return nil, err
	}
	portfolio.SortTransactions(trxs)

	builder := portfolio.NewBuilder()
	byDay := make(map[string][]*ledger.Transaction, len(trxs))
	touched := false
	for _, t := range trxs {
		if t.Date.Before(begin) {
			// prior history seeds the running state
			builder.Apply(t)
			touched = true
			continue
		}
		day := t.Date.Format(ledger.DateOnly)
		byDay[day] = append(byDay[day], t)
	}

	report := &BackfillReport{}
	now := r.Now()
	for d := begin; !d.After(end); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Total++

		day := d.Format(ledger.DateOnly)
		for _, t := range byDay[day] {
			builder.Apply(t)
			touched = true
		}

		if have[day] || !touched {
			report.Skipped++
			continue
		}

		view := builder.View(nil)
		snap, holdings, funds := buildRows(d, view, SourceBackfill, marketcal.StatusClosed, now)
		if err := r.store.Persist(ctx, snap, holdings, funds); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, DateError{Date: day, Reason: err.Error()})
			log.Warn().Err(err).Time("Date", d).Msg("could not backfill snapshot")
			continue
		}
		report.Created++
	}

	log.Info().Int("Total", report.Total).Int("Created", report.Created).
		Int("Skipped", report.Skipped).Int("Failed", report.Failed).
		Msg("snapshot backfill complete")
	return report, nil
}

// BackfillHistoricalPrices revalues existing snapshots against historical
// closes fetched from the price provider. The ledger-derived fields
// (contributions, withdrawals, cost basis) are untouched; only valuations
// and their provenance change. Snapshots with no resolvable price keep
// their transaction-implied values.
func (r *Reconciler) BackfillHistoricalPrices(ctx context.Context) (*BackfillReport, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "snapshot.BackfillHistoricalPrices")
	defer span.End()

	if r.provider == nil {
		return nil, errors.New("no price provider configured")
	}

	dates, err := r.store.Dates(ctx)
	if err != nil {
		return nil, err
	}
	report := &BackfillReport{}
	if len(dates) == 0 {
		return report, nil
	}

	from := dates[0]
	to := dates[len(dates)-1]

	// one range query per ticker; the client throttles between calls
	historical := make(map[string]map[string]float64)
	for _, ticker := range r.funds.Tickers() {
		closes, err := r.provider.HistoricalCloses(ctx, ticker, from, to)
		if err != nil {
			log.Warn().Err(err).Str("Ticker", ticker).Msg("could not load historical closes")
			continue
		}
		historical[ticker] = closes
	}
	resolver := prices.NewResolver(r.funds, nil, historical)

	now := r.Now()
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Total++

		repriced, err := r.repriceDate(ctx, date, resolver, now)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, DateError{
				Date:   date.Format(ledger.DateOnly),
				Reason: err.Error(),
			})
			log.Warn().Err(err).Time("Date", date).Msg("could not reprice snapshot")
			continue
		}
		if !repriced {
			report.Skipped++
			continue
		}
		report.Created++
	}

	log.Info().Int("Total", report.Total).Int("Repriced", report.Created).
		Int("Skipped", report.Skipped).Int("Failed", report.Failed).
		Msg("historical price backfill complete")
	return report, nil
}

func (r *Reconciler) repriceDate(ctx context.Context, date time.Time, resolver *prices.Resolver, now time.Time) (bool, error) {
	snap, err := r.store.Get(ctx, date)
	if err != nil {
		return false, err
	}
	if snap == nil {
		return false, nil
	}

	holdings, err := r.store.Holdings(ctx, date)
	if err != nil {
		return false, err
	}

	repriced := false
	marketValue := 0.0
	costBasis := 0.0
	for _, h := range holdings {
		if price, ok := resolver.Resolve(h.Fund, date); ok {
			h.UnitPrice = price.Value
			h.MarketValue = h.Shares * price.Value
			h.GainLoss = h.MarketValue - h.CostBasis
			h.PriceSource = price.Source
			repriced = true
		}
		marketValue += h.MarketValue
		costBasis += h.CostBasis
	}
	if !repriced {
		return false, nil
	}

	snap.MarketValue = marketValue
	snap.CostBasis = costBasis
	snap.GainLoss = marketValue - costBasis
	snap.GainLossPercent = 0
	if costBasis > 0 {
		snap.GainLossPercent = snap.GainLoss / costBasis * 100
	}
	snap.Source = SourceBackfillHistorical
	snap.SnapshotTime = now

	if err := r.store.UpdateValues(ctx, snap, holdings); err != nil {
		return false, err
	}
	return true, nil
}
