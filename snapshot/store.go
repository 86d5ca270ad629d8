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

	"github.com/jackc/pgx/v4"
	"github.com/nest-vault/nv-api/database"
	"github.com/rs/zerolog/log"
)

// PgStore persists snapshots to postgres
type PgStore struct{}

func NewPgStore() *PgStore {
	return &PgStore{}
}

const portfolioColumns = `id, snapshot_date, market_value, cost_basis, gain_loss, gain_loss_percent,
	contributions, withdrawals, snapshot_source, market_status, snapshot_time`

const holdingColumns = `id, snapshot_date, fund, money_source, shares, unit_price, market_value,
	cost_basis, gain_loss, price_source`

const fundColumns = `id, snapshot_date, fund, shares, cost_basis, market_value, current_price,
	gain_loss, gain_loss_percent, price_source`

func rollback(ctx context.Context, trx pgx.Tx) {
	if err := trx.Rollback(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not rollback transaction")
	}
}

// Get fetches the snapshot for a date, nil when none exists
func (s *PgStore) Get(ctx context.Context, date time.Time) (*PortfolioSnapshot, error) {
	trx, err := database.Trx(ctx)
	if err != nil {
		return nil, err
	}

	snap := &PortfolioSnapshot{}
	sql := `SELECT ` + portfolioColumns + ` FROM portfolio_snapshots WHERE snapshot_date = $1`
	err = trx.QueryRow(ctx, sql, date).Scan(&snap.ID, &snap.Date, &snap.MarketValue,
		&snap.CostBasis, &snap.GainLoss, &snap.GainLossPercent, &snap.Contributions,
		&snap.Withdrawals, &snap.Source, &snap.MarketStatus, &snap.SnapshotTime)
	if err != nil {
		rollback(ctx, trx)
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		log.Error().Stack().Err(err).Time("Date", date).Msg("snapshot query failed")
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		return nil, err
	}

	snap.Date = snap.Date.UTC()
	return snap, nil
}

// Dates lists every snapshot date ascending
func (s *PgStore) Dates(ctx context.Context) ([]time.Time, error) {
	trx, err := database.Trx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := trx.Query(ctx, `SELECT snapshot_date FROM portfolio_snapshots ORDER BY snapshot_date ASC`)
	if err != nil {
		rollback(ctx, trx)
		return nil, err
	}

	dates := make([]time.Time, 0, 100)
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			rollback(ctx, trx)
			return nil, err
		}
		dates = append(dates, d.UTC())
	}
	if err := rows.Err(); err != nil {
		rollback(ctx, trx)
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		return nil, err
	}
	return dates, nil
}

// Holdings fetches the holding rows for a snapshot date
func (s *PgStore) Holdings(ctx context.Context, date time.Time) ([]*HoldingSnapshot, error) {
	trx, err := database.Trx(ctx)
	if err != nil {
		return nil, err
	}

	sql := `SELECT ` + holdingColumns + ` FROM holding_snapshots WHERE snapshot_date = $1 ORDER BY fund ASC, money_source ASC`
	rows, err := trx.Query(ctx, sql, date)
	if err != nil {
		rollback(ctx, trx)
		return nil, err
	}

	holdings := make([]*HoldingSnapshot, 0, 10)
	for rows.Next() {
		h := &HoldingSnapshot{}
		err := rows.Scan(&h.ID, &h.Date, &h.Fund, &h.MoneySource, &h.Shares, &h.UnitPrice,
			&h.MarketValue, &h.CostBasis, &h.GainLoss, &h.PriceSource)
		if err != nil {
			rollback(ctx, trx)
			return nil, err
		}
		h.Date = h.Date.UTC()
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		rollback(ctx, trx)
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		return nil, err
	}
	return holdings, nil
}

// Delete removes a date's snapshot; child rows go first
func (s *PgStore) Delete(ctx context.Context, date time.Time) error {
	trx, err := database.Trx(ctx)
	if err != nil {
		return err
	}

	if err := deleteDate(ctx, trx, date); err != nil {
		rollback(ctx, trx)
		return err
	}

	return trx.Commit(ctx)
}

func deleteDate(ctx context.Context, trx pgx.Tx, date time.Time) error {
	if _, err := trx.Exec(ctx, `DELETE FROM holding_snapshots WHERE snapshot_date = $1`, date); err != nil {
		log.Error().Stack().Err(err).Time("Date", date).Msg("could not delete holding snapshots")
		return err
	}
	if _, err := trx.Exec(ctx, `DELETE FROM fund_snapshots WHERE snapshot_date = $1`, date); err != nil {
		log.Error().Stack().Err(err).Time("Date", date).Msg("could not delete fund snapshots")
		return err
	}
	if _, err := trx.Exec(ctx, `DELETE FROM portfolio_snapshots WHERE snapshot_date = $1`, date); err != nil {
		log.Error().Stack().Err(err).Time("Date", date).Msg("could not delete portfolio snapshot")
		return err
	}
	return nil
}

// Persist writes a complete snapshot in one datastore transaction so readers
// never observe a portfolio row without its holdings
func (s *PgStore) Persist(ctx context.Context, snap *PortfolioSnapshot, holdings []*HoldingSnapshot, funds []*FundSnapshot) error {
	trx, err := database.Trx(ctx)
	if err != nil {
		return err
	}

	sql := `INSERT INTO portfolio_snapshots (` + portfolioColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = trx.Exec(ctx, sql, snap.ID, snap.Date, snap.MarketValue, snap.CostBasis,
		snap.GainLoss, snap.GainLossPercent, snap.Contributions, snap.Withdrawals,
		snap.Source, snap.MarketStatus, snap.SnapshotTime)
	if err != nil {
		log.Error().Stack().Err(err).Time("Date", snap.Date).Msg("could not insert portfolio snapshot")
		rollback(ctx, trx)
		return err
	}

	holdingSQL := `INSERT INTO holding_snapshots (` + holdingColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for _, h := range holdings {
		_, err = trx.Exec(ctx, holdingSQL, h.ID, h.Date, h.Fund, h.MoneySource, h.Shares,
			h.UnitPrice, h.MarketValue, h.CostBasis, h.GainLoss, h.PriceSource)
		if err != nil {
			log.Error().Stack().Err(err).Time("Date", snap.Date).Str("Fund", h.Fund).Msg("could not insert holding snapshot")
			rollback(ctx, trx)
			return err
		}
	}

	fundSQL := `INSERT INTO fund_snapshots (` + fundColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for _, f := range funds {
		_, err = trx.Exec(ctx, fundSQL, f.ID, f.Date, f.Fund, f.Shares, f.CostBasis,
			f.MarketValue, f.CurrentPrice, f.GainLoss, f.GainLossPercent, f.PriceSource)
		if err != nil {
			log.Error().Stack().Err(err).Time("Date", snap.Date).Str("Fund", f.Fund).Msg("could not insert fund snapshot")
			rollback(ctx, trx)
			return err
		}
	}

	if err := trx.Commit(ctx); err != nil {
		log.Error().Stack().Err(err).Time("Date", snap.Date).Msg("could not commit snapshot")
		return err
	}
	return nil
}

// UpdateValues rewrites a snapshot's valuation fields after historical
// repricing; contributions and withdrawals are ledger facts and stay put
func (s *PgStore) UpdateValues(ctx context.Context, snap *PortfolioSnapshot, holdings []*HoldingSnapshot) error {
	trx, err := database.Trx(ctx)
	if err != nil {
		return err
	}

	sql := `UPDATE portfolio_snapshots SET market_value = $1, cost_basis = $2, gain_loss = $3,
		gain_loss_percent = $4, snapshot_source = $5, snapshot_time = $6 WHERE snapshot_date = $7`
	_, err = trx.Exec(ctx, sql, snap.MarketValue, snap.CostBasis, snap.GainLoss,
		snap.GainLossPercent, snap.Source, snap.SnapshotTime, snap.Date)
	if err != nil {
		log.Error().Stack().Err(err).Time("Date", snap.Date).Msg("could not update portfolio snapshot")
		rollback(ctx, trx)
		return err
	}

	holdingSQL := `UPDATE holding_snapshots SET unit_price = $1, market_value = $2, gain_loss = $3,
		price_source = $4 WHERE id = $5`
	for _, h := range holdings {
		_, err = trx.Exec(ctx, holdingSQL, h.UnitPrice, h.MarketValue, h.GainLoss, h.PriceSource, h.ID)
		if err != nil {
			log.Error().Stack().Err(err).Time("Date", snap.Date).Str("Fund", h.Fund).Msg("could not update holding snapshot")
			rollback(ctx, trx)
			return err
		}
	}

	if err := trx.Commit(ctx); err != nil {
		return err
	}
	return nil
}
