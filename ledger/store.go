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

package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nest-vault/nv-api/database"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoTransactions = errors.New("no transactions found")
)

// Filter restricts a ledger query; zero values leave a dimension unbounded
type Filter struct {
	Begin       time.Time
	End         time.Time
	Fund        string
	MoneySource string
}

// InsertResult reports the outcome of a single insert
type InsertResult int

const (
	Inserted InsertResult = iota
	Duplicate
)

// ImportReport is the structured summary returned by batch imports
type ImportReport struct {
	Total      int        `json:"total"`
	Imported   int        `json:"imported"`
	Duplicates int        `json:"duplicates"`
	Errors     int        `json:"errors"`
	Detail     []RowError `json:"error_detail,omitempty"`
}

// Store persists canonical transactions. The ledger is append-only: imports
// insert, replay reads, nothing mutates historical rows.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

const transactionColumns = `id, tx_date, fund, money_source, activity, units, unit_price, amount,
	source_type, source_id, external_id, transaction_hash, fuzzy_hash, enhanced_hash`

// Transactions fetches ledger entries matching the filter, ordered ascending
// by date with the fingerprint as the same-day tie-break. The ordering is
// part of the replay contract, not an accident of the query plan.
func (s *Store) Transactions(ctx context.Context, filter Filter) ([]*Transaction, error) {
	trx, err := database.Trx(ctx)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf(`SELECT %s FROM transactions WHERE 1=1`, transactionColumns)
	args := make([]interface{}, 0, 4)

	if !filter.Begin.IsZero() {
		args = append(args, filter.Begin)
		sql += fmt.Sprintf(" AND tx_date >= $%d", len(args))
	}
	if !filter.End.IsZero() {
		args = append(args, filter.End)
		sql += fmt.Sprintf(" AND tx_date <= $%d", len(args))
	}
	if filter.Fund != "" {
		args = append(args, filter.Fund)
		sql += fmt.Sprintf(" AND fund = $%d", len(args))
	}
	if filter.MoneySource != "" {
		args = append(args, filter.MoneySource)
		sql += fmt.Sprintf(" AND money_source = $%d", len(args))
	}

	sql += " ORDER BY tx_date ASC, transaction_hash ASC"

	rows, err := trx.Query(ctx, sql, args...)
	if err != nil {
		log.Error().Stack().Err(err).Str("Query", sql).Msg("transaction query failed")
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	trxs := make([]*Transaction, 0, 100)
	for rows.Next() {
		t := &Transaction{}
		err := rows.Scan(&t.ID, &t.Date, &t.Fund, &t.MoneySource, &t.Activity, &t.Units,
			&t.UnitPrice, &t.Amount, &t.SourceType, &t.SourceID, &t.ExternalID,
			&t.TransactionHash, &t.FuzzyHash, &t.EnhancedHash)
		if err != nil {
			log.Error().Stack().Err(err).Msg("could not scan transaction row")
			if err := trx.Rollback(ctx); err != nil {
				log.Error().Stack().Err(err).Msg("could not rollback transaction")
			}
			return nil, err
		}
		t.Date = t.Date.UTC()
		trxs = append(trxs, t)
	}

	if err := rows.Err(); err != nil {
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not commit transaction")
		return nil, err
	}

	return trxs, nil
}

// EarliestDate returns the date of the oldest ledger entry
func (s *Store) EarliestDate(ctx context.Context) (time.Time, error) {
	trx, err := database.Trx(ctx)
	if err != nil {
		return time.Time{}, err
	}

	var earliest *time.Time
	err = trx.QueryRow(ctx, `SELECT MIN(tx_date) FROM transactions`).Scan(&earliest)
	if err != nil {
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return time.Time{}, err
	}

	if err := trx.Commit(ctx); err != nil {
		return time.Time{}, err
	}

	if earliest == nil {
		return time.Time{}, ErrNoTransactions
	}
	return earliest.UTC(), nil
}

// Insert adds a transaction unless a duplicate already exists. A row matching
// either the external id or the primary fingerprint is a duplicate; this is
// what lets a re-linked sync source import the same economic transactions
// under brand-new external ids without creating rows.
func (s *Store) Insert(ctx context.Context, t *Transaction) (InsertResult, error) {
	trx, err := database.Trx(ctx)
	if err != nil {
		return Duplicate, err
	}

	var count int
	dupSQL := `SELECT COUNT(*) FROM transactions WHERE transaction_hash = $1 OR ($2 <> '' AND external_id = $2)`
	if err := trx.QueryRow(ctx, dupSQL, t.TransactionHash, t.ExternalID).Scan(&count); err != nil {
		log.Error().Stack().Err(err).Msg("duplicate check failed")
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return Duplicate, err
	}

	if count > 0 {
		if err := trx.Commit(ctx); err != nil {
			return Duplicate, err
		}
		return Duplicate, nil
	}

	insertSQL := fmt.Sprintf(`INSERT INTO transactions (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`, transactionColumns)
	_, err = trx.Exec(ctx, insertSQL, t.ID, t.Date, t.Fund, t.MoneySource, t.Activity,
		t.Units, t.UnitPrice, t.Amount, t.SourceType, t.SourceID, t.ExternalID,
		t.TransactionHash, t.FuzzyHash, t.EnhancedHash)
	if err != nil {
		log.Error().Stack().Err(err).Str("Fund", t.Fund).Time("Date", t.Date).Msg("could not insert transaction")
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return Duplicate, err
	}

	if err := trx.Commit(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not commit transaction")
		return Duplicate, err
	}

	return Inserted, nil
}

// ImportBatch inserts normalized transactions one at a time, isolating
// per-row failures, and merges the normalizer's row errors into the report
func (s *Store) ImportBatch(ctx context.Context, parsed *ParseResult) *ImportReport {
	report := &ImportReport{
		Total:  parsed.Total,
		Detail: append([]RowError{}, parsed.Errors...),
	}
	report.Errors = len(parsed.Errors)

	for i, t := range parsed.Transactions {
		result, err := s.Insert(ctx, t)
		if err != nil {
			report.Errors++
			report.Detail = append(report.Detail, RowError{Line: i + 1, Reason: err.Error()})
			continue
		}
		switch result {
		case Inserted:
			report.Imported++
		case Duplicate:
			report.Duplicates++
		}
	}

	log.Info().Int("Total", report.Total).Int("Imported", report.Imported).
		Int("Duplicates", report.Duplicates).Int("Errors", report.Errors).
		Msg("transaction batch imported")

	return report
}
