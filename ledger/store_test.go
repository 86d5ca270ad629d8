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

package ledger_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock"

	"github.com/nest-vault/nv-api/database"
	"github.com/nest-vault/nv-api/ledger"
)

var _ = Describe("Store", func() {
	var (
		dbPool pgxmock.PgxConnIface
		store  *ledger.Store
		ctx    context.Context
		trx    *ledger.Transaction
	)

	BeforeEach(func() {
		var err error
		dbPool, err = pgxmock.NewConn()
		Expect(err).To(BeNil())
		database.SetPool(dbPool)

		store = ledger.NewStore()
		ctx = context.Background()

		trx = &ledger.Transaction{
			Date:       time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
			Fund:       "VTI",
			Activity:   "Buy",
			Units:      2.5,
			UnitPrice:  200,
			Amount:     -500,
			SourceType: ledger.SourceTypeManual,
		}
		trx.Fingerprint()
	})

	Context("Insert", func() {
		It("inserts a new transaction", func() {
			dbPool.ExpectBegin()
			dbPool.ExpectQuery(`SELECT COUNT\(\*\) FROM transactions`).
				WithArgs(trx.TransactionHash, trx.ExternalID).
				WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
			dbPool.ExpectExec("INSERT INTO transactions").
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
			dbPool.ExpectCommit()

			result, err := store.Insert(ctx, trx)
			Expect(err).To(BeNil())
			Expect(result).To(Equal(ledger.Inserted))
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
		})

		It("skips a transaction whose fingerprint already exists", func() {
			dbPool.ExpectBegin()
			dbPool.ExpectQuery(`SELECT COUNT\(\*\) FROM transactions`).
				WithArgs(trx.TransactionHash, trx.ExternalID).
				WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
			dbPool.ExpectCommit()

			result, err := store.Insert(ctx, trx)
			Expect(err).To(BeNil())
			Expect(result).To(Equal(ledger.Duplicate))
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
		})

		It("skips a sync transaction whose external id already exists", func() {
			trx.SourceType = ledger.SourceTypeSync
			trx.ExternalID = "conn-2-opaque-99"
			trx.Fingerprint()

			dbPool.ExpectBegin()
			dbPool.ExpectQuery(`SELECT COUNT\(\*\) FROM transactions`).
				WithArgs(trx.TransactionHash, trx.ExternalID).
				WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
			dbPool.ExpectCommit()

			result, err := store.Insert(ctx, trx)
			Expect(err).To(BeNil())
			Expect(result).To(Equal(ledger.Duplicate))
		})
	})

	Context("ImportBatch", func() {
		It("counts inserted and duplicate rows", func() {
			other := &ledger.Transaction{
				Date:       time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
				Fund:       "SCHD",
				Activity:   "Dividend",
				Amount:     12.34,
				SourceType: ledger.SourceTypeManual,
			}
			other.Fingerprint()

			parsed := &ledger.ParseResult{
				Transactions: []*ledger.Transaction{trx, other},
				Total:        2,
			}

			dbPool.ExpectBegin()
			dbPool.ExpectQuery(`SELECT COUNT\(\*\) FROM transactions`).
				WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
			dbPool.ExpectExec("INSERT INTO transactions").
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
			dbPool.ExpectCommit()

			dbPool.ExpectBegin()
			dbPool.ExpectQuery(`SELECT COUNT\(\*\) FROM transactions`).
				WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
			dbPool.ExpectCommit()

			report := store.ImportBatch(ctx, parsed)
			Expect(report.Total).To(Equal(2))
			Expect(report.Imported).To(Equal(1))
			Expect(report.Duplicates).To(Equal(1))
			Expect(report.Errors).To(BeZero())
		})

		It("carries normalizer row errors into the report", func() {
			parsed := &ledger.ParseResult{
				Total:  1,
				Errors: []ledger.RowError{{Line: 1, Reason: "row has too few columns"}},
			}

			report := store.ImportBatch(ctx, parsed)
			Expect(report.Errors).To(Equal(1))
			Expect(report.Detail).To(HaveLen(1))
		})
	})

	Context("Transactions", func() {
		It("orders by date with the fingerprint as tie-break", func() {
			rows := pgxmock.NewRows([]string{"id", "tx_date", "fund", "money_source", "activity",
				"units", "unit_price", "amount", "source_type", "source_id", "external_id",
				"transaction_hash", "fuzzy_hash", "enhanced_hash"})

			dbPool.ExpectBegin()
			dbPool.ExpectQuery(`FROM transactions WHERE 1=1 ORDER BY tx_date ASC, transaction_hash ASC`).
				WillReturnRows(rows)
			dbPool.ExpectCommit()

			_, err := store.Transactions(ctx, ledger.Filter{})
			Expect(err).To(BeNil())
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
		})
	})

	Context("EarliestDate", func() {
		It("returns ErrNoTransactions for an empty ledger", func() {
			dbPool.ExpectBegin()
			dbPool.ExpectQuery(`SELECT MIN\(tx_date\) FROM transactions`).
				WillReturnRows(pgxmock.NewRows([]string{"min"}).AddRow(nil))
			dbPool.ExpectCommit()

			_, err := store.EarliestDate(ctx)
			Expect(err).To(MatchError(ledger.ErrNoTransactions))
		})
	})
})
