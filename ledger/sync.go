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
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SyncRecord is a raw row delivered by a brokerage sync source. The core
// never calls the source itself; batches arrive already fetched.
type SyncRecord struct {
	ExternalID  string  `json:"external_id"`
	TradeDate   string  `json:"trade_date"`
	Symbol      string  `json:"symbol"`
	Description string  `json:"description"`
	Account     string  `json:"account"`
	Units       float64 `json:"units"`
	Price       float64 `json:"price"`
	Amount      float64 `json:"amount"`
}

// NormalizeSyncBatch converts sync rows into canonical transactions. The
// connection id becomes SourceID; the provider's transaction id is kept as
// ExternalID but identity rests on the fingerprints, because re-linking a
// connection reassigns every external id.
func NormalizeSyncBatch(connectionID string, records []SyncRecord) *ParseResult {
	res := &ParseResult{
		Transactions: make([]*Transaction, 0, len(records)),
		Errors:       make([]RowError, 0),
		Total:        len(records),
	}

	for i, rec := range records {
		line := i + 1

		date, err := ParseDate(rec.TradeDate)
		if err != nil {
			log.Debug().Int("Line", line).Str("TradeDate", rec.TradeDate).Msg("dropping sync row with bad trade date")
			res.Errors = append(res.Errors, RowError{Line: line, Reason: err.Error()})
			continue
		}

		fund := strings.TrimSpace(rec.Symbol)
		if fund == "" {
			res.Errors = append(res.Errors, RowError{Line: line, Reason: ErrMissingFund.Error()})
			continue
		}

		t := &Transaction{
			ID:          uuid.New(),
			Date:        date,
			Fund:        fund,
			MoneySource: strings.TrimSpace(rec.Account),
			Activity:    strings.TrimSpace(rec.Description),
			Units:       rec.Units,
			UnitPrice:   rec.Price,
			Amount:      rec.Amount,
			SourceType:  SourceTypeSync,
			SourceID:    connectionID,
			ExternalID:  rec.ExternalID,
		}
		t.Fingerprint()
		res.Transactions = append(res.Transactions, t)
	}

	return res
}
