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
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// SourceTypeManual tags transactions entered through the text/CSV import
	SourceTypeManual = "manual"
	// SourceTypeSync tags transactions delivered by a brokerage sync source
	SourceTypeSync = "sync"
)

// Transaction is the canonical, immutable ledger entry. Every import path
// produces this shape exactly once; downstream components never re-interpret
// alternate field spellings.
type Transaction struct {
	ID          uuid.UUID
	Date        time.Time // calendar date at midnight UTC
	Fund        string
	MoneySource string
	Activity    string
	Units       float64 // negative = disposal
	UnitPrice   float64
	Amount      float64 // sign convention matches Units

	SourceType string
	SourceID   string // origin-specific id, e.g. sync connection id
	ExternalID string // external-system transaction id; NOT a durable identity

	// dedup fingerprints; hashes, not external IDs, are the durable identity
	TransactionHash string
	FuzzyHash       string
	EnhancedHash    string
}

// DateOnly is the wire format for ledger and snapshot dates
const DateOnly = "2006-01-02"

// ExportCSV renders transactions in the export file format
func ExportCSV(trxs []*Transaction) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := []string{"date", "fund", "money_source", "activity", "units", "unit_price", "amount", "source_type"}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, t := range trxs {
		row := []string{
			t.Date.Format(DateOnly),
			t.Fund,
			t.MoneySource,
			t.Activity,
			strconv.FormatFloat(t.Units, 'f', -1, 64),
			strconv.FormatFloat(t.UnitPrice, 'f', -1, 64),
			strconv.FormatFloat(t.Amount, 'f', 2, 64),
			t.SourceType,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	return sb.String(), w.Error()
}
