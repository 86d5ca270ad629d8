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
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// Sync sources reassign opaque transaction IDs whenever a data connection is
// re-authorized. The fingerprints below recognize the same economic event
// under a different external ID; they are the durable transaction identity.
//
// All fingerprints fold fund/activity/account to lower case and format the
// date as 2006-01-02. Amounts are fixed to two decimals; units and prices use
// the minimal float form so the fingerprint distinguishes share counts.

func hashFields(fields ...string) string {
	h := blake3.New()
	for i, f := range fields {
		if i > 0 {
			_, _ = h.Write([]byte{'|'})
		}
		_, _ = h.Write([]byte(f))
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// TransactionHash is the primary identity key: date|amount|fund|activity
func TransactionHash(date time.Time, amount float64, fund string, activity string) string {
	return hashFields(
		date.Format(DateOnly),
		formatAmount(amount),
		strings.ToLower(fund),
		strings.ToLower(activity),
	)
}

// FuzzyHash matches across activity-label drift: date|amount|fund
func FuzzyHash(date time.Time, amount float64, fund string) string {
	return hashFields(
		date.Format(DateOnly),
		formatAmount(amount),
		strings.ToLower(fund),
	)
}

// EnhancedHash distinguishes transactions sharing date/amount/fund but with
// different share counts or prices: date|fund|units|unitPrice
func EnhancedHash(date time.Time, fund string, units float64, unitPrice float64) string {
	return hashFields(
		date.Format(DateOnly),
		strings.ToLower(fund),
		formatQuantity(units),
		formatQuantity(unitPrice),
	)
}

// DividendHash fingerprints dividend records: date|fund|account|amount
func DividendHash(date time.Time, fund string, account string, amount float64) string {
	return hashFields(
		date.Format(DateOnly),
		strings.ToLower(fund),
		strings.ToLower(account),
		formatAmount(amount),
	)
}

// Fingerprint computes and assigns all three transaction fingerprints
func (t *Transaction) Fingerprint() {
	t.TransactionHash = TransactionHash(t.Date, t.Amount, t.Fund, t.Activity)
	t.FuzzyHash = FuzzyHash(t.Date, t.Amount, t.Fund)
	t.EnhancedHash = EnhancedHash(t.Date, t.Fund, t.Units, t.UnitPrice)
}
