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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nest-vault/nv-api/ledger"
)

var _ = Describe("Transaction fingerprints", func() {
	var date time.Time

	BeforeEach(func() {
		date = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	})

	Context("TransactionHash", func() {
		It("is deterministic", func() {
			a := ledger.TransactionHash(date, -500.00, "VTI", "Buy")
			b := ledger.TransactionHash(date, -500.00, "VTI", "Buy")
			Expect(a).To(Equal(b))
		})

		It("is 16 hex characters", func() {
			h := ledger.TransactionHash(date, -500.00, "VTI", "Buy")
			Expect(h).To(HaveLen(16))
			Expect(h).To(MatchRegexp(`^[0-9a-f]{16}$`))
		})

		It("ignores fund and activity case", func() {
			a := ledger.TransactionHash(date, -500.00, "VTI", "Buy")
			b := ledger.TransactionHash(date, -500.00, "vti", "BUY")
			Expect(a).To(Equal(b))
		})

		It("normalizes amounts to two decimals", func() {
			a := ledger.TransactionHash(date, -500, "VTI", "Buy")
			b := ledger.TransactionHash(date, -500.004, "VTI", "Buy")
			Expect(a).To(Equal(b))
		})

		It("changes when the amount changes", func() {
			a := ledger.TransactionHash(date, -500.00, "VTI", "Buy")
			b := ledger.TransactionHash(date, -500.01, "VTI", "Buy")
			Expect(a).NotTo(Equal(b))
		})

		It("changes when the date changes", func() {
			a := ledger.TransactionHash(date, -500.00, "VTI", "Buy")
			b := ledger.TransactionHash(date.AddDate(0, 0, 1), -500.00, "VTI", "Buy")
			Expect(a).NotTo(Equal(b))
		})
	})

	Context("FuzzyHash", func() {
		It("matches across activity-label drift", func() {
			buy := &ledger.Transaction{Date: date, Fund: "VTI", Activity: "Buy", Amount: -500}
			purchase := &ledger.Transaction{Date: date, Fund: "VTI", Activity: "Purchase", Amount: -500}
			buy.Fingerprint()
			purchase.Fingerprint()

			Expect(buy.TransactionHash).NotTo(Equal(purchase.TransactionHash))
			Expect(buy.FuzzyHash).To(Equal(purchase.FuzzyHash))
		})
	})

	Context("EnhancedHash", func() {
		It("distinguishes same-amount rows with different share counts", func() {
			a := ledger.EnhancedHash(date, "VTI", 2.5, 200)
			b := ledger.EnhancedHash(date, "VTI", 5, 100)
			Expect(a).NotTo(Equal(b))
		})

		It("ignores the cash amount", func() {
			first := &ledger.Transaction{Date: date, Fund: "VTI", Activity: "Buy", Units: 2, UnitPrice: 100, Amount: -200}
			second := &ledger.Transaction{Date: date, Fund: "VTI", Activity: "Buy", Units: 2, UnitPrice: 100, Amount: -200.50}
			first.Fingerprint()
			second.Fingerprint()
			Expect(first.EnhancedHash).To(Equal(second.EnhancedHash))
		})
	})

	Context("DividendHash", func() {
		It("separates the same dividend in different accounts", func() {
			a := ledger.DividendHash(date, "SCHD", "IRA", 12.34)
			b := ledger.DividendHash(date, "SCHD", "Brokerage", 12.34)
			Expect(a).NotTo(Equal(b))
		})
	})

	Context("Fingerprint", func() {
		It("assigns all three fingerprints", func() {
			t := &ledger.Transaction{Date: date, Fund: "VTI", Activity: "Buy", Units: 2, UnitPrice: 100, Amount: -200}
			t.Fingerprint()
			Expect(t.TransactionHash).To(HaveLen(16))
			Expect(t.FuzzyHash).To(HaveLen(16))
			Expect(t.EnhancedHash).To(HaveLen(16))
		})
	})
})
