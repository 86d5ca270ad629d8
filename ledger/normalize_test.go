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

var _ = Describe("ParseManualBatch", func() {
	Context("with a quoted CSV batch", func() {
		It("parses rows and skips the header", func() {
			raw := "date,fund,money_source,activity,units,unit_price,amount\n" +
				"2025-03-14,VTI,Employee PreTax,Buy,2.5,200.00,\"(500.00)\"\n" +
				"2025-03-15,\"0899 Vanguard 500 Index Fund Adm\",Employer Match,Contribution,1.0,25.00,\"$1,250.00\"\n"

			res := ledger.ParseManualBatch(raw)
			Expect(res.Total).To(Equal(2))
			Expect(res.Errors).To(BeEmpty())
			Expect(res.Transactions).To(HaveLen(2))

			first := res.Transactions[0]
			Expect(first.Fund).To(Equal("VTI"))
			Expect(first.MoneySource).To(Equal("Employee PreTax"))
			Expect(first.Activity).To(Equal("Buy"))
			Expect(first.Units).To(Equal(2.5))
			Expect(first.UnitPrice).To(Equal(200.00))
			Expect(first.Amount).To(Equal(-500.00))
			Expect(first.SourceType).To(Equal(ledger.SourceTypeManual))
			Expect(first.TransactionHash).To(HaveLen(16))

			second := res.Transactions[1]
			Expect(second.Fund).To(Equal("0899 Vanguard 500 Index Fund Adm"))
			Expect(second.Amount).To(Equal(1250.00))
		})
	})

	Context("with a whitespace-delimited batch", func() {
		It("parses tab and multi-space separated rows", func() {
			raw := "Date\tFund\tMoney Source\tActivity\tUnits\tUnit Price\tAmount\n" +
				"3/14/2025\tVTI\tEmployee PreTax\tBuy\t2.5\t200.00\t500.00-\n" +
				"03/15/2025  SCHD  Employee PreTax  Dividend  0  0  12.34\n"

			res := ledger.ParseManualBatch(raw)
			Expect(res.Total).To(Equal(2))
			Expect(res.Errors).To(BeEmpty())

			Expect(res.Transactions[0].Date).To(Equal(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)))
			Expect(res.Transactions[0].Amount).To(Equal(-500.00))
			Expect(res.Transactions[1].Fund).To(Equal("SCHD"))
			Expect(res.Transactions[1].Amount).To(Equal(12.34))
		})
	})

	Context("with malformed rows", func() {
		It("reports short rows without failing the batch", func() {
			raw := "2025-03-14\tVTI\tEmployee PreTax\tBuy\t2.5\t200.00\t-500.00\n" +
				"2025-03-15\tVTI\tBuy\n"

			res := ledger.ParseManualBatch(raw)
			Expect(res.Total).To(Equal(2))
			Expect(res.Transactions).To(HaveLen(1))
			Expect(res.Errors).To(HaveLen(1))
			Expect(res.Errors[0].Line).To(Equal(2))
			Expect(res.Errors[0].Reason).To(ContainSubstring("too few columns"))
		})

		It("keeps reading past a malformed quoted record", func() {
			raw := "date,fund,money_source,activity,units,unit_price,amount\n" +
				"2025-03-14,VTI,Employee PreTax,Buy,2.5,200.00,\"(500.00)\"\n" +
				"2025-03-15,VT\"I,Employee PreTax,Buy,1.0,100.00,-100.00\n" +
				"2025-03-16,SCHD,Employee PreTax,Dividend,0,0,12.34\n"

			res := ledger.ParseManualBatch(raw)
			Expect(res.Total).To(Equal(3))
			Expect(res.Transactions).To(HaveLen(2))
			Expect(res.Transactions[0].Fund).To(Equal("VTI"))
			Expect(res.Transactions[1].Fund).To(Equal("SCHD"))
			Expect(res.Errors).To(HaveLen(1))
			Expect(res.Errors[0].Line).To(Equal(3))
			Expect(res.Errors[0].Reason).To(ContainSubstring("quote"))
		})

		It("reports rows with an unparseable date", func() {
			raw := "not-a-date\tVTI\tEmployee PreTax\tBuy\t2.5\t200.00\t-500.00\n"

			res := ledger.ParseManualBatch(raw)
			Expect(res.Transactions).To(BeEmpty())
			Expect(res.Errors).To(HaveLen(1))
			Expect(res.Errors[0].Reason).To(ContainSubstring("date"))
		})

		It("returns an empty result for empty input", func() {
			res := ledger.ParseManualBatch("")
			Expect(res.Total).To(BeZero())
			Expect(res.Transactions).To(BeEmpty())
			Expect(res.Errors).To(BeEmpty())
		})
	})
})

var _ = Describe("ParseDate", func() {
	DescribeTable("accepted formats",
		func(raw string, expected time.Time) {
			d, err := ledger.ParseDate(raw)
			Expect(err).To(BeNil())
			Expect(d).To(Equal(expected))
		},
		Entry("ISO", "2025-03-14", time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)),
		Entry("US short", "3/14/2025", time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)),
		Entry("US padded", "03/14/2025", time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)),
		Entry("two-digit year below pivot", "3/14/25", time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)),
		Entry("two-digit year above pivot", "3/14/99", time.Date(1999, 3, 14, 0, 0, 0, 0, time.UTC)),
		Entry("surrounding whitespace", " 2025-03-14 ", time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)),
	)

	It("rejects garbage", func() {
		_, err := ledger.ParseDate("14th of March")
		Expect(err).To(MatchError(ledger.ErrMissingDate))
	})

	It("rejects empty input", func() {
		_, err := ledger.ParseDate("")
		Expect(err).To(MatchError(ledger.ErrMissingDate))
	})
})

var _ = Describe("ParseNumber", func() {
	DescribeTable("normalization",
		func(raw string, expected float64) {
			Expect(ledger.ParseNumber(raw)).To(Equal(expected))
		},
		Entry("plain", "500.25", 500.25),
		Entry("parenthesized negative", "(500.25)", -500.25),
		Entry("trailing minus", "500.25-", -500.25),
		Entry("leading minus", "-500.25", -500.25),
		Entry("currency symbol and thousands separator", "$1,250.00", 1250.00),
		Entry("parenthesized currency", "($1,250.00)", -1250.00),
		Entry("percent", "12.5%", 12.5),
		Entry("empty", "", 0.0),
		Entry("garbage", "n/a", 0.0),
	)
})
