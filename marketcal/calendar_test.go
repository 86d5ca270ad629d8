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

package marketcal_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nest-vault/nv-api/marketcal"
)

var _ = Describe("StatusAt", func() {
	DescribeTable("session boundaries in UTC",
		func(instant time.Time, expected string) {
			Expect(marketcal.StatusAt(instant)).To(Equal(expected))
		},
		// 2025-07-15 is a Tuesday; EDT is UTC-4
		Entry("summer one minute before the open", time.Date(2025, 7, 15, 13, 29, 0, 0, time.UTC), marketcal.StatusPreMarket),
		Entry("summer at the opening bell", time.Date(2025, 7, 15, 13, 30, 0, 0, time.UTC), marketcal.StatusOpen),
		Entry("summer mid-session", time.Date(2025, 7, 15, 17, 0, 0, 0, time.UTC), marketcal.StatusOpen),
		Entry("summer one minute before the close", time.Date(2025, 7, 15, 19, 59, 0, 0, time.UTC), marketcal.StatusOpen),
		Entry("summer at the closing bell", time.Date(2025, 7, 15, 20, 0, 0, 0, time.UTC), marketcal.StatusAfterHours),
		Entry("summer extended close", time.Date(2025, 7, 16, 0, 0, 0, 0, time.UTC), marketcal.StatusClosed),

		// 2025-01-14 is a Tuesday; EST is UTC-5, so the same UTC instant
		// falls an hour earlier in local time
		Entry("winter 13:30 UTC is still pre-market", time.Date(2025, 1, 14, 13, 30, 0, 0, time.UTC), marketcal.StatusPreMarket),
		Entry("winter at the opening bell", time.Date(2025, 1, 14, 14, 30, 0, 0, time.UTC), marketcal.StatusOpen),
		Entry("winter at the closing bell", time.Date(2025, 1, 14, 21, 0, 0, 0, time.UTC), marketcal.StatusAfterHours),

		Entry("before extended hours", time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC), marketcal.StatusClosed),
		Entry("start of extended hours", time.Date(2025, 7, 15, 11, 0, 0, 0, time.UTC), marketcal.StatusPreMarket),
		Entry("end of extended hours", time.Date(2025, 7, 16, 0, 0, 0, 0, time.UTC), marketcal.StatusClosed),

		Entry("Saturday mid-session time", time.Date(2025, 7, 19, 17, 0, 0, 0, time.UTC), marketcal.StatusClosed),
		Entry("Sunday mid-session time", time.Date(2025, 7, 20, 17, 0, 0, 0, time.UTC), marketcal.StatusClosed),
	)
})

var _ = Describe("IsMarketDay", func() {
	It("accepts weekdays", func() {
		Expect(marketcal.IsMarketDay(time.Date(2025, 7, 15, 17, 0, 0, 0, time.UTC))).To(BeTrue())
	})

	It("rejects weekends", func() {
		Expect(marketcal.IsMarketDay(time.Date(2025, 7, 19, 17, 0, 0, 0, time.UTC))).To(BeFalse())
		Expect(marketcal.IsMarketDay(time.Date(2025, 7, 20, 17, 0, 0, 0, time.UTC))).To(BeFalse())
	})
})

var _ = Describe("NextRun", func() {
	It("schedules the next firing on a trading day", func() {
		// Friday 2025-07-18 10:00 ET
		after := time.Date(2025, 7, 18, 14, 0, 0, 0, time.UTC)
		next, err := marketcal.NextRun("0 21 * * *", after)
		Expect(err).To(BeNil())
		Expect(next.Weekday()).To(Equal(time.Friday))
		Expect(next.Hour()).To(Equal(21))
	})

	It("skips weekend firings", func() {
		// Saturday 2025-07-19 10:00 ET; a daily spec must land on Monday
		after := time.Date(2025, 7, 19, 14, 0, 0, 0, time.UTC)
		next, err := marketcal.NextRun("0 21 * * *", after)
		Expect(err).To(BeNil())
		Expect(next.Weekday()).To(Equal(time.Monday))
	})

	It("rejects malformed cron specs", func() {
		_, err := marketcal.NextRun("not a cron spec", time.Now())
		Expect(err).NotTo(BeNil())
	})
})
