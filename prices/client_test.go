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

package prices

import (
	"context"
	"time"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func mustDate(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

var _ = Describe("Client", func() {
	var (
		client *Client
		ctx    context.Context
	)

	BeforeEach(func() {
		client = NewClient("https://api.tiingo.com", "TEST_TOKEN", []string{"VTI", "VOO"}, 0, nil)
		httpmock.ActivateNonDefault(client.httpc)
		ctx = context.Background()
	})

	AfterEach(func() {
		httpmock.DeactivateAndReset()
	})

	Context("LivePrices", func() {
		It("parses quotes for the tracked tickers", func() {
			httpmock.RegisterResponder("GET", "https://api.tiingo.com/iex",
				httpmock.NewStringResponder(200, `[
					{"ticker": "VTI", "tngoLast": 250.50, "prevClose": 248.00, "timestamp": "2025-07-15T15:59:00+00:00"},
					{"ticker": "VOO", "tngoLast": 520.25, "prevClose": 519.00, "timestamp": "2025-07-15T15:59:00+00:00"}
				]`))

			quotes, err := client.LivePrices(ctx)
			Expect(err).To(BeNil())
			Expect(quotes).To(HaveLen(2))
			Expect(quotes["VTI"].Price).To(Equal(250.50))
			Expect(quotes["VTI"].ChangePercent).To(BeNumerically("~", 1.008, 0.001))
			Expect(quotes["VOO"].Price).To(Equal(520.25))
		})

		It("drops quotes with non-positive prices", func() {
			httpmock.RegisterResponder("GET", "https://api.tiingo.com/iex",
				httpmock.NewStringResponder(200, `[
					{"ticker": "VTI", "tngoLast": 0, "prevClose": 248.00}
				]`))

			quotes, err := client.LivePrices(ctx)
			Expect(err).To(BeNil())
			Expect(quotes).To(BeEmpty())
		})

		It("returns an error for a provider failure", func() {
			httpmock.RegisterResponder("GET", "https://api.tiingo.com/iex",
				httpmock.NewStringResponder(403, `{"detail": "invalid token"}`))

			_, err := client.LivePrices(ctx)
			Expect(err).To(MatchError(ErrProviderStatus))
		})
	})

	Context("HistoricalCloses", func() {
		It("keys closes by calendar date and prefers the adjusted close", func() {
			httpmock.RegisterResponder("GET", "https://api.tiingo.com/tiingo/daily/vti/prices",
				httpmock.NewStringResponder(200, `[
					{"date": "2025-07-14T00:00:00.000Z", "close": 249.00, "adjClose": 248.50},
					{"date": "2025-07-15T00:00:00.000Z", "close": 250.50, "adjClose": 0}
				]`))

			closes, err := client.HistoricalCloses(ctx,
				"VTI",
				mustDate("2025-07-14"),
				mustDate("2025-07-15"))
			Expect(err).To(BeNil())
			Expect(closes).To(HaveLen(2))
			Expect(closes["2025-07-14"]).To(Equal(248.50))
			Expect(closes["2025-07-15"]).To(Equal(250.50))
		})
	})
})
