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

package common_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nest-vault/nv-api/common"
)

var _ = Describe("GetTimezone", func() {
	It("returns the exchange reference timezone", func() {
		tz := common.GetTimezone()
		Expect(tz.String()).To(Equal("America/New_York"))
	})
})

var _ = Describe("MidnightUTC", func() {
	It("truncates a timestamp to its UTC calendar date", func() {
		t := time.Date(2025, 3, 14, 18, 45, 12, 999, time.UTC)
		Expect(common.MidnightUTC(t)).To(Equal(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)))
	})

	It("converts zoned timestamps to their UTC date", func() {
		// 23:00 in New York on Mar 14 is already Mar 15 in UTC
		t := time.Date(2025, 3, 14, 23, 0, 0, 0, common.GetTimezone())
		Expect(common.MidnightUTC(t)).To(Equal(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)))
	})
})
