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

// Package marketcal reports the US equity trading-session state for a
// timestamp. StatusAt is a pure function of its input so snapshot backfill
// stays deterministic; daylight-saving shifts come from the America/New_York
// tz rules.
package marketcal

import (
	"time"

	"github.com/nest-vault/nv-api/common"
)

const (
	StatusOpen       = "open"
	StatusClosed     = "closed"
	StatusPreMarket  = "pre-market"
	StatusAfterHours = "after-hours"
)

// MarketHours bound a session as HHMM integers in exchange-local time
type MarketHours struct {
	Open  int
	Close int
}

var (
	RegularHours = MarketHours{
		Open:  930,
		Close: 1600,
	}
	ExtendedHours = MarketHours{
		Open:  700,
		Close: 2000,
	}
)

// StatusAt returns the session state at t. Weekends are always closed;
// weekdays split into pre-market (extended open to regular open), open,
// after-hours (regular close to extended close), and closed otherwise.
func StatusAt(t time.Time) string {
	local := t.In(common.GetTimezone())

	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return StatusClosed
	}

	timeOfDay := local.Hour()*100 + local.Minute()
	switch {
	case timeOfDay >= RegularHours.Open && timeOfDay < RegularHours.Close:
		return StatusOpen
	case timeOfDay >= ExtendedHours.Open && timeOfDay < RegularHours.Open:
		return StatusPreMarket
	case timeOfDay >= RegularHours.Close && timeOfDay < ExtendedHours.Close:
		return StatusAfterHours
	default:
		return StatusClosed
	}
}

// IsMarketDay reports whether t falls on a trading day
func IsMarketDay(t time.Time) bool {
	local := t.In(common.GetTimezone())
	return local.Weekday() != time.Saturday && local.Weekday() != time.Sunday
}
