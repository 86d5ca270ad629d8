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

package marketcal

import (
	"time"

	"github.com/nest-vault/nv-api/common"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const maxScheduleIters = 5000

// NextRun evaluates a standard cron spec in exchange-local time and returns
// the next firing that lands on a trading day. Used to schedule the
// automated end-of-day snapshot.
func NextRun(cronSpec string, after time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(cronSpec)
	if err != nil {
		log.Error().Err(err).Str("CronSpec", cronSpec).Msg("could not parse cron spec")
		return time.Time{}, err
	}

	next := after.In(common.GetTimezone())
	for i := 0; i < maxScheduleIters; i++ {
		next = schedule.Next(next)
		if IsMarketDay(next) {
			return next, nil
		}
	}

	log.Panic().Str("CronSpec", cronSpec).Msg("schedule never lands on a trading day")
	return time.Time{}, nil
}
