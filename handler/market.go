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

package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nest-vault/nv-api/marketcal"
)

type marketStatusResponse struct {
	Status     string `json:"status"`
	TradingDay bool   `json:"trading_day"`
	AsOf       string `json:"as_of"`
}

// GetMarketStatus reports the current trading-session state
func GetMarketStatus(c *fiber.Ctx) error {
	now := time.Now()
	return c.JSON(marketStatusResponse{
		Status:     marketcal.StatusAt(now),
		TradingDay: marketcal.IsMarketDay(now),
		AsOf:       now.UTC().Format(time.RFC3339),
	})
}
