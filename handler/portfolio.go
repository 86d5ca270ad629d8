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
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nest-vault/nv-api/ledger"
	"github.com/nest-vault/nv-api/portfolio"
	"github.com/nest-vault/nv-api/prices"
	"github.com/rs/zerolog/log"
)

// currentView replays the full ledger and values it with live quotes when a
// provider is configured
func currentView(c *fiber.Ctx) (*portfolio.View, error) {
	trxs, err := ledgerStore.Transactions(c.Context(), ledger.Filter{})
	if err != nil {
		log.Error().Err(err).Msg("could not load ledger for portfolio view")
		return nil, fiber.ErrInternalServerError
	}
	if len(trxs) == 0 {
		return nil, fiber.NewError(fiber.StatusNotFound, ledger.ErrNoTransactions.Error())
	}
	portfolio.SortTransactions(trxs)

	var quotes map[string]prices.Price
	if provider != nil {
		live, err := provider.LivePrices(c.Context())
		if err != nil {
			log.Warn().Err(err).Msg("live prices unavailable for portfolio view")
		} else {
			resolver := prices.NewResolver(fundMap, live, nil)
			funds := make([]string, 0, 8)
			seen := make(map[string]bool, 8)
			for _, t := range trxs {
				if !seen[t.Fund] {
					seen[t.Fund] = true
					funds = append(funds, t.Fund)
				}
			}
			quotes = resolver.LiveMap(funds, time.Now())
		}
	}

	return portfolio.Replay(trxs, quotes), nil
}

// GetPortfolio returns the current valued portfolio view
func GetPortfolio(c *fiber.Ctx) error {
	view, err := currentView(c)
	if err != nil {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return fiberErr
		}
		return fiber.ErrInternalServerError
	}
	return c.JSON(view)
}

// GetFundTotals returns per-fund rollups of the current open positions
func GetFundTotals(c *fiber.Ctx) error {
	view, err := currentView(c)
	if err != nil {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return fiberErr
		}
		return fiber.ErrInternalServerError
	}
	return c.JSON(view.FundTotals())
}
