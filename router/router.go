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

package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/nest-vault/nv-api/handler"
)

// SetupRoutes registers the API routes
func SetupRoutes(app *fiber.App) {
	api := app.Group("/v1")
	api.Get("/", handler.Ping)

	// Transactions
	transactions := api.Group("/transactions")
	transactions.Get("/", handler.ListTransactions)
	transactions.Get("/export", handler.ExportTransactions)
	transactions.Post("/import", handler.ImportTransactions)
	transactions.Post("/sync", handler.ImportSyncTransactions)

	// Portfolio
	portfolio := api.Group("/portfolio")
	portfolio.Get("/", handler.GetPortfolio)
	portfolio.Get("/funds", handler.GetFundTotals)

	// Snapshots
	snapshots := api.Group("/snapshots")
	snapshots.Get("/", handler.ListSnapshotDates)
	snapshots.Get("/:date", handler.GetSnapshot)
	snapshots.Post("/", handler.CreateSnapshot)
	snapshots.Post("/rebuild", handler.RebuildSnapshots)
	snapshots.Post("/backfill", handler.BackfillSnapshots)
	snapshots.Post("/backfill-prices", handler.BackfillSnapshotPrices)

	// Market calendar
	market := api.Group("/market")
	market.Get("/status", handler.GetMarketStatus)
}
