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
	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/nest-vault/nv-api/ledger"
	"github.com/rs/zerolog/log"
)

// ImportTransactions normalizes a pasted manual batch (CSV or whitespace
// delimited) and inserts the resulting transactions, skipping duplicates.
// The response is the import report; malformed rows are reported, not fatal.
func ImportTransactions(c *fiber.Ctx) error {
	raw := string(c.Body())
	parsed := ledger.ParseManualBatch(raw)
	if parsed.Total == 0 && len(parsed.Errors) == 0 {
		return fiber.ErrBadRequest
	}

	report := ledgerStore.ImportBatch(c.Context(), parsed)
	return c.JSON(report)
}

type syncImportRequest struct {
	ConnectionID string              `json:"connection_id"`
	Records      []ledger.SyncRecord `json:"records"`
}

// ImportSyncTransactions ingests records from an account aggregator. Dedup
// matches on external id as well as the content fingerprint, so a re-linked
// connection re-sending history under fresh external ids inserts nothing.
func ImportSyncTransactions(c *fiber.Ctx) error {
	var req syncImportRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		log.Warn().Err(err).Msg("could not parse sync import request")
		return fiber.ErrBadRequest
	}
	if req.ConnectionID == "" || len(req.Records) == 0 {
		return fiber.ErrBadRequest
	}

	parsed := ledger.NormalizeSyncBatch(req.ConnectionID, req.Records)
	report := ledgerStore.ImportBatch(c.Context(), parsed)
	return c.JSON(report)
}

// ListTransactions returns ledger entries in replay order, optionally
// filtered by date range, fund, and money source
func ListTransactions(c *fiber.Ctx) error {
	filter, err := filterFromQuery(c)
	if err != nil {
		return err
	}

	trxs, err := ledgerStore.Transactions(c.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("could not list transactions")
		return fiber.ErrInternalServerError
	}
	return c.JSON(trxs)
}

// ExportTransactions streams the filtered ledger as CSV
func ExportTransactions(c *fiber.Ctx) error {
	filter, err := filterFromQuery(c)
	if err != nil {
		return err
	}

	trxs, err := ledgerStore.Transactions(c.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("could not export transactions")
		return fiber.ErrInternalServerError
	}

	csv, err := ledger.ExportCSV(trxs)
	if err != nil {
		log.Error().Err(err).Msg("could not render transaction csv")
		return fiber.ErrInternalServerError
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="transactions.csv"`)
	return c.SendString(csv)
}

func filterFromQuery(c *fiber.Ctx) (ledger.Filter, error) {
	begin, err := parseDateQuery(c, "begin")
	if err != nil {
		return ledger.Filter{}, err
	}
	end, err := parseDateQuery(c, "end")
	if err != nil {
		return ledger.Filter{}, err
	}
	return ledger.Filter{
		Begin:       begin,
		End:         end,
		Fund:        c.Query("fund"),
		MoneySource: c.Query("moneySource"),
	}, nil
}
