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

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/nest-vault/nv-api/ledger"
	"github.com/nest-vault/nv-api/snapshot"
	"github.com/rs/zerolog/log"
)

// ListSnapshotDates lists every date that has a snapshot
func ListSnapshotDates(c *fiber.Ctx) error {
	dates, err := snapStore.Dates(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("could not list snapshot dates")
		return fiber.ErrInternalServerError
	}

	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(ledger.DateOnly))
	}
	return c.JSON(out)
}

type snapshotDetail struct {
	Snapshot *snapshot.PortfolioSnapshot `json:"snapshot"`
	Holdings []*snapshot.HoldingSnapshot `json:"holdings"`
}

// GetSnapshot returns the snapshot for a date with its holding rows
func GetSnapshot(c *fiber.Ctx) error {
	date, err := ledger.ParseDate(c.Params("date"))
	if err != nil {
		return fiber.ErrBadRequest
	}

	snap, err := snapStore.Get(c.Context(), date)
	if err != nil {
		log.Error().Err(err).Time("Date", date).Msg("could not load snapshot")
		return fiber.ErrInternalServerError
	}
	if snap == nil {
		return fiber.ErrNotFound
	}

	holdings, err := snapStore.Holdings(c.Context(), date)
	if err != nil {
		log.Error().Err(err).Time("Date", date).Msg("could not load snapshot holdings")
		return fiber.ErrInternalServerError
	}

	return c.JSON(snapshotDetail{Snapshot: snap, Holdings: holdings})
}

type createSnapshotRequest struct {
	Date  string `json:"date"`
	Force bool   `json:"force"`
}

// CreateSnapshot replays the ledger through a date and persists the result.
// An existing snapshot is a 409 unless force is set.
func CreateSnapshot(c *fiber.Ctx) error {
	var req createSnapshotRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			log.Warn().Err(err).Msg("could not parse snapshot request")
			return fiber.ErrBadRequest
		}
	}

	date := time.Now()
	if req.Date != "" {
		var err error
		if date, err = ledger.ParseDate(req.Date); err != nil {
			return fiber.ErrBadRequest
		}
	}

	source := snapshot.SourceAutomated
	if req.Force {
		source = snapshot.SourceManualRebuild
	}

	snap, err := reconciler.Create(c.Context(), date, req.Force, source)
	if err != nil {
		switch {
		case errors.Is(err, snapshot.ErrSnapshotExists):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		case errors.Is(err, ledger.ErrNoTransactions):
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		default:
			log.Error().Err(err).Msg("could not create snapshot")
			return fiber.ErrInternalServerError
		}
	}
	return c.Status(fiber.StatusCreated).JSON(snap)
}

type rangeRequest struct {
	Begin string `json:"begin"`
	End   string `json:"end"`
}

func (r *rangeRequest) dates() (time.Time, time.Time, error) {
	var begin, end time.Time
	var err error
	if r.Begin != "" {
		if begin, err = ledger.ParseDate(r.Begin); err != nil {
			return begin, end, err
		}
	}
	if r.End != "" {
		if end, err = ledger.ParseDate(r.End); err != nil {
			return begin, end, err
		}
	}
	return begin, end, nil
}

// RebuildSnapshots force-recreates every snapshot in a date range
func RebuildSnapshots(c *fiber.Ctx) error {
	var req rangeRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.ErrBadRequest
	}
	if req.Begin == "" || req.End == "" {
		return fiber.ErrBadRequest
	}
	begin, end, err := req.dates()
	if err != nil {
		return fiber.ErrBadRequest
	}

	report, err := reconciler.RebuildRange(c.Context(), begin, end)
	if err != nil {
		log.Error().Err(err).Msg("could not rebuild snapshot range")
		return fiber.ErrInternalServerError
	}
	return c.JSON(report)
}

// BackfillSnapshots fills snapshot gaps from the ledger; begin and end are
// optional and default to the full ledger span
func BackfillSnapshots(c *fiber.Ctx) error {
	var req rangeRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return fiber.ErrBadRequest
		}
	}
	begin, end, err := req.dates()
	if err != nil {
		return fiber.ErrBadRequest
	}

	report, err := reconciler.Backfill(c.Context(), begin, end)
	if err != nil {
		if errors.Is(err, ledger.ErrNoTransactions) {
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}
		log.Error().Err(err).Msg("could not backfill snapshots")
		return fiber.ErrInternalServerError
	}
	return c.JSON(report)
}

// BackfillSnapshotPrices revalues existing snapshots with historical closes
func BackfillSnapshotPrices(c *fiber.Ctx) error {
	report, err := reconciler.BackfillHistoricalPrices(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("could not backfill historical prices")
		return fiber.ErrInternalServerError
	}
	return c.JSON(report)
}
