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

// Package handler implements the HTTP API. Handlers stay thin: parse the
// request, call into the domain packages, shape the response.
package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nest-vault/nv-api/ledger"
	"github.com/nest-vault/nv-api/prices"
	"github.com/nest-vault/nv-api/snapshot"
	"github.com/rs/zerolog/log"
)

var (
	ledgerStore *ledger.Store
	snapStore   snapshot.Store
	reconciler  *snapshot.Reconciler
	fundMap     *prices.FundMap
	provider    prices.Provider
)

// Initialize wires the handlers to their backing stores; call once at startup
func Initialize(ls *ledger.Store, ss snapshot.Store, rec *snapshot.Reconciler, funds *prices.FundMap, p prices.Provider) {
	ledgerStore = ls
	snapStore = ss
	reconciler = rec
	fundMap = funds
	provider = p
}

type PingResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message" example:"API is alive"`
	Time    string `json:"time" example:"2025-06-19T08:09:10.115924-05:00"`
}

func Ping(c *fiber.Ctx) error {
	now, err := time.Now().MarshalText()
	if err != nil {
		log.Error().Err(err).Msg("error while getting time in ping")
		return c.JSON(PingResponse{
			Status:  "error",
			Message: err.Error(),
		})
	}
	return c.JSON(PingResponse{
		Status:  "success",
		Message: "API is alive",
		Time:    string(now),
	})
}

// parseDateQuery reads an optional date query parameter; zero time when absent
func parseDateQuery(c *fiber.Ctx, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := ledger.ParseDate(raw)
	if err != nil {
		log.Warn().Str("Param", name).Str("Value", raw).Msg("could not parse date query parameter")
		return time.Time{}, fiber.ErrBadRequest
	}
	return d, nil
}
