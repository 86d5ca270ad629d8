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

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/nest-vault/nv-api/common"
	"github.com/nest-vault/nv-api/database"
	"github.com/nest-vault/nv-api/ledger"
	"github.com/nest-vault/nv-api/snapshot"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	snapshotForce bool
	snapshotBegin string
	snapshotEnd   string
)

func init() {
	snapshotCreateCmd.Flags().BoolVar(&snapshotForce, "force", false, "Replace an existing snapshot")
	snapshotCmd.AddCommand(snapshotCreateCmd)

	snapshotRebuildCmd.Flags().StringVar(&snapshotBegin, "begin", "", "First date to rebuild (YYYY-MM-DD)")
	snapshotRebuildCmd.Flags().StringVar(&snapshotEnd, "end", "", "Last date to rebuild (YYYY-MM-DD)")
	snapshotCmd.AddCommand(snapshotRebuildCmd)

	snapshotBackfillCmd.Flags().StringVar(&snapshotBegin, "begin", "", "First date to backfill (YYYY-MM-DD), defaults to earliest transaction")
	snapshotBackfillCmd.Flags().StringVar(&snapshotEnd, "end", "", "Last date to backfill (YYYY-MM-DD), defaults to today")
	snapshotCmd.AddCommand(snapshotBackfillCmd)

	snapshotCmd.AddCommand(snapshotBackfillPricesCmd)

	rootCmd.AddCommand(snapshotCmd)
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage daily portfolio snapshots",
}

// snapshotSetup connects shared infrastructure and builds the reconciler
func snapshotSetup() *snapshot.Reconciler {
	common.SetupLogging()

	if err := database.Connect(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("could not connect to database")
	}

	funds := loadFunds()
	provider := buildProvider(funds, nil)
	_, _, reconciler := buildReconciler(funds, provider)
	return reconciler
}

func parseDateArg(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}
	d, err := ledger.ParseDate(raw)
	if err != nil {
		log.Fatal().Str("Date", raw).Msg("could not parse date argument")
	}
	return d
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create [date]",
	Short: "Create a snapshot for a date (default today)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reconciler := snapshotSetup()

		date := time.Now()
		if len(args) == 1 {
			date = parseDateArg(args[0], date)
		}

		source := snapshot.SourceAutomated
		if snapshotForce {
			source = snapshot.SourceManualRebuild
		}

		snap, err := reconciler.Create(context.Background(), date, snapshotForce, source)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create snapshot")
		}
		fmt.Printf("snapshot %s: market value %.2f, cost basis %.2f, gain/loss %.2f\n",
			snap.Date.Format(ledger.DateOnly), snap.MarketValue, snap.CostBasis, snap.GainLoss)
	},
}

var snapshotRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Force-rebuild snapshots in a date range",
	Run: func(cmd *cobra.Command, args []string) {
		reconciler := snapshotSetup()

		if snapshotBegin == "" || snapshotEnd == "" {
			log.Fatal().Msg("rebuild requires --begin and --end")
		}
		begin := parseDateArg(snapshotBegin, time.Time{})
		end := parseDateArg(snapshotEnd, time.Time{})

		report, err := reconciler.RebuildRange(context.Background(), begin, end)
		if err != nil {
			log.Fatal().Err(err).Msg("could not rebuild snapshots")
		}
		fmt.Printf("rebuilt %d of %d snapshots (%d failed)\n", report.Rebuilt, report.Requested, report.Failed)
		for _, e := range report.Errors {
			fmt.Printf("  %s: %s\n", e.Date, e.Reason)
		}
	},
}

var snapshotBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Fill snapshot gaps from the transaction ledger",
	Run: func(cmd *cobra.Command, args []string) {
		reconciler := snapshotSetup()

		begin := parseDateArg(snapshotBegin, time.Time{})
		end := parseDateArg(snapshotEnd, time.Time{})

		report, err := reconciler.Backfill(context.Background(), begin, end)
		if err != nil {
			log.Fatal().Err(err).Msg("could not backfill snapshots")
		}
		fmt.Printf("created %d snapshots over %d dates (%d skipped, %d failed)\n",
			report.Created, report.Total, report.Skipped, report.Failed)
	},
}

var snapshotBackfillPricesCmd = &cobra.Command{
	Use:   "backfill-prices",
	Short: "Revalue existing snapshots with historical closing prices",
	Run: func(cmd *cobra.Command, args []string) {
		reconciler := snapshotSetup()

		report, err := reconciler.BackfillHistoricalPrices(context.Background())
		if err != nil {
			log.Fatal().Err(err).Msg("could not backfill historical prices")
		}
		fmt.Printf("repriced %d of %d snapshots (%d skipped, %d failed)\n",
			report.Created, report.Total, report.Skipped, report.Failed)
	},
}
