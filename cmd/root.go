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
	"fmt"
	"os"
	"time"

	"github.com/nest-vault/nv-api/common"
	"github.com/nest-vault/nv-api/ledger"
	"github.com/nest-vault/nv-api/prices"
	"github.com/nest-vault/nv-api/snapshot"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Database
	viper.BindEnv("database.url", "DATABASE_URL")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	viper.BindPFlag("database.url", rootCmd.PersistentFlags().Lookup("database-url"))

	// Logging configuration
	viper.BindEnv("log.level", "NV_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-level", "warning", "Logging level")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	viper.BindEnv("log.report_caller", "NV_LOG_REPORT_CALLER")
	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	viper.BindPFlag("log.report_caller", rootCmd.PersistentFlags().Lookup("log-report-caller"))

	viper.BindEnv("log.output", "NV_LOG_OUTPUT")
	rootCmd.PersistentFlags().String("log-output", "stdout", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	viper.BindPFlag("log.output", rootCmd.PersistentFlags().Lookup("log-output"))

	viper.BindEnv("log.pretty", "NV_LOG_PRETTY")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "Print logs in human readable format")
	viper.BindPFlag("log.pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))

	// Price provider
	viper.BindEnv("prices.token", "NV_PRICES_TOKEN")
	rootCmd.PersistentFlags().String("prices-token", "", "Price provider API token")
	viper.BindPFlag("prices.token", rootCmd.PersistentFlags().Lookup("prices-token"))

	viper.BindEnv("prices.base_url", "NV_PRICES_BASE_URL")
	rootCmd.PersistentFlags().String("prices-base-url", "https://api.tiingo.com", "Price provider base URL")
	viper.BindPFlag("prices.base_url", rootCmd.PersistentFlags().Lookup("prices-base-url"))

	viper.BindEnv("prices.delay_ms", "NV_PRICES_DELAY_MS")
	rootCmd.PersistentFlags().Int("prices-delay-ms", 250, "Minimum delay between price provider calls")
	viper.BindPFlag("prices.delay_ms", rootCmd.PersistentFlags().Lookup("prices-delay-ms"))

	// Fund basket
	viper.BindEnv("funds.config", "NV_FUNDS_CONFIG")
	rootCmd.PersistentFlags().String("funds-config", "", "Path to fund basket TOML file")
	viper.BindPFlag("funds.config", rootCmd.PersistentFlags().Lookup("funds-config"))

	// Cache
	viper.SetDefault("cache.size", 1000)
	viper.SetDefault("cache.ttl_seconds", 300)
	viper.BindEnv("cache.redis_url", "REDIS_URL")
	rootCmd.PersistentFlags().String("cache-redis-url", "", "Redis connection string, if blank use in-process cache only")
	viper.BindPFlag("cache.redis_url", rootCmd.PersistentFlags().Lookup("cache-redis-url"))
}

var rootCmd = &cobra.Command{
	Use:     "nvapi",
	Version: common.Version,
	Short:   "Nest Vault tracks retirement and brokerage accounts",
	Long:    `A portfolio tracker that normalizes account transactions, replays them into positions, and reconciles daily snapshots.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadFunds resolves the fund basket from config, falling back to the
// built-in defaults
func loadFunds() *prices.FundMap {
	path := viper.GetString("funds.config")
	if path == "" {
		return prices.DefaultFundMap()
	}
	funds, err := prices.LoadFundMap(path)
	if err != nil {
		log.Fatal().Err(err).Str("Path", path).Msg("could not load fund basket")
	}
	return funds
}

// buildProvider creates the price client when a token is configured, nil
// otherwise; every caller degrades to transaction-implied prices
func buildProvider(funds *prices.FundMap, cache *common.Cache) prices.Provider {
	token := viper.GetString("prices.token")
	if token == "" {
		log.Info().Msg("no price provider token configured, using transaction-implied prices")
		return nil
	}
	delay := time.Duration(viper.GetInt("prices.delay_ms")) * time.Millisecond
	return prices.NewClient(viper.GetString("prices.base_url"), token, funds.Tickers(), delay, cache)
}

// buildReconciler assembles the snapshot reconciler and its stores
func buildReconciler(funds *prices.FundMap, provider prices.Provider) (*ledger.Store, snapshot.Store, *snapshot.Reconciler) {
	ledgerStore := ledger.NewStore()
	snapStore := snapshot.NewPgStore()
	return ledgerStore, snapStore, snapshot.New(ledgerStore, snapStore, provider, funds)
}
