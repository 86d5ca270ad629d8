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
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/nest-vault/nv-api/common"
	"github.com/nest-vault/nv-api/database"
	"github.com/nest-vault/nv-api/handler"
	"github.com/nest-vault/nv-api/marketcal"
	"github.com/nest-vault/nv-api/middleware"
	"github.com/nest-vault/nv-api/observability/opentelemetry"
	"github.com/nest-vault/nv-api/router"
	"github.com/nest-vault/nv-api/snapshot"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	viper.BindEnv("server.port", "PORT")
	serveCmd.Flags().IntP("port", "p", 3000, "Port to run application server on")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	viper.BindEnv("snapshot.schedule", "NV_SNAPSHOT_SCHEDULE")
	serveCmd.Flags().String("snapshot-schedule", "0 21 * * 1-5", "Cron spec for the automated daily snapshot")
	viper.BindPFlag("snapshot.schedule", serveCmd.Flags().Lookup("snapshot-schedule"))

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the nv-api server",
	Long:  `Run HTTP server that implements the Nest Vault API`,
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()
		log.Info().Msg("initialized logging")

		// setup opentelemetry
		if viper.GetString("otlp.endpoint") != "" {
			shutdown, err := opentelemetry.Setup()
			if err != nil {
				log.Fatal().Err(err).Msg("could not initialize opentelemetry")
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					log.Error().Err(err).Msg("could not shutdown opentelemetry")
				}
			}()
		}

		// setup database
		if err := database.Connect(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}

		cache, err := common.NewCache(viper.GetInt("cache.size"),
			time.Duration(viper.GetInt("cache.ttl_seconds"))*time.Second,
			viper.GetString("cache.redis_url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not initialize cache")
		}

		funds := loadFunds()
		provider := buildProvider(funds, cache)
		ledgerStore, snapStore, reconciler := buildReconciler(funds, provider)
		handler.Initialize(ledgerStore, snapStore, reconciler, funds, provider)

		// Create new Fiber instance
		app := fiber.New()

		// shutdown cleanly on interrupt
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		go func() {
			sig := <-c // block until signal is read
			log.Info().Str("Signal", sig.String()).Msg("received signal, shutting down")
			if err := app.Shutdown(); err != nil {
				log.Fatal().Err(err).Msg("could not shutdown server")
			}
		}()

		// Configure CORS
		corsConfig := cors.Config{
			AllowOrigins: viper.GetString("server.cors_origins"),
			AllowHeaders: "*",
			AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		}
		app.Use(cors.New(corsConfig))

		// Setup logging middleware
		app.Use(middleware.NewLogger())

		// Setup routes
		router.SetupRoutes(app)

		// Schedule the automated end-of-day snapshot; the job only fires on
		// trading days and skips silently when the date already has one
		scheduler := gocron.NewScheduler(common.GetTimezone())
		scheduler.Cron(viper.GetString("snapshot.schedule")).Do(func() {
			now := time.Now()
			if !marketcal.IsMarketDay(now) {
				return
			}
			if _, err := reconciler.Create(context.Background(), now, false, snapshot.SourceAutomated); err != nil && !errors.Is(err, snapshot.ErrSnapshotExists) {
				log.Warn().Err(err).Msg("automated snapshot failed")
			}
		})
		scheduler.StartAsync()

		if next, err := marketcal.NextRun(viper.GetString("snapshot.schedule"), time.Now()); err == nil {
			log.Info().Time("NextRun", next).Msg("automated snapshot scheduled")
		}

		// Start server on http://${host}:${port}
		if err := app.Listen(":" + viper.GetString("server.port")); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	},
}
