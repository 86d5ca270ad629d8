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
	"io"
	"os"

	"github.com/nest-vault/nv-api/common"
	"github.com/nest-vault/nv-api/database"
	"github.com/nest-vault/nv-api/ledger"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a batch of transactions",
	Long: `Normalize a pasted transaction batch (CSV or whitespace delimited) and
insert the resulting transactions into the ledger, skipping duplicates.
Reads from stdin when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()

		var raw []byte
		var err error
		if len(args) == 1 {
			raw, err = os.ReadFile(args[0])
			if err != nil {
				log.Fatal().Err(err).Str("Path", args[0]).Msg("could not read import file")
			}
		} else {
			raw, err = io.ReadAll(os.Stdin)
			if err != nil {
				log.Fatal().Err(err).Msg("could not read stdin")
			}
		}

		parsed := ledger.ParseManualBatch(string(raw))
		if parsed.Total == 0 && len(parsed.Errors) == 0 {
			log.Fatal().Msg("no transactions found in input")
		}

		ctx := context.Background()
		if err := database.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}

		report := ledger.NewStore().ImportBatch(ctx, parsed)
		fmt.Printf("imported %d of %d transactions (%d duplicates, %d errors)\n",
			report.Imported, report.Total, report.Duplicates, report.Errors)
		for _, detail := range report.Detail {
			fmt.Printf("  line %d: %s\n", detail.Line, detail.Reason)
		}
	},
}
