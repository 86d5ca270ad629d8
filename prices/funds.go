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

package prices

import (
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

// FundMapping ties a fund display name to its public ticker. A nonzero
// ProxyRatio marks an instrument with no independent quote of its own: its
// unit value is the proxy ticker's price divided by the ratio. The ratio is
// versioned configuration, not a derived value.
type FundMapping struct {
	Fund       string  `toml:"fund"`
	Ticker     string  `toml:"ticker"`
	ProxyRatio float64 `toml:"proxy_ratio"`
}

type fundConfig struct {
	Funds []FundMapping `toml:"fund"`
}

// FundMap resolves fund names to tickers and applies proxy conversions
type FundMap struct {
	byFund map[string]FundMapping
}

// DefaultFundMap returns the tracked basket used when no config file is given
func DefaultFundMap() *FundMap {
	return newFundMap([]FundMapping{
		{Fund: "VTI", Ticker: "VTI"},
		{Fund: "QQQM", Ticker: "QQQM"},
		{Fund: "SCHD", Ticker: "SCHD"},
		{Fund: "DES", Ticker: "DES"},
		{Fund: "0899 Vanguard 500 Index Fund Adm", Ticker: "VOO", ProxyRatio: 15.577},
	})
}

// LoadFundMap reads the fund basket from a TOML file
func LoadFundMap(path string) (*FundMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("Path", path).Msg("could not read fund config")
		return nil, err
	}

	var cfg fundConfig
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		log.Error().Err(err).Str("Path", path).Msg("could not parse fund config")
		return nil, err
	}

	return newFundMap(cfg.Funds), nil
}

func newFundMap(mappings []FundMapping) *FundMap {
	m := &FundMap{byFund: make(map[string]FundMapping, len(mappings))}
	for _, fm := range mappings {
		m.byFund[strings.ToLower(fm.Fund)] = fm
	}
	return m
}

// Ticker returns the public ticker tracking the given fund
func (m *FundMap) Ticker(fund string) (string, bool) {
	fm, ok := m.byFund[strings.ToLower(fund)]
	if !ok {
		return "", false
	}
	return fm.Ticker, true
}

// Tickers returns the distinct tickers of the tracked basket
func (m *FundMap) Tickers() []string {
	seen := make(map[string]bool, len(m.byFund))
	tickers := make([]string, 0, len(m.byFund))
	for _, fm := range m.byFund {
		if !seen[fm.Ticker] {
			seen[fm.Ticker] = true
			tickers = append(tickers, fm.Ticker)
		}
	}
	return tickers
}

// Convert translates a ticker price into the fund's unit price. For proxy
// instruments the price is divided by the configured ratio and the proxy
// provenance is reported; all other funds pass through unchanged.
func (m *FundMap) Convert(fund string, tickerPrice float64, source string) (float64, string) {
	fm, ok := m.byFund[strings.ToLower(fund)]
	if !ok || fm.ProxyRatio == 0 {
		return tickerPrice, source
	}
	return tickerPrice / fm.ProxyRatio, SourceProxy
}
