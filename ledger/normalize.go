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

package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrMissingDate = errors.New("row has no parseable date")
	ErrShortRow    = errors.New("row has too few columns")
	ErrEmptyBatch  = errors.New("batch contains no rows")
	ErrMissingFund = errors.New("row has no fund")
)

// RowError records a single rejected row; rejected rows never fail the batch
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ParseResult is the per-batch outcome of normalization
type ParseResult struct {
	Transactions []*Transaction
	Errors       []RowError
	Total        int
}

// manual import column order, both dialects:
// date, fund, money_source, activity, units, unit_price, amount
const manualColumns = 7

var multiSpace = regexp.MustCompile(`\t|\s{2,}`)
var quotedField = regexp.MustCompile(`"[^"]*,[^"]*"`)

// ParseManualBatch normalizes pasted text or an uploaded CSV into canonical
// transactions. The dialect (quoted CSV vs tab/space separated) is detected
// from the content. Rows that cannot be normalized are dropped and reported.
func ParseManualBatch(raw string) *ParseResult {
	res := &ParseResult{
		Transactions: make([]*Transaction, 0, 16),
		Errors:       make([]RowError, 0),
	}

	var rows [][]string
	var malformed []RowError
	if isQuotedCSV(raw) {
		rows, malformed = splitCSV(raw)
	} else {
		rows = splitDelimited(raw)
	}

	for i, fields := range rows {
		line := i + 1
		if isHeaderRow(fields) {
			continue
		}
		res.Total++

		t, err := normalizeRow(fields)
		if err != nil {
			log.Debug().Int("Line", line).Err(err).Msg("dropping unparseable row")
			res.Errors = append(res.Errors, RowError{Line: line, Reason: err.Error()})
			continue
		}
		res.Transactions = append(res.Transactions, t)
	}

	// records the csv reader rejected are rows too
	for _, re := range malformed {
		res.Total++
		res.Errors = append(res.Errors, re)
	}

	return res
}

func isQuotedCSV(raw string) bool {
	if quotedField.MatchString(raw) {
		return true
	}
	firstLine := raw
	if idx := strings.IndexByte(raw, '\n'); idx >= 0 {
		firstLine = raw[:idx]
	}
	// a recognizable comma-separated header also selects the CSV dialect
	lower := strings.ToLower(firstLine)
	return strings.Contains(lower, "date,") && strings.Count(firstLine, ",") >= manualColumns-1
}

func splitCSV(raw string) ([][]string, []RowError) {
	r := csv.NewReader(strings.NewReader(raw))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rows := make([][]string, 0, 16)
	malformed := make([]RowError, 0)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// a malformed record drops itself, never the rows after it
			line := len(rows) + len(malformed) + 1
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				line = parseErr.Line
			}
			log.Debug().Int("Line", line).Err(err).Msg("dropping malformed csv record")
			malformed = append(malformed, RowError{Line: line, Reason: err.Error()})
			continue
		}
		rows = append(rows, record)
	}
	return rows, malformed
}

func splitDelimited(raw string) [][]string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		fields := multiSpace.Split(l, -1)
		trimmed := make([]string, 0, len(fields))
		for _, f := range fields {
			f = strings.TrimSpace(f)
			if f != "" {
				trimmed = append(trimmed, f)
			}
		}
		if len(trimmed) > 0 {
			rows = append(rows, trimmed)
		}
	}
	return rows
}

func isHeaderRow(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(fields[0]))
	return first == "date" || first == "trade date"
}

func normalizeRow(fields []string) (*Transaction, error) {
	if len(fields) < manualColumns {
		return nil, fmt.Errorf("%w: got %d want %d", ErrShortRow, len(fields), manualColumns)
	}

	date, err := ParseDate(fields[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingDate, fields[0])
	}

	fund := strings.TrimSpace(fields[1])
	if fund == "" {
		return nil, ErrMissingFund
	}

	t := &Transaction{
		ID:          uuid.New(),
		Date:        date,
		Fund:        fund,
		MoneySource: strings.TrimSpace(fields[2]),
		Activity:    strings.TrimSpace(fields[3]),
		Units:       ParseNumber(fields[4]),
		UnitPrice:   ParseNumber(fields[5]),
		Amount:      ParseNumber(fields[6]),
		SourceType:  SourceTypeManual,
	}
	t.Fingerprint()
	return t, nil
}

var dateLayouts = []string{"2006-01-02", "1/2/2006", "01/02/2006"}
var shortYearLayouts = []string{"1/2/06", "01/02/06"}

// ParseDate accepts ISO dates and US M/D/YYYY variants. Two-digit years pivot
// at 50: <50 resolves to the 2000s, >=50 to the 1900s.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrMissingDate
	}

	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	for _, layout := range shortYearLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			year := d.Year()
			// time.Parse pivots two-digit years at 69; re-pivot at 50
			yy := year % 100
			if yy < 50 {
				year = 2000 + yy
			} else {
				year = 1900 + yy
			}
			return time.Date(year, d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrMissingDate, s)
}

// ParseNumber normalizes a currency/number field. Currency symbols, commas
// and whitespace are stripped; parenthesized and trailing-minus values are
// negative. A value that still fails to parse normalizes to 0 rather than
// failing the row.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = s[:len(s)-1]
	}

	s = strings.NewReplacer("$", "", ",", "", "%", "", " ", "").Replace(s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if negative {
		v = -v
	}
	return v
}
