// Package detect implements the embedded scoring engine: CSV ingestion,
// transaction graph construction, laundering pattern detectors, ring
// merging, and deterministic account scoring.
package detect

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/mulecatcher/internal/domain"
)

// Transaction is one parsed row of the uploaded dataset.
type Transaction struct {
	ID        string
	Sender    string
	Receiver  string
	Amount    float64
	Timestamp time.Time
}

// Accepted timestamp layouts, tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseCSV decodes the uploaded dataset and produces the structural
// validation result alongside the parsed rows. Rows that fail a check are
// counted but excluded from the returned slice; the validation flags report
// whether every row passed.
func ParseCSV(data []byte) ([]Transaction, *domain.ValidationResult, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}

	result := &domain.ValidationResult{
		ColumnsDetected: true,
		TimestampValid:  true,
		AmountNumeric:   true,
		AmountPositive:  true,
		Columns:         append([]string(nil), domain.ExpectedColumns...),
	}

	for _, required := range domain.ExpectedColumns {
		if _, ok := cols[required]; !ok {
			result.ColumnsDetected = false
		}
	}
	if !result.ColumnsDetected {
		return nil, result, nil
	}

	var txs []Transaction
	seen := make(map[string]bool)

	for {
		record, err := reader.Read()
		if err != nil {
			break
		}
		if len(record) < len(domain.ExpectedColumns) {
			result.InvalidRows++
			continue
		}

		tx := Transaction{
			ID:       strings.TrimSpace(record[cols["transaction_id"]]),
			Sender:   strings.TrimSpace(record[cols["sender_account"]]),
			Receiver: strings.TrimSpace(record[cols["receiver_account"]]),
		}

		if seen[tx.ID] {
			result.DuplicateRows++
		}
		seen[tx.ID] = true

		amount, err := strconv.ParseFloat(strings.TrimSpace(record[cols["amount"]]), 64)
		if err != nil {
			result.AmountNumeric = false
			result.InvalidRows++
			continue
		}
		if amount <= 0 {
			result.AmountPositive = false
			result.InvalidRows++
			continue
		}
		tx.Amount = amount

		ts, ok := parseTimestamp(strings.TrimSpace(record[cols["timestamp"]]))
		if !ok {
			result.TimestampValid = false
			result.InvalidRows++
			continue
		}
		tx.Timestamp = ts

		txs = append(txs, tx)
	}

	return txs, result, nil
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
