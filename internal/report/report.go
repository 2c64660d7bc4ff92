// Package report builds read-only spending summaries for a budget.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/frahmantamala/budget-ledger/internal/budget"
	"github.com/frahmantamala/budget-ledger/internal/ledger"
	"github.com/shopspring/decimal"
)

// Line is one category/status bucket of a budget's expenses. Total is the sum of converted amounts.
type Line struct {
	CategoryID *int64          `json:"category_id" db:"category_id"`
	Category   string          `json:"category" db:"category_name"`
	Status     string          `json:"status" db:"status"`
	Count      int64           `json:"count" db:"expense_count"`
	Total      decimal.Decimal `json:"total" db:"total"`
}

type Summary struct {
	Budget         *budget.Budget             `json:"budget"`
	Ledger         ledger.Ledger              `json:"ledger"`
	BaseCurrency   string                     `json:"base_currency"`
	Lines          []Line                     `json:"lines"`
	TotalsByStatus map[string]decimal.Decimal `json:"totals_by_status"`
	ExpenseCount   int64                      `json:"expense_count"`
	GeneratedAt    time.Time                  `json:"generated_at"`
}

var csvHeader = []string{"category_id", "category", "status", "count", "total", "currency"}

// WriteCSV writes one row per line, followed by a row per status total.
func WriteCSV(w io.Writer, s *Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, l := range s.Lines {
		categoryID := ""
		if l.CategoryID != nil {
			categoryID = fmt.Sprintf("%d", *l.CategoryID)
		}
		category := l.Category
		if category == "" {
			category = "uncategorized"
		}
		row := []string{categoryID, category, l.Status, fmt.Sprintf("%d", l.Count), l.Total.StringFixed(2), s.BaseCurrency}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	statuses := make([]string, 0, len(s.TotalsByStatus))
	for status := range s.TotalsByStatus {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		row := []string{"", "total", status, "", s.TotalsByStatus[status].StringFixed(2), s.BaseCurrency}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
