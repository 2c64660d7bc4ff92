package postgres

import (
	"context"
	"fmt"

	"github.com/frahmantamala/budget-ledger/internal/report"
	"github.com/jmoiron/sqlx"
)

const summarizeBudgetQuery = `
SELECT e.category_id,
       COALESCE(c.name, '') AS category_name,
       e.status,
       COUNT(*) AS expense_count,
       COALESCE(SUM(e.converted_amount), 0) AS total
FROM expenses e
LEFT JOIN categories c ON c.id = e.category_id
WHERE e.budget_id = ?
GROUP BY e.category_id, c.name, e.status
ORDER BY category_name, e.status`

// Repository runs report queries through sqlx so they stay portable across pgx and sqlite.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) SummarizeBudget(ctx context.Context, budgetID int64) ([]report.Line, error) {
	var lines []report.Line
	if err := r.db.SelectContext(ctx, &lines, r.db.Rebind(summarizeBudgetQuery), budgetID); err != nil {
		return nil, fmt.Errorf("summarize budget %d: %w", budgetID, err)
	}
	return lines, nil
}
