package report

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/core/money"
	"github.com/frahmantamala/budget-ledger/internal/ledger"
	"github.com/shopspring/decimal"
)

type Repository interface {
	SummarizeBudget(ctx context.Context, budgetID int64) ([]Line, error)
}

// LedgerReader resolves the budget and its live ledger.
type LedgerReader interface {
	ForBudget(ctx context.Context, budgetID int64) (*ledger.BudgetLedger, error)
}

type Service struct {
	repo         Repository
	ledgers      LedgerReader
	baseCurrency string
	now          func() time.Time
	logger       *slog.Logger
}

func NewService(repo Repository, ledgers LedgerReader, baseCurrency string, logger *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		ledgers:      ledgers,
		baseCurrency: baseCurrency,
		now:          time.Now,
		logger:       logger,
	}
}

func (s *Service) BudgetSummary(ctx context.Context, budgetID int64) (*Summary, error) {
	bl, err := s.ledgers.ForBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.SummarizeBudget(ctx, budgetID)
	if err != nil {
		s.logger.Error("failed to summarize budget", "budget_id", budgetID, "error", err)
		return nil, errors.StoreError("summarize budget", err)
	}

	summary := &Summary{
		Budget:         bl.Budget,
		Ledger:         bl.Ledger,
		BaseCurrency:   s.baseCurrency,
		Lines:          make([]Line, 0, len(lines)),
		TotalsByStatus: make(map[string]decimal.Decimal),
		GeneratedAt:    s.now().UTC(),
	}
	for _, l := range lines {
		l.Total = money.Round(l.Total, s.baseCurrency)
		summary.Lines = append(summary.Lines, l)
		summary.TotalsByStatus[l.Status] = summary.TotalsByStatus[l.Status].Add(l.Total)
		summary.ExpenseCount += l.Count
	}

	s.logger.Debug("budget summary built", "budget_id", budgetID, "lines", len(summary.Lines))
	return summary, nil
}
