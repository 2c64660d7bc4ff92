package currency

import (
	"context"
	"log/slog"
	"sync"
	"time"

	errors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/core/money"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

// Snapshot is a point-in-time copy of the rate table.
type Snapshot struct {
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// Normalizer owns a rate table refreshed from a RateSource. A failed refresh keeps the last-known rates.
type Normalizer struct {
	source   RateSource
	base     string
	interval time.Duration
	logger   *slog.Logger
	group    singleflight.Group

	mu        sync.RWMutex
	rates     map[string]decimal.Decimal
	updatedAt time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewNormalizer(source RateSource, base string, interval time.Duration, logger *slog.Logger) *Normalizer {
	return &Normalizer{
		source:   source,
		base:     base,
		interval: interval,
		logger:   logger,
		rates:    make(map[string]decimal.Decimal),
	}
}

func (n *Normalizer) Base() string {
	return n.base
}

// Start loads the table once and refreshes it on every interval tick until Stop or ctx is done.
func (n *Normalizer) Start(ctx context.Context) {
	if err := n.Refresh(ctx); err != nil {
		n.logger.Warn("initial rate refresh failed", "base", n.base, "error", err)
	}
	if n.interval <= 0 {
		return
	}

	n.stop = make(chan struct{})
	n.done = make(chan struct{})
	go n.loop(ctx)
}

func (n *Normalizer) loop(ctx context.Context) {
	defer close(n.done)

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := n.Refresh(ctx); err != nil {
				n.logger.Warn("rate refresh failed, keeping last-known rates", "base", n.base, "error", err)
			}
		case <-n.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the refresh loop and waits for it to exit.
func (n *Normalizer) Stop() {
	if n.stop == nil {
		return
	}
	n.stopOnce.Do(func() { close(n.stop) })
	<-n.done
}

// Refresh replaces the table with fresh rates. Concurrent callers share one fetch.
func (n *Normalizer) Refresh(ctx context.Context) error {
	_, err, shared := n.group.Do(refreshKey, func() (interface{}, error) {
		rates, err := n.source.FetchRates(ctx, n.base)
		if err != nil {
			return nil, err
		}
		rates[n.base] = decimal.NewFromInt(1)

		n.mu.Lock()
		n.rates = rates
		n.updatedAt = time.Now()
		n.mu.Unlock()

		n.logger.Info("exchange rates refreshed", "base", n.base, "currencies", len(rates))
		return nil, nil
	})
	if shared {
		n.logger.Debug("rate refresh shared with concurrent caller")
	}
	return err
}

func (n *Normalizer) lookup(ctx context.Context, code string) (decimal.Decimal, bool) {
	n.mu.RLock()
	empty := len(n.rates) == 0
	n.mu.RUnlock()

	if empty {
		if err := n.Refresh(ctx); err != nil {
			n.logger.Warn("on-demand rate refresh failed", "error", err)
		}
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	rate, ok := n.rates[code]
	return rate, ok
}

// Rate returns how many units of to one unit of from buys.
func (n *Normalizer) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	fromRate, ok := n.lookup(ctx, from)
	if !ok {
		return decimal.Zero, errors.ErrRateUnavailable.WithMessage("exchange rate unavailable for " + from)
	}
	toRate, ok := n.lookup(ctx, to)
	if !ok {
		return decimal.Zero, errors.ErrRateUnavailable.WithMessage("exchange rate unavailable for " + to)
	}
	return toRate.Div(fromRate), nil
}

// Convert returns amount in to, rounded to that currency's minor unit.
func (n *Normalizer) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return money.Round(amount, to), nil
	}
	rate, err := n.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return money.Round(amount.Mul(rate), to), nil
}

func (n *Normalizer) Snapshot() Snapshot {
	n.mu.RLock()
	defer n.mu.RUnlock()

	rates := make(map[string]decimal.Decimal, len(n.rates))
	for code, rate := range n.rates {
		rates[code] = rate
	}
	return Snapshot{Base: n.base, Rates: rates, UpdatedAt: n.updatedAt}
}
