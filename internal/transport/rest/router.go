package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/budget-ledger/api"
	"github.com/frahmantamala/budget-ledger/internal/auth"
	"github.com/frahmantamala/budget-ledger/internal/budget"
	"github.com/frahmantamala/budget-ledger/internal/category"
	"github.com/frahmantamala/budget-ledger/internal/currency"
	"github.com/frahmantamala/budget-ledger/internal/expense"
	"github.com/frahmantamala/budget-ledger/internal/ledger"
	"github.com/frahmantamala/budget-ledger/internal/report"
	"github.com/frahmantamala/budget-ledger/internal/transport/middleware"
	"github.com/frahmantamala/budget-ledger/internal/transport/swagger"
	"github.com/frahmantamala/budget-ledger/internal/user"
	"github.com/go-chi/chi"
)

const APIPrefix = "/api/v1"

// Handlers groups the HTTP handlers mounted under /api/v1. A nil handler leaves its routes unmounted.
type Handlers struct {
	Auth     *auth.Handler
	User     *user.Handler
	Category *category.Handler
	Budget   *budget.Handler
	Ledger   *ledger.Handler
	Expense  *expense.Handler
	Report   *report.Handler
	Currency *currency.Handler
}

type RouterOptions struct {
	AllowedOrigins []string
	Validator      *middleware.RequestValidator
	HealthChecks   map[string]CheckFunc
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, rbac *auth.RBACAuthorization, opts RouterOptions, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)
	for name, check := range opts.HealthChecks {
		healthHandler.AddCheck(name, check)
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.Spec)
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route(APIPrefix, func(r chi.Router) {
		if opts.Validator != nil {
			r.Use(opts.Validator.Middleware)
		}

		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.User != nil {
				pr.Get("/users/me", h.User.GetCurrentUser)
				pr.Group(func(ar chi.Router) {
					ar.Use(rbac.RequireAdmin())
					ar.Get("/users", h.User.ListUsers)
					ar.Post("/users", h.User.CreateUser)
					ar.Patch("/users/{id}", h.User.UpdateUser)
				})
			}

			if h.Category != nil {
				pr.Route("/categories", func(cr chi.Router) {
					cr.Get("/", h.Category.GetCategories)
					cr.Get("/{id}", h.Category.GetCategory)

					cr.Group(func(mr chi.Router) {
						mr.Use(rbac.RequireManager())
						mr.Post("/", h.Category.CreateCategory)
						mr.Patch("/{id}", h.Category.UpdateCategory)
						mr.Post("/{id}/deactivate", h.Category.DeactivateCategory)
						mr.Post("/{id}/activate", h.Category.ActivateCategory)
					})
				})
			}

			if h.Budget != nil {
				pr.Route("/budgets", func(br chi.Router) {
					br.Get("/", h.Budget.ListBudgets)
					br.Get("/{id}", h.Budget.GetBudget)
					if h.Ledger != nil {
						br.Get("/{id}/ledger", h.Ledger.GetBudgetLedger)
					}

					br.Group(func(mr chi.Router) {
						mr.Use(rbac.RequireManager())
						mr.Post("/", h.Budget.CreateBudget)
						mr.Patch("/{id}", h.Budget.UpdateBudget)
						mr.Delete("/{id}", h.Budget.DeleteBudget)
						mr.Post("/{id}/submit", h.Budget.SubmitBudget)
						mr.Post("/{id}/approve", h.Budget.ApproveBudget)
						mr.Post("/{id}/reject", h.Budget.RejectBudget)
					})
				})
			}

			if h.Ledger != nil {
				pr.With(rbac.RequireManager()).Get("/ledgers", h.Ledger.ListLedgers)
			}

			if h.Expense != nil {
				pr.Route("/expenses", func(er chi.Router) {
					er.Post("/", h.Expense.CreateExpense)
					er.Get("/", h.Expense.ListExpenses)
					er.Get("/{id}", h.Expense.GetExpense)
					er.Patch("/{id}", h.Expense.UpdateExpense)
					er.Delete("/{id}", h.Expense.DeleteExpense)
					er.Get("/{id}/audit", h.Expense.AuditLog)

					er.Group(func(mr chi.Router) {
						mr.Use(rbac.RequireManager())
						mr.Patch("/{id}/approve", h.Expense.ApproveExpense)
						mr.Patch("/{id}/reject", h.Expense.RejectExpense)
						mr.Patch("/{id}/reimburse", h.Expense.ReimburseExpense)
					})
				})
			}

			if h.Report != nil {
				pr.With(rbac.RequireManager()).Get("/reports/budgets/{id}", h.Report.GetBudgetReport)
			}

			if h.Currency != nil {
				pr.Get("/currency/rates", h.Currency.GetRates)
				pr.Get("/currency/convert", h.Currency.Convert)
			}
		})
	})
}
