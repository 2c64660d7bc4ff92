package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/budget-ledger/api"
	"github.com/frahmantamala/budget-ledger/internal/auth"
	"github.com/frahmantamala/budget-ledger/internal/budget"
	"github.com/frahmantamala/budget-ledger/internal/category"
	"github.com/frahmantamala/budget-ledger/internal/currency"
	"github.com/frahmantamala/budget-ledger/internal/expense"
	"github.com/frahmantamala/budget-ledger/internal/ledger"
	"github.com/frahmantamala/budget-ledger/internal/report"
	"github.com/frahmantamala/budget-ledger/internal/transport"
	"github.com/frahmantamala/budget-ledger/internal/transport/middleware"
	"github.com/frahmantamala/budget-ledger/internal/transport/rest"
	"github.com/frahmantamala/budget-ledger/internal/user"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startHTTPServer(); err != nil {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func startHTTPServer() error {
	config, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer app.Close()

	router, err := newRouter(app)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: config.Server.ReadHeaderTimeout,
		ReadTimeout:       config.Server.ReadTimeout,
		WriteTimeout:      config.Server.WriteTimeout,
		IdleTimeout:       config.Server.IdleTimeout,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		app.Logger.Info("Starting HTTP server", "address", addr, "alert_mode", config.Alerts.Mode, "notifications", config.Notification.Driver)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		app.Logger.Info("Received signal, shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed to start: %w", err)
		}
	}

	app.Logger.Info("Server stopped")
	return nil
}

func newRouter(app *application) (*chi.Mux, error) {
	base := transport.NewBaseHandler(app.Logger)

	opts := rest.RouterOptions{
		AllowedOrigins: app.Config.Server.Origins(),
		HealthChecks: map[string]rest.CheckFunc{
			"exchange_rates": rateHealthCheck(app.Normalizer),
		},
	}
	if app.Config.Server.ValidateRequests {
		validator, err := middleware.NewRequestValidator(api.Spec, rest.APIPrefix, app.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load api document: %w", err)
		}
		opts.Validator = validator
	}

	handlers := rest.Handlers{
		Auth:     auth.NewHandler(base, app.Auth),
		User:     user.NewHandler(base, app.User),
		Category: category.NewHandler(base, app.Categories),
		Budget:   budget.NewHandler(base, app.Budgets),
		Ledger:   ledger.NewHandler(base, app.Ledgers),
		Expense:  expense.NewHandler(base, app.Expenses),
		Report:   report.NewHandler(base, app.Reports),
		Currency: currency.NewHandler(base, app.Normalizer),
	}

	sqlDB, err := app.DB.DB()
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, sqlDB, handlers, auth.NewRBACAuthorization(app.Logger), opts, app.Logger)
	return router, nil
}
