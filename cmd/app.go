package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/auth"
	"github.com/frahmantamala/budget-ledger/internal/budget"
	budgetPostgres "github.com/frahmantamala/budget-ledger/internal/budget/postgres"
	"github.com/frahmantamala/budget-ledger/internal/category"
	categoryPostgres "github.com/frahmantamala/budget-ledger/internal/category/postgres"
	"github.com/frahmantamala/budget-ledger/internal/core/events"
	"github.com/frahmantamala/budget-ledger/internal/currency"
	"github.com/frahmantamala/budget-ledger/internal/expense"
	expensePostgres "github.com/frahmantamala/budget-ledger/internal/expense/postgres"
	"github.com/frahmantamala/budget-ledger/internal/ledger"
	"github.com/frahmantamala/budget-ledger/internal/notification"
	"github.com/frahmantamala/budget-ledger/internal/report"
	reportPostgres "github.com/frahmantamala/budget-ledger/internal/report/postgres"
	"github.com/frahmantamala/budget-ledger/internal/user"
	userPostgres "github.com/frahmantamala/budget-ledger/internal/user/postgres"
	"github.com/frahmantamala/budget-ledger/pkg/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// application holds every long-lived component. Close releases them in reverse start order.
type application struct {
	Config *internal.Config
	Logger *slog.Logger

	DB       *gorm.DB
	ReportDB *sqlx.DB
	Bus      *events.EventBus

	Normalizer *currency.Normalizer
	Sender     notification.Sender
	pool       *notification.Pool
	amqp       *notification.AMQPClient

	Users      *userPostgres.UserRepository
	Auth       *auth.Service
	User       *user.Service
	Categories *category.Service
	Budgets    *budget.Service
	Expenses   *expense.Service
	Ledgers    *ledger.Service
	Reports    *report.Service
}

func newApplication(ctx context.Context, cfg *internal.Config) (*application, error) {
	app := &application{
		Config: cfg,
		Logger: logger.LoggerWrapper(),
	}

	db, err := initGormDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.DB = db

	reportDB, err := initDB(cfg.Database)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize report database: %w", err)
	}
	app.ReportDB = reportDB

	app.Bus = events.NewEventBus(app.Logger)

	source, err := rateSource(cfg.Currency)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Normalizer = currency.NewNormalizer(source, cfg.Currency.Base, cfg.Currency.RefreshInterval, app.Logger)
	app.Normalizer.Start(ctx)

	if err := app.initSender(cfg.Notification); err != nil {
		app.Close()
		return nil, err
	}

	mode, err := ledger.ParseMode(cfg.Alerts.Mode)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Users = userPostgres.NewUserRepository(db)
	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.JWTAccessSecret,
		cfg.Security.JWTRefreshSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	app.Auth = auth.NewService(app.Users, tokens, cfg.Security.BCryptCost, app.Logger)
	app.User = user.NewService(app.Users, app.Auth, app.Logger)

	app.Categories = category.NewService(categoryPostgres.NewCategoryRepository(db), app.Logger)

	expenseRepo := expensePostgres.NewExpenseRepository(db)
	app.Budgets = budget.NewService(budgetPostgres.NewBudgetRepository(db), expenseRepo, app.Bus, app.Logger)
	app.Expenses = expense.NewService(expense.Dependencies{
		Repo:         expenseRepo,
		Budgets:      app.Budgets,
		Rates:        app.Normalizer,
		Categories:   app.Categories,
		Publisher:    app.Bus,
		BaseCurrency: cfg.Currency.Base,
		Logger:       app.Logger,
	})

	dispatcher := ledger.NewDispatcher(app.Users, app.Sender, app.Logger)
	app.Ledgers = ledger.NewService(app.Budgets, app.Expenses, app.Normalizer, dispatcher, app.Bus, mode, app.Logger)
	app.Ledgers.Register(app.Bus)
	notification.NewReviewSubscriber(app.Users, app.Sender, app.Logger).Register(app.Bus)

	app.Reports = report.NewService(reportPostgres.NewRepository(reportDB), app.Ledgers, cfg.Currency.Base, app.Logger)

	return app, nil
}

func rateSource(cfg internal.CurrencyConfig) (currency.RateSource, error) {
	if len(cfg.StaticRates) > 0 {
		// configured rates are quoted against the base currency
		rates := make(map[string]string, len(cfg.StaticRates)+1)
		for code, rate := range cfg.StaticRates {
			rates[strings.ToUpper(code)] = rate
		}
		if _, ok := rates[cfg.Base]; !ok {
			rates[cfg.Base] = "1"
		}
		source, err := currency.NewStaticSource(rates)
		if err != nil {
			return nil, fmt.Errorf("invalid static rates: %w", err)
		}
		return source, nil
	}
	return currency.NewHTTPRateSource(cfg.APIURL, cfg.APIKey, cfg.Timeout), nil
}

func (a *application) initSender(cfg internal.NotificationConfig) error {
	switch cfg.Driver {
	case internal.NotificationDriverAMQP:
		client, err := notification.NewAMQPClient(cfg.URL, cfg.Exchange, cfg.Queue, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect notification broker: %w", err)
		}
		a.amqp = client
		a.Sender = client
	case internal.NotificationDriverLog:
		a.Sender = notification.NewLogSender(a.Logger)
	default:
		deliverer, err := newDeliverer(a.Logger)
		if err != nil {
			return err
		}
		a.pool = notification.NewPool(notification.PoolConfig{
			MaxWorkers:   cfg.Workers,
			JobQueueSize: cfg.QueueSize,
		}, deliverer.Deliver, a.Logger)
		a.Sender = a.pool
	}
	return nil
}

func newDeliverer(lg *slog.Logger) (*notification.Deliverer, error) {
	renderer, err := notification.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load notification templates: %w", err)
	}
	return notification.NewDeliverer(renderer, notification.NewLogMailer(lg), lg), nil
}

// Close lets pending event handlers and queued notifications finish before releasing resources.
func (a *application) Close() {
	if a.Bus != nil {
		a.Bus.Wait()
	}
	if a.Normalizer != nil {
		a.Normalizer.Stop()
	}
	if a.pool != nil {
		a.pool.Shutdown()
	}
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			a.Logger.Error("notification broker close error", "error", err)
		}
	}
	if a.ReportDB != nil {
		if err := a.ReportDB.Close(); err != nil {
			a.Logger.Error("report database close error", "error", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Logger.Error("database close error", "error", err)
			}
		}
	}
}

func initGormDB(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := internal.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// initDB opens the sqlx connection used by the read-side report queries.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	// reports are occasional, so the pool stays small
	dbConn.SetMaxOpenConns(max(1, cfg.MaxOpenConns/4))
	dbConn.SetMaxIdleConns(1)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return dbConn, nil
}

func rateHealthCheck(n *currency.Normalizer) func(context.Context) error {
	return func(context.Context) error {
		snap := n.Snapshot()
		if len(snap.Rates) <= 1 {
			return errors.New("no exchange rates loaded")
		}
		return nil
	}
}
