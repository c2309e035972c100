// Package app wires configuration, storage, the credit provider client and
// the services shared by the API server and the cron runner.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/anyulbade/furniture-credit/internal/config"
	"github.com/anyulbade/furniture-credit/internal/database"
	"github.com/anyulbade/furniture-credit/internal/handler"
	"github.com/anyulbade/furniture-credit/internal/kredika"
	"github.com/anyulbade/furniture-credit/internal/notify"
	"github.com/anyulbade/furniture-credit/internal/repository"
	"github.com/anyulbade/furniture-credit/internal/service"
)

type stores struct {
	orders   service.OrderStore
	products service.ProductStore
	users    service.UserStore
	settings service.SettingsStore
	requests service.CreditRequestStore
}

type App struct {
	Config   *config.Config
	Pool     *pgxpool.Pool
	Provider *kredika.Client

	Orders      *service.OrderService
	Credit      *service.CreditService
	Payments    *service.InstallmentService
	Reconcile   *service.ReconciliationService
	Settings    *service.SettingsService
	emailNotify *notify.EmailNotifier
}

// SetupLogger configures the global zerolog logger. Unknown levels fall
// back to info.
func SetupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	var st stores
	switch cfg.StoreDriver {
	case "memory":
		mem := repository.NewMemoryStore()
		if err := seedMemory(ctx, mem); err != nil {
			return nil, err
		}
		st = stores{mem.Orders, mem.Products, mem.Users, mem.Settings, mem.CreditRequests}
		log.Warn().Msg("using in-memory store, data is lost on restart")
	default:
		pool, err := database.NewPool(ctx, cfg.DatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.Pool = pool
		if cfg.AutoMigrate {
			if err := database.RunMigrations(cfg.DatabaseURL()); err != nil {
				pool.Close()
				return nil, err
			}
		} else if version, dirty, err := database.SchemaVersion(cfg.DatabaseURL()); err != nil || version == 0 || dirty {
			log.Warn().Err(err).Uint("version", version).Bool("dirty", dirty).Msg("database schema is not migrated, set AUTO_MIGRATE=true")
		}
		if cfg.SeedDemo {
			if err := database.SeedData(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		st = stores{
			orders:   repository.NewOrderRepository(pool),
			products: repository.NewProductRepository(pool),
			users:    repository.NewUserRepository(pool),
			settings: repository.NewSettingsRepository(pool),
			requests: repository.NewCreditRequestRepository(pool),
		}
	}

	a.Provider = kredika.NewClient(kredika.Config{
		BaseURL:       cfg.KredikaURL,
		ClientID:      cfg.KredikaClientID,
		ClientSecret:  cfg.KredikaClientSecret,
		APIKey:        cfg.KredikaAPIKey,
		PartnerKey:    cfg.KredikaPartnerKey,
		WebhookSecret: cfg.KredikaWebhookSecret,
		Timeout:       cfg.KredikaTimeout,
	})

	var notifier service.Notifier = notify.LogNotifier{}
	if cfg.SMTPHost != "" {
		a.emailNotify = notify.NewEmailNotifier(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SenderEmail,
		})
		notifier = a.emailNotify
	}

	a.Orders = service.NewOrderService(st.orders, st.products, st.users, st.settings, a.Provider, notifier)
	a.Payments = service.NewInstallmentService(st.orders, st.users, a.Provider, notifier)
	a.Reconcile = service.NewReconciliationService(st.orders, st.products, st.users, a.Provider, notifier, a.Payments)
	a.Credit = service.NewCreditService(st.orders, st.users, st.settings, st.requests, a.Provider, cfg.KredikaAnnualRate)
	a.Settings = service.NewSettingsService(st.settings)

	return a, nil
}

func (a *App) Handlers() handler.Handlers {
	return handler.Handlers{
		Orders:  handler.NewOrderHandler(a.Orders, a.Reconcile),
		Credit:  handler.NewCreditHandler(a.Credit, a.Payments, a.Settings),
		Webhook: handler.NewWebhookHandler(a.Reconcile),
		Admin:   handler.NewAdminHandler(a.Settings, a.Credit),
	}
}

// HealthHandler reports "memory" for the database when no pool is in use.
func (a *App) HealthHandler() *handler.HealthHandler {
	var db handler.Pinger
	if a.Pool != nil {
		db = a.Pool
	}
	return handler.NewHealthHandler(db, a.Provider)
}

// Close flushes queued emails and releases the database pool.
func (a *App) Close() {
	if a.emailNotify != nil {
		a.emailNotify.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}

func seedMemory(ctx context.Context, mem *repository.MemoryStore) error {
	for _, p := range database.DemoProducts {
		if err := mem.Products.Create(ctx, &p); err != nil {
			return fmt.Errorf("seed product %s: %w", p.Name, err)
		}
	}
	for _, u := range database.DemoUsers {
		if err := mem.Users.Create(ctx, &u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
	}
	return nil
}
