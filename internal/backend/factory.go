package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetbudget/internal/amqp"
	"fleetbudget/internal/cache"
	"fleetbudget/internal/lock"
	"fleetbudget/internal/log"
	"fleetbudget/internal/ports"
	"fleetbudget/internal/services"
	gsheet "fleetbudget/internal/sheets/google"
	"fleetbudget/internal/storage"
	"fleetbudget/internal/storage/memory"
	"fleetbudget/internal/storage/mysql"

	"github.com/redis/go-redis/v9"
)

var (
	_ ports.Store = (*storage.SQLiteRepository)(nil)
	_ ports.Store = (*mysql.Repository)(nil)
	_ ports.Store = (*memory.Store)(nil)
)

const (
	lockPrefix       = "fleetbudget:lock:"
	vehicleCacheSize = 512
	vehicleCacheTTL  = 5 * time.Minute
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the store and wires the services. Optional
// integrations (broker, Redis, spreadsheet) that cannot be reached are
// logged and left out; a store that cannot be opened is an error.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.openStore(config)
	if err != nil {
		return nil, err
	}

	var cleanups []CleanupFunc
	cleanups = append(cleanups, store.Close)

	locker, closeRedis := f.newLocker(ctx, config)
	if closeRedis != nil {
		cleanups = append(cleanups, closeRedis)
	}

	budgetOpts := []services.BudgetOption{
		services.WithBudgetLogger(f.logger.WithComponent(log.ComponentBudget)),
	}
	if config.CurrencyCode != "" {
		budgetOpts = append(budgetOpts, services.WithCurrency(config.CurrencyCode))
	}
	if config.BudgetLockTTL > 0 {
		budgetOpts = append(budgetOpts, services.WithLockTTL(config.BudgetLockTTL))
	}
	if sink := f.newAlertSheet(ctx, config); sink != nil {
		budgetOpts = append(budgetOpts, services.WithAlertSinks(sink))
	}

	var limits ports.BudgetConfigStore = store
	if config.LimitCacheTTL > 0 {
		limits = cache.NewLimitStore(store, config.LimitCacheTTL)
	}
	budget := services.NewBudgetService(store, store, limits, locker, budgetOpts...)

	var (
		amqpClient *amqp.Client
		publisher  services.InvoicePublisher
	)
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, checking budgets inline", log.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			publisher = amqpClient
			cleanups = append(cleanups, amqpClient.Close)
		}
	}

	vehicles := cache.NewVehicleLookup(store, vehicleCacheSize, vehicleCacheTTL)
	invoices := services.NewInvoiceService(vehicles, store, publisher, budget, config.CurrencyCode)
	invoices.SetLogger(f.logger.WithComponent(log.ComponentInvoice))

	f.logger.Info("Initialized backend",
		"type", config.Type.String(),
		"amqp_enabled", amqpClient != nil,
		"sheets_enabled", config.GoogleSpreadsheetID != "")

	return &Backend{
		Store:    store,
		Budget:   budget,
		Invoices: invoices,
		Fleet:    services.NewFleetService(store),
		AMQP:     amqpClient,
		Cleanup:  closeAll(cleanups),
	}, nil
}

func (f *DefaultFactory) openStore(config Config) (ports.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Opened SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case MySQLBackend:
		repo, err := mysql.Open(config.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MySQL repository: %w", err)
		}
		f.logger.Info("Opened MySQL store")
		return repo, nil
	case MemoryBackend:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		f.logger.Info("Opened memory store", "data_directory", dataDir)
		return memory.NewFromFiles(dataDir), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// newLocker prefers Redis so the API and the worker share one lock per period.
func (f *DefaultFactory) newLocker(ctx context.Context, config Config) (lock.Locker, CleanupFunc) {
	if config.RedisAddr == "" {
		return lock.NewLocalLocker(), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		f.logger.Warn("Redis unreachable, budget lock is process-local", log.FieldError, err, "addr", config.RedisAddr)
		rdb.Close()
		return lock.NewLocalLocker(), nil
	}
	f.logger.Info("Using Redis budget lock", "addr", config.RedisAddr)
	return lock.NewRedisLocker(rdb, lockPrefix), rdb.Close
}

func (f *DefaultFactory) newAlertSheet(ctx context.Context, config Config) ports.AlertSink {
	if config.GoogleSpreadsheetID == "" {
		return nil
	}
	sheet, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName, config.GoogleCredentialsFile)
	if err != nil {
		f.logger.Warn("Failed to initialize alert spreadsheet, continuing without it", log.FieldError, err)
		return nil
	}
	f.logger.Info("Mirroring alerts to Google Sheets", "sheet", config.GoogleSheetName)
	return sheet
}

// closeAll runs cleanups in reverse order and joins their errors.
func closeAll(cleanups []CleanupFunc) CleanupFunc {
	return func() error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
