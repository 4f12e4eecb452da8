package backend

import (
	"context"
	"time"

	"fleetbudget/internal/amqp"
	"fleetbudget/internal/ports"
	"fleetbudget/internal/services"
)

// CleanupFunc releases whatever the backend opened.
type CleanupFunc func() error

// Backend is a storage backend with the services wired on top of it.
type Backend struct {
	Store    ports.Store
	Budget   *services.BudgetService
	Invoices *services.InvoiceService
	Fleet    *services.FleetService

	// AMQP is nil when no broker is configured or it was unreachable.
	AMQP *amqp.Client

	Cleanup CleanupFunc
}

// Ready reports whether the store answers.
func (b *Backend) Ready(ctx context.Context) error {
	return b.Store.Ping(ctx)
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Backend, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// MySQL specific
	MySQLDSN string

	// Memory backend specific
	DataDirectory string

	// Optional broker; without it invoices are checked inline
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Optional Redis for the cross-process budget lock
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CurrencyCode  string
	BudgetLockTTL time.Duration
	LimitCacheTTL time.Duration

	// Optional spreadsheet that mirrors new alerts
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MySQLBackend  BackendType = "mysql"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MySQLBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
