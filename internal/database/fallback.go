package database

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrStorageUnavailable indicates both the primary store and the embedded
// fallback failed to connect. There is no further recovery.
var ErrStorageUnavailable = errors.New("database: storage unavailable")

// Connector opens a database handle. Separating connection from fallback
// policy keeps the policy testable without real network or disk access.
type Connector interface {
	Name() string
	Connect() (*gorm.DB, error)
}

// DriverConnector connects using a static driver configuration.
type DriverConnector struct {
	cfg Config
}

// NewDriverConnector builds a connector for the given configuration.
func NewDriverConnector(cfg Config) *DriverConnector {
	return &DriverConnector{cfg: cfg}
}

// Name reports the underlying driver name.
func (c *DriverConnector) Name() string {
	if c.cfg.Driver == "" {
		return "sqlite"
	}
	return c.cfg.Driver
}

// Connect opens the database and applies idempotent schema creation.
func (c *DriverConnector) Connect() (*gorm.DB, error) {
	db, err := Open(c.cfg)
	if err != nil {
		return nil, err
	}
	if err := AutoMigrateAll(db); err != nil {
		return nil, err
	}
	return db, nil
}

// FallbackPolicy tries the primary connector and, at most once per process
// lifetime, a secondary embedded connector. A failure on the secondary is
// surfaced as ErrStorageUnavailable.
type FallbackPolicy struct {
	Primary   Connector
	Secondary Connector
	Log       *zap.Logger
}

// Connect resolves a database handle according to the fallback policy.
func (p *FallbackPolicy) Connect() (*gorm.DB, error) {
	if p == nil || p.Primary == nil {
		return nil, errors.New("database: fallback policy requires a primary connector")
	}

	db, primaryErr := p.Primary.Connect()
	if primaryErr == nil {
		return db, nil
	}

	if p.Secondary == nil {
		return nil, fmt.Errorf("%w: primary %s: %v", ErrStorageUnavailable, p.Primary.Name(), primaryErr)
	}

	if p.Log != nil {
		p.Log.Warn("primary database unavailable, switching to fallback",
			zap.String("primary", p.Primary.Name()),
			zap.String("fallback", p.Secondary.Name()),
			zap.Error(primaryErr),
		)
	}

	db, secondaryErr := p.Secondary.Connect()
	if secondaryErr != nil {
		return nil, fmt.Errorf("%w: primary %s: %v; fallback %s: %v",
			ErrStorageUnavailable, p.Primary.Name(), primaryErr, p.Secondary.Name(), secondaryErr)
	}

	return db, nil
}
