// Package store provides database access to all raw objects.
package store

import (
	"context"

	"github.com/bokpilot/bokpilot/internal/profile"
)

// Driver is the interface a database backend must implement.
type Driver interface {
	MemoryRecordStore
	ActionPlanStore
	AuditLogStore

	GetDB() any
	Migrate(ctx context.Context) error
	Close() error
}

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// MemoryRecords exposes memory record persistence.
func (s *Store) MemoryRecords() MemoryRecordStore { return s.driver }

// ActionPlans exposes plan metadata persistence.
func (s *Store) ActionPlans() ActionPlanStore { return s.driver }

// AuditLogs exposes audit persistence.
func (s *Store) AuditLogs() AuditLogStore { return s.driver }
