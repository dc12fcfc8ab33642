// Package db provides the database driver dispatch.
package db

import (
	"github.com/pkg/errors"

	"github.com/bokpilot/bokpilot/internal/profile"
	"github.com/bokpilot/bokpilot/store"
	"github.com/bokpilot/bokpilot/store/db/postgres"
	"github.com/bokpilot/bokpilot/store/db/sqlite"
)

// NewDBDriver creates a new database driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "postgres":
		return postgres.NewDB(profile)
	case "sqlite", "":
		return sqlite.NewDB(profile)
	default:
		return nil, errors.Errorf("unsupported driver %q", profile.Driver)
	}
}
