package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/adaptiq/internal/profile"
	"github.com/hrygo/adaptiq/store"
	"github.com/hrygo/adaptiq/store/db/postgres"
	"github.com/hrygo/adaptiq/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
//
// PostgreSQL is the production driver: vector search runs inside the database
// via pgvector. SQLite is the zero-dependency default: embeddings are stored
// as JSON and similarity is computed by an in-process scan, which is fine for
// single-tenant index sizes.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver: only 'postgres' and 'sqlite' are supported")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
