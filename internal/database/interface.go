package database

import (
	"context"

	"github.com/koustreak/schemapub/internal/catalog"
)

// DB is the contract every database driver fulfils.
// Layers above this package only see DB and the catalog interfaces;
// they never import the postgres, mysql or sqlite packages directly.
type DB interface {
	catalog.Connector

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// Driver reports which engine backs this DB.
	Driver() Driver
}
