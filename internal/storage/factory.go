// Package storage selects the reference-data store backend.
package storage

import (
	"fmt"

	"github.com/bobmcallan/marketsync/internal/common"
	"github.com/bobmcallan/marketsync/internal/interfaces"
	"github.com/bobmcallan/marketsync/internal/storage/refdb"
	"github.com/bobmcallan/marketsync/internal/storage/surrealdb"
)

// Backend type constants.
const (
	BackendBadger  = "badger"
	BackendSurreal = "surrealdb"
)

// NewRefStore creates a reference-data store based on the configuration.
// Supported backends: "badger" (embedded, default) and "surrealdb".
func NewRefStore(logger *common.Logger, config *common.Config) (interfaces.RefStore, error) {
	backend := config.Storage.Backend
	if backend == "" {
		backend = BackendBadger
	}

	switch backend {
	case BackendBadger:
		return refdb.NewStore(logger, config.Storage.Path)

	case BackendSurreal:
		return surrealdb.NewStore(logger, config)

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: badger, surrealdb)", backend)
	}
}
