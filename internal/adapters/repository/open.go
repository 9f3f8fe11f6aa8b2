package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/mingle/internal/config"
	"github.com/okian/mingle/pkg/logger"
)

// Open builds the backend selected by cfg.StoreDriver, instrumented with
// metrics and, for remote drivers, guarded by a circuit breaker.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (Backend, error) {
	var (
		backend Backend
		err     error
	)

	switch cfg.StoreDriver {
	case config.StoreMemory:
		backend = NewMemoryStore()
	case config.StoreBadger:
		backend, err = OpenBadgerStore(cfg.BadgerPath)
	case config.StoreMongo:
		backend, err = OpenMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.StorePostgres:
		backend, err = OpenPostgresStore(ctx, cfg.PostgresDSN)
	case config.StoreMySQL:
		backend, err = OpenMySQLStore(ctx, cfg.MySQLDSN)
	case config.StoreDynamo:
		backend, err = OpenDynamoStore(ctx, cfg.DynamoRegion, cfg.DynamoEndpoint, DynamoTables{
			Submissions: cfg.DynamoSubmissionsTable,
			Profiles:    cfg.DynamoProfilesTable,
			Grids:       cfg.DynamoGridsTable,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}

	backend = NewInstrumentedBackend(backend, cfg.StoreDriver)

	if cfg.StoreDriver != config.StoreMemory && cfg.BreakerMaxFailures > 0 {
		backend = NewBreakerBackend(backend,
			WithBreakerName(cfg.StoreDriver),
			WithMaxFailures(cfg.BreakerMaxFailures),
			WithOpenTimeout(time.Duration(cfg.BreakerOpenTimeoutMS)*time.Millisecond),
			WithBreakerLogger(log),
		)
	}

	log.Info(ctx, "store opened", logger.String("driver", cfg.StoreDriver))
	return backend, nil
}
