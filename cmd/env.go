package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dris-project/impact-engine/internal/disagg"
	"github.com/dris-project/impact-engine/internal/filter"
	"github.com/dris-project/impact-engine/internal/geo"
	"github.com/dris-project/impact-engine/internal/report"
	"github.com/dris-project/impact-engine/internal/sector"
)

// Env wires the engine components over one Postgres pool.
type Env struct {
	Pool    *pgxpool.Pool
	Sectors *sector.Resolver
	Filters *filter.Builder
	Reports *report.Builder
	Disagg  *disagg.Aggregator
	Geo     *geo.Store
	Log     *zap.Logger
}

func initEnv(ctx context.Context) (*Env, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("store database_url is required (IMPACT_STORE_DATABASE_URL)")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "parse database url")
	}
	if cfg.Store.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.Store.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "create pool")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "ping database")
	}

	log := zap.L()
	resolver := sector.NewResolver(sector.NewStore(pool), log).
		WithMaxVisited(cfg.Sector.MaxVisited)
	geoStore := geo.NewStore(pool, log)
	filters := filter.NewBuilder(resolver, geoStore, log)

	return &Env{
		Pool:    pool,
		Sectors: resolver,
		Filters: filters,
		Reports: report.NewBuilder(pool, filters, log),
		Disagg:  disagg.NewAggregator(pool, log),
		Geo:     geoStore,
		Log:     log,
	}, nil
}

// Close releases the pool.
func (e *Env) Close() {
	e.Pool.Close()
}

// reportOptions maps configured assessment defaults onto report options.
func reportOptions(assessedBy string) report.Options {
	return report.Options{
		AssessmentType:  cfg.Report.AssessmentType,
		ConfidenceLevel: cfg.Report.ConfidenceLevel,
		Currency:        cfg.Report.Currency,
		AssessedBy:      assessedBy,
	}
}
