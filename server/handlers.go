// Package server exposes the HTTP API handlers.
package server

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/onnwee/vod-highlights/db"
	"github.com/onnwee/vod-highlights/vod"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db           *sql.DB
	ctx          context.Context
	orchestrator *vod.Orchestrator
	scans        *db.ScanLedger
	defaults     vod.Options
	inFlight     atomic.Int64
}

// NewHandlers creates a new Handlers instance with the given dependencies.
// defaults seeds every analysis request that omits an option.
func NewHandlers(ctx context.Context, sqlDB *sql.DB, orchestrator *vod.Orchestrator, defaults vod.Options) *Handlers {
	return &Handlers{
		db:           sqlDB,
		ctx:          ctx,
		orchestrator: orchestrator,
		scans:        &db.ScanLedger{DB: sqlDB},
		defaults:     defaults,
	}
}
