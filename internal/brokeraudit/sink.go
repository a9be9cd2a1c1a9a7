// Package brokeraudit provides a fire-and-forget, write-only external
// audit trail for orders and fills. It is modeled on the teacher's
// PostgreSQL store but is never read from to reconstruct engine state —
// the broker package's in-memory ledger remains the single source of
// truth, so this sink does not reintroduce the persistence spec.md's
// Non-goals exclude.
package brokeraudit

import (
	"context"

	"github.com/google/uuid"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/model"
)

// Sink records an immutable copy of every recorded order/fill for external
// compliance and reporting.
type Sink interface {
	RecordOrder(ctx context.Context, order *model.Order)
	RecordFill(ctx context.Context, fill *model.Fill)
}

// NoopSink discards everything — the default when no DATABASE_URL is
// configured, mirroring the teacher's MemoryStore fallback.
type NoopSink struct{}

func (NoopSink) RecordOrder(context.Context, *model.Order) {}
func (NoopSink) RecordFill(context.Context, *model.Fill)   {}

// envelopeID mints an opaque audit-row identifier. Unlike the engine's own
// account/order/fill IDs, this one does not need to be RNG-reproducible —
// it is a bookkeeping detail of the audit sink alone — so it uses uuid the
// same way the teacher's LedgerEntry rows do.
func envelopeID() string {
	return uuid.New().String()
}
