package broker

import (
	"sync"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/model"
)

// accountHandle pairs an account's mutable state with the per-account mutex
// and RNG child stream that give it serializability and reproducibility
// independent of every other account (§5, §9).
type accountHandle struct {
	mu      sync.Mutex
	account *model.Account
	rng     *RNG
}

// EventSink receives broker domain events for external fan-out (streaming;
// the audit trail goes through AuditSink instead). All methods must be safe to call while the account's mutex is
// held and must not block meaningfully — implementations should buffer or
// drop, never synchronously do I/O on this path.
type EventSink interface {
	OrderFilled(order *model.Order, fill *model.Fill)
	OrderRejected(order *model.Order)
	MarginCall(accountID string)
}

// noopEvents is used when a Broker is constructed without an EventSink.
type noopEvents struct{}

func (noopEvents) OrderFilled(*model.Order, *model.Fill) {}
func (noopEvents) OrderRejected(*model.Order)            {}
func (noopEvents) MarginCall(string)                     {}

func prependOrder(acct *model.Account, order *model.Order) {
	acct.Orders = append([]*model.Order{order}, acct.Orders...)
}

func prependFill(acct *model.Account, fill *model.Fill) {
	acct.Fills = append([]*model.Fill{fill}, acct.Fills...)
}

// cloneAccount deep-copies an account so callers can mutate or return the
// copy without affecting the ledger's authoritative state. Used both for
// the post-trade simulation snapshot (§9: "the deep-copy... must operate on
// a snapshot taken under [the account's] serialization") and for returning
// account state to external callers.
func cloneAccount(acct *model.Account) *model.Account {
	clone := *acct

	clone.Positions = make(map[string]*model.Position, len(acct.Positions))
	for symbol, pos := range acct.Positions {
		p := *pos
		clone.Positions[symbol] = &p
	}

	clone.Orders = append([]*model.Order(nil), acct.Orders...)
	clone.Fills = append([]*model.Fill(nil), acct.Fills...)

	clone.PendingSettlements = make([]*model.PendingSettlement, len(acct.PendingSettlements))
	for i, ps := range acct.PendingSettlements {
		p := *ps
		clone.PendingSettlements[i] = &p
	}

	return &clone
}
