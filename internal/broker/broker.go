// Package broker implements the BrokerService execution & accounting core:
// order validation, trigger/fill evaluation, slippage and fee computation,
// signed-position bookkeeping, cash reservation and settlement, margin
// metrics, and margin-call liquidation.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/brokermetrics"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/marketdata"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/model"
)

// Broker owns every account and the shared market-data provider. Per §5,
// cross-account calls are independent; within one account, PlaceOrder and
// refresh are serialized behind that account's own mutex.
type Broker struct {
	cfg      Config
	provider marketdata.Provider
	events   EventSink
	audit    AuditSink

	rootRNG *RNG

	mu       sync.Mutex
	accounts map[string]*accountHandle
}

// AuditSink is implemented by internal/brokeraudit's Sink types. It is
// declared here (rather than imported) so the broker core has no
// dependency on the audit package's own imports (pgx, uuid).
type AuditSink interface {
	RecordOrder(ctx context.Context, order *model.Order)
	RecordFill(ctx context.Context, fill *model.Fill)
}

type noopAudit struct{}

func (noopAudit) RecordOrder(context.Context, *model.Order) {}
func (noopAudit) RecordFill(context.Context, *model.Fill)   {}

// New constructs a Broker. events and audit may be nil if no external
// fan-out or audit trail is needed.
func New(cfg Config, provider marketdata.Provider, events EventSink, audit AuditSink) *Broker {
	if events == nil {
		events = noopEvents{}
	}
	if audit == nil {
		audit = noopAudit{}
	}
	return &Broker{
		cfg:      cfg,
		provider: provider,
		events:   events,
		audit:    audit,
		rootRNG:  NewRNG(cfg.Seed),
		accounts: make(map[string]*accountHandle),
	}
}

func (b *Broker) handle(accountID string) (*accountHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, accountID)
	}
	return h, nil
}

// newID mints an ID of the form "<prefix>-<millis>-<rand4>" from the given
// RNG stream — the root RNG for account IDs, or the account's own child RNG
// for order/fill IDs, per the design note on RNG determinism.
func (b *Broker) newID(prefix string, rng *RNG) string {
	ts := b.cfg.clock().Now().UnixNano() / int64(time.Millisecond)
	return fmt.Sprintf("%s-%d-%s", prefix, ts, rng.token(4))
}

// CreateAccount opens a new account with the given initial capital,
// fully settled and available immediately.
func (b *Broker) CreateAccount(ctx context.Context, initialCapital decimal.Decimal) (*model.Account, error) {
	if initialCapital.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("broker: initial capital must be positive")
	}

	b.mu.Lock()
	id := b.newID("ACC", b.rootRNG)
	now := b.cfg.clock().Now()
	acct := &model.Account{
		ID:                id,
		CreatedAt:         now,
		SettledCash:       initialCapital.Round(6),
		Positions:         make(map[string]*model.Position),
		LastBorrowFeeDate: now.Format(isoDate),
	}
	b.accounts[id] = &accountHandle{account: acct, rng: b.rootRNG.Child(id)}
	b.mu.Unlock()

	brokermetrics.ActiveAccounts.Inc()
	slog.Info("account created", "account_id", id, "initial_capital", initialCapital.String())
	return cloneAccount(acct), nil
}
