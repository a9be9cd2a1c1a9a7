package broker

import "errors"

// ErrUnknownAccount is the one operation that fails out-of-band per §7 —
// every other business-rule failure is surfaced as a REJECTED order.
var ErrUnknownAccount = errors.New("broker: unknown account")

// ErrMetricsUnavailable wraps a market-data failure encountered while
// computing margin metrics for an account that already holds a position in
// that symbol. That should not happen in normal operation (the symbol was
// tradeable when the position was opened). GetAccount returns it wrapped as
// an error; the order pipeline instead turns it into a REJECTED order.
var ErrMetricsUnavailable = errors.New("broker: margin metrics unavailable")
