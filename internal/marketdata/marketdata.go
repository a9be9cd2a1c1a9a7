// Package marketdata implements the MarketDataProvider capability: a
// two-method contract (GetQuote/PeekQuote) with two implementations, Replay
// and Live. The execution engine depends only on the Provider interface, not
// on either concrete variant.
package marketdata

import (
	"context"
	"errors"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/model"
)

// ErrUnknownSymbol is returned by both Provider methods when the symbol was
// never configured.
var ErrUnknownSymbol = errors.New("marketdata: unknown symbol")

// Provider exposes a two-sided quote for a symbol. GetQuote advances the
// provider's internal cursor for that symbol; PeekQuote reads the same
// price without advancing anything.
type Provider interface {
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
	PeekQuote(ctx context.Context, symbol string) (model.Quote, error)
}
