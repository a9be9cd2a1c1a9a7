package marketdata

import (
	"context"
	"errors"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/model"
)

// ErrLiveDisabled is returned when the live provider was constructed
// without ENABLE_LIVE_MARKET_DATA=true.
var ErrLiveDisabled = errors.New("marketdata: live market data disabled")

// ErrLiveNotImplemented is returned even when live data is enabled — this
// variant exists to prove the Provider capability against a second
// implementation, not to reach a real venue.
var ErrLiveNotImplemented = errors.New("marketdata: live market data not implemented")

// Live is a placeholder venue-connected provider. It never actually
// returns a quote.
type Live struct {
	enabled bool
}

// NewLive builds a Live provider. enabled should come from
// ENABLE_LIVE_MARKET_DATA=true; when false every call fails immediately.
func NewLive(enabled bool) *Live {
	return &Live{enabled: enabled}
}

func (p *Live) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	if !p.enabled {
		return model.Quote{}, ErrLiveDisabled
	}
	return model.Quote{}, ErrLiveNotImplemented
}

func (p *Live) PeekQuote(ctx context.Context, symbol string) (model.Quote, error) {
	if !p.enabled {
		return model.Quote{}, ErrLiveDisabled
	}
	return model.Quote{}, ErrLiveNotImplemented
}
