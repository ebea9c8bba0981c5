package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/coladapo/wealthincome/internal/model"
)

// ErrDataUnavailable reports an upstream fetch failure or timeout. The
// caller retries next cycle; data is never fabricated.
var ErrDataUnavailable = errors.New("market data unavailable")

// Provider is the market data collaborator port.
type Provider interface {
	// FetchBars returns up to lookback bars at the given interval, ordered
	// oldest first, ending at the current period.
	FetchBars(ctx context.Context, symbol string, interval time.Duration, lookback int) ([]model.PriceBar, error)
	// FetchQuote returns the current reference price.
	FetchQuote(ctx context.Context, symbol string) (model.Quote, error)
}
