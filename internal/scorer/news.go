package scorer

import (
	"context"

	"github.com/infouniverseforloop/binary/internal/domain"
)

// NoNews is the default news checker. It reports no high-impact window for
// any symbol, which keeps the risk model purely technical until a real
// calendar source is wired in.
type NoNews struct{}

func (NoNews) HighImpact(ctx context.Context, symbol string) (bool, error) {
	return false, nil
}

var _ domain.NewsChecker = NoNews{}
