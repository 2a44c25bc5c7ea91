package reactivestreams

import (
	"math"

	"github.com/fluxorio/fluxor-streams/pkg/core"
	"github.com/fluxorio/fluxor-streams/pkg/core/failfast"
)

// credit is the outstanding demand of one subscriber. It is not safe for
// concurrent use; the owning stream guards it.
type credit struct {
	outstanding int64
}

// grant adds n credits. n <= 0 fails with ErrInvalidDemand; a total above
// math.MaxInt64 fails with ErrExcessiveDemand. On error the balance is unchanged.
func (c *credit) grant(n int64) error {
	if n <= 0 {
		return core.NewError(core.CodeInvalidDemand, "%s, got %d", core.ErrInvalidDemand.Message, n)
	}
	if n > math.MaxInt64-c.outstanding {
		return core.ErrExcessiveDemand
	}
	c.outstanding += n
	return nil
}

// consume takes n credits; the caller must not take more than available
func (c *credit) consume(n int64) {
	failfast.If(n >= 0 && n <= c.outstanding, "consume %d exceeds available %d", n, c.outstanding)
	c.outstanding -= n
}

func (c *credit) available() int64 {
	return c.outstanding
}
