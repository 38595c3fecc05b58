package notify

import (
	"context"
	"errors"
)

// Fanout publishes to several publishers in order.  Every publisher is
// attempted; their failures are joined.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, auctionID uint64, ev Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, auctionID, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EndedOnly forwards auction-ended events and ignores the rest.  It wraps
// the durable queue publisher, which only cares about final results.
type EndedOnly struct{ Next Publisher }

func (e EndedOnly) Publish(ctx context.Context, auctionID uint64, ev Event) error {
	if ev.Type != AuctionEnded {
		return nil
	}
	return e.Next.Publish(ctx, auctionID, ev)
}
