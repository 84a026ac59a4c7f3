// Package notifier is the channel fillers learn fill instructions from. The
// opening coordinator publishes exactly one event per successful open, with a
// payload identical to what a direct resolve of the same intent returns.
package notifier

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openfill/openfill/pkg/order"
)

// OpenedEvent is published when an order is committed to the ledger.
type OpenedEvent struct {
	OrderID common.Hash         `json:"orderId"`
	Order   order.ResolvedOrder `json:"resolvedOrder"`
}

type Notifier interface {
	Publish(ctx context.Context, event OpenedEvent) error
}

// Fanout publishes to every member, first failure wins.
type Fanout []Notifier

func (f Fanout) Publish(ctx context.Context, event OpenedEvent) error {
	for _, n := range f {
		if err := n.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
