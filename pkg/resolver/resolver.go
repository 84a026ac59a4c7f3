// Package resolver turns raw intents into canonical resolved orders. It has
// no storage and no side effects, fillers run the same resolution
// independently and must arrive at byte-identical results.
package resolver

import (
	"errors"
	"fmt"

	"github.com/openfill/openfill/pkg/order"
	"github.com/openfill/openfill/pkg/schema"
)

var (
	ErrSchemaNotFound   = errors.New("resolver: schema not found")
	ErrMalformedPayload = errors.New("resolver: malformed payload")
	ErrInvalidOrder     = errors.New("resolver: invalid order")
)

type Resolver struct {
	registry *schema.Registry
}

func New(registry *schema.Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve is a pure function of the intent and the resolve context. Calling
// it twice with identical inputs yields identical output, including the fill
// instructions and the order identifier.
func (r *Resolver) Resolve(rctx schema.ResolveContext, intent order.Intent) (order.ResolvedOrder, error) {
	codec, err := r.registry.Lookup(intent.TypeID())
	if err != nil {
		return order.ResolvedOrder{}, fmt.Errorf("%w: %v", ErrSchemaNotFound, err)
	}

	data, err := codec.Decode(intent.Data())
	if err != nil {
		return order.ResolvedOrder{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := data.Validate(); err != nil {
		return order.ResolvedOrder{}, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	// A gasless intent is bound to its origin chain by signature. Resolving
	// it against a different chain would derive an identifier nobody else
	// agrees on, reject instead.
	if gasless, ok := intent.(order.GaslessIntent); ok {
		if rctx.OriginChainID == nil || gasless.OriginChainID == nil || rctx.OriginChainID.Cmp(gasless.OriginChainID) != 0 {
			return order.ResolvedOrder{}, fmt.Errorf("%w: intent bound to chain %v, resolving on %v",
				ErrInvalidOrder, gasless.OriginChainID, rctx.OriginChainID)
		}
	}

	maxSpent, minReceived, instructions, err := data.Resolve(rctx, intent.Account(), intent.FillDeadline())
	if err != nil {
		return order.ResolvedOrder{}, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	openDeadline, _ := intent.OpenDeadline()
	return order.ResolvedOrder{
		ID:               intent.OrderID(rctx.OriginChainID),
		User:             intent.Account(),
		OriginChainID:    rctx.OriginChainID,
		OpenDeadline:     openDeadline,
		FillDeadline:     intent.FillDeadline(),
		MaxSpent:         maxSpent,
		MinReceived:      minReceived,
		FillInstructions: instructions,
	}, nil
}
