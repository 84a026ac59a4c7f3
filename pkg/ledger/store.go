// Package ledger persists per-order state keyed by the deterministic order
// identifier. All per-order linearization lives here: creation is
// at-most-once and leg fills are conditional single-shot updates, so the
// coordinator and tracker above it never race each other into a double
// commit or double fill.
package ledger

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openfill/openfill/pkg/order"
)

var (
	ErrDuplicateOrder   = errors.New("ledger: order already exists")
	ErrUnknownOrder     = errors.New("ledger: unknown order")
	ErrLegAlreadyFilled = errors.New("ledger: leg already filled")
	ErrStatusConflict   = errors.New("ledger: order status changed concurrently")
	ErrTerminalStatus   = errors.New("ledger: order in terminal status")
)

// LegRecord is the fill state of one leg, index-aligned with the resolved
// order's fill instructions.
type LegRecord struct {
	Index      int         `json:"index"`
	Filled     bool        `json:"filled"`
	Filler     common.Hash `json:"filler"`
	FillerData []byte      `json:"fillerData"`
	FilledAt   int64       `json:"filledAt"`
}

type Record struct {
	Order  order.ResolvedOrder `json:"order"`
	Status order.Status        `json:"status"`
	Legs   []LegRecord         `json:"legs"`
}

type Store interface {
	// CreateOrder commits a resolved order exactly once. A second create for
	// the same identifier fails with ErrDuplicateOrder no matter how the two
	// calls interleave.
	CreateOrder(o order.ResolvedOrder, status order.Status) error

	// Order returns the full record or ErrUnknownOrder.
	Order(id common.Hash) (Record, error)

	// FillLeg marks one leg filled and records the filler. At most one call
	// per leg ever succeeds, repeats fail with ErrLegAlreadyFilled. The
	// returned status is the order status after the fill.
	FillLeg(id common.Hash, legIndex int, filler common.Hash, fillerData []byte, filledAt int64) (order.Status, error)

	// UpdateStatus transitions from -> to, failing with ErrStatusConflict if
	// the stored status is no longer from, and ErrTerminalStatus if from is
	// terminal. Expired -> Refunded is the one allowed exit from a terminal
	// status, it records that the escrow went back to the user.
	UpdateStatus(id common.Hash, from, to order.Status) error

	// OrdersByStatus lists records currently in any of the given statuses.
	OrdersByStatus(statuses ...order.Status) ([]Record, error)
}
