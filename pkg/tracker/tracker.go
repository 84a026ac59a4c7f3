// Package tracker ingests fill attestations from destination chains and
// advances orders through PartiallyFilled and Filled. Legs may land in any
// order and each leg is credited to exactly one filler.
package tracker

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/openfill/openfill/pkg/ledger"
	"github.com/openfill/openfill/pkg/order"
)

var (
	ErrUnknownOrder     = errors.New("tracker: unknown order")
	ErrLegNotFound      = errors.New("tracker: no instruction matches fill data")
	ErrLegAlreadyFilled = errors.New("tracker: leg already filled")
	ErrOrderExpired     = errors.New("tracker: order expired")
	ErrOrderTerminal    = errors.New("tracker: order in terminal status")
)

type Tracker struct {
	store  ledger.Store
	logger *zap.Logger
	clock  func() time.Time
}

func New(store ledger.Store, logger *zap.Logger, opts ...Option) *Tracker {
	t := &Tracker{store: store, logger: logger, clock: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type Option func(*Tracker)

func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) { t.clock = clock }
}

// Fill records that originData was executed on the destination by filler.
// The leg is matched by byte equality against the order's fill instructions,
// nothing in originData is interpreted. Reporting after the fill deadline
// transitions the order to Expired first and then rejects, so a late
// attestation can never resurrect a dead order.
func (t *Tracker) Fill(orderID common.Hash, originData []byte, filler common.Hash, fillerData []byte) (order.Status, error) {
	record, err := t.store.Order(orderID)
	if err != nil {
		if errors.Is(err, ledger.ErrUnknownOrder) {
			return order.Unknown, fmt.Errorf("%w: %v", ErrUnknownOrder, orderID.Hex())
		}
		return order.Unknown, err
	}

	if record.Status.Terminal() {
		if record.Status == order.Expired || record.Status == order.Refunded {
			return record.Status, fmt.Errorf("%w: %v", ErrOrderExpired, orderID.Hex())
		}
		return record.Status, fmt.Errorf("%w: %v is %v", ErrOrderTerminal, orderID.Hex(), record.Status)
	}

	now := t.clock().Unix()
	if now > record.Order.FillDeadline {
		if err := t.store.UpdateStatus(orderID, record.Status, order.Expired); err != nil && !errors.Is(err, ledger.ErrStatusConflict) && !errors.Is(err, ledger.ErrTerminalStatus) {
			return record.Status, err
		}
		t.logger.Info("order expired on late fill report",
			zap.String("orderId", orderID.Hex()),
			zap.Int64("fillDeadline", record.Order.FillDeadline),
			zap.Int64("reportedAt", now))
		return order.Expired, fmt.Errorf("%w: deadline %d, reported %d", ErrOrderExpired, record.Order.FillDeadline, now)
	}

	legIndex := -1
	for i, instruction := range record.Order.FillInstructions {
		if bytes.Equal(instruction.OriginData, originData) {
			legIndex = i
			break
		}
	}
	if legIndex < 0 {
		return record.Status, fmt.Errorf("%w: order %v", ErrLegNotFound, orderID.Hex())
	}

	status, err := t.store.FillLeg(orderID, legIndex, filler, fillerData, now)
	if err != nil {
		if errors.Is(err, ledger.ErrLegAlreadyFilled) {
			return record.Status, fmt.Errorf("%w: order %v leg %d", ErrLegAlreadyFilled, orderID.Hex(), legIndex)
		}
		if errors.Is(err, ledger.ErrTerminalStatus) {
			// The reconciler moved the order to a terminal status between the
			// read above and the leg update. Re-read so the rejection names
			// the status the order actually landed in.
			if rec, rerr := t.store.Order(orderID); rerr == nil {
				record = rec
			}
			if record.Status == order.Settled {
				return record.Status, fmt.Errorf("%w: %v is %v", ErrOrderTerminal, orderID.Hex(), record.Status)
			}
			return order.Expired, fmt.Errorf("%w: %v", ErrOrderExpired, orderID.Hex())
		}
		return record.Status, err
	}

	t.logger.Info("leg filled",
		zap.String("orderId", orderID.Hex()),
		zap.Int("leg", legIndex),
		zap.String("filler", filler.Hex()),
		zap.String("status", status.String()))
	return status, nil
}
