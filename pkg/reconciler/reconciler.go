// Package reconciler drives orders out of their non-terminal states. A
// background sweep settles fully filled orders, expires orders past their
// fill deadline and refunds whatever was escrowed for them.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/openfill/openfill/pkg/custody"
	"github.com/openfill/openfill/pkg/ledger"
	"github.com/openfill/openfill/pkg/order"
)

var (
	ErrNotFilled    = errors.New("reconciler: order not fully filled")
	ErrNotExpirable = errors.New("reconciler: order not past fill deadline")
)

type Reconciler struct {
	store    ledger.Store
	custody  custody.Custody
	logger   *zap.Logger
	interval time.Duration
	clock    func() time.Time

	quit chan struct{}
	wg   sync.WaitGroup
}

func New(store ledger.Store, cst custody.Custody, logger *zap.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:    store,
		custody:  cst,
		logger:   logger,
		interval: 15 * time.Second,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type Option func(*Reconciler)

func WithInterval(interval time.Duration) Option {
	return func(r *Reconciler) { r.interval = interval }
}

func WithClock(clock func() time.Time) Option {
	return func(r *Reconciler) { r.clock = clock }
}

func (r *Reconciler) Start() error {
	if r.quit != nil {
		return fmt.Errorf("reconciler: already started")
	}
	r.quit = make(chan struct{})
	go r.sweepLoop()
	return nil
}

func (r *Reconciler) Stop() {
	if r.quit != nil {
		close(r.quit)
		r.wg.Wait()
		r.quit = nil
	}
}

func (r *Reconciler) sweepLoop() {
	r.wg.Add(1)
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		case <-ticker.C:
			if err := r.Sweep(context.Background()); err != nil {
				r.logger.Error("sweep", zap.Error(err))
			}
		}
	}
}

// Sweep walks every open order once. Filled orders are settled, orders past
// their fill deadline are expired and refunded. One bad order does not stop
// the sweep, failures are logged and retried next round.
func (r *Reconciler) Sweep(ctx context.Context) error {
	records, err := r.store.OrdersByStatus(order.Opened, order.PartiallyFilled, order.Filled)
	if err != nil {
		return err
	}

	now := r.clock().Unix()
	for _, record := range records {
		switch {
		case record.Status == order.Filled:
			if err := r.Settle(ctx, record.Order.ID); err != nil && !errors.Is(err, ledger.ErrStatusConflict) {
				r.logger.Error("settle", zap.String("orderId", record.Order.ID.Hex()), zap.Error(err))
			}
		case now > record.Order.FillDeadline:
			if err := r.Expire(ctx, record.Order.ID); err != nil && !errors.Is(err, ledger.ErrStatusConflict) {
				r.logger.Error("expire", zap.String("orderId", record.Order.ID.Hex()), zap.Error(err))
			}
		}
	}
	return nil
}

// Settle releases each leg's escrowed spend to the filler that filled it and
// marks the order Settled. The status transition happens first so a crash
// between transition and payout is visible as a settled order with pending
// movements rather than a double payout.
func (r *Reconciler) Settle(ctx context.Context, id common.Hash) error {
	record, err := r.store.Order(id)
	if err != nil {
		return err
	}
	if record.Status != order.Filled {
		return fmt.Errorf("%w: %v is %v", ErrNotFilled, id.Hex(), record.Status)
	}

	if err := r.store.UpdateStatus(id, order.Filled, order.Settled); err != nil {
		return err
	}

	for i, leg := range record.Legs {
		if i >= len(record.Order.MaxSpent) {
			break
		}
		recipient := r.payoutRecipient(record, leg)
		if err := r.custody.Release(ctx, id, record.Order.MaxSpent[i], recipient); err != nil {
			r.logger.Error("release payout",
				zap.String("orderId", id.Hex()),
				zap.Int("leg", i),
				zap.Error(err))
		}
	}

	r.logger.Info("order settled", zap.String("orderId", id.Hex()))
	return nil
}

// payoutRecipient picks who a leg's payout goes to: the recipient declared at
// resolution when there is one, otherwise the filler that filled the leg.
func (r *Reconciler) payoutRecipient(record ledger.Record, leg ledger.LegRecord) common.Hash {
	if leg.Index < len(record.Order.MaxSpent) {
		if declared := record.Order.MaxSpent[leg.Index].Recipient; declared != order.UnknownRecipient {
			return declared
		}
	}
	return leg.Filler
}

// Expire transitions a non-terminal order past its fill deadline to Expired,
// refunds the escrowed outputs to the user and finishes at Refunded. Partial
// fills expire like unfilled ones, the filled legs settle on-chain through
// the destination settlers and are not this engine's liability.
func (r *Reconciler) Expire(ctx context.Context, id common.Hash) error {
	record, err := r.store.Order(id)
	if err != nil {
		return err
	}
	if record.Status.Terminal() {
		return fmt.Errorf("%w: %v is %v", ledger.ErrTerminalStatus, id.Hex(), record.Status)
	}
	if r.clock().Unix() <= record.Order.FillDeadline {
		return fmt.Errorf("%w: %v deadline %d", ErrNotExpirable, id.Hex(), record.Order.FillDeadline)
	}

	if err := r.store.UpdateStatus(id, record.Status, order.Expired); err != nil {
		return err
	}

	refunded := true
	for i, output := range record.Order.MaxSpent {
		if err := r.custody.Refund(ctx, id, output, record.Order.User); err != nil {
			refunded = false
			r.logger.Error("refund",
				zap.String("orderId", id.Hex()),
				zap.Int("output", i),
				zap.Error(err))
		}
	}
	if refunded {
		if err := r.store.UpdateStatus(id, order.Expired, order.Refunded); err != nil {
			return err
		}
	}

	r.logger.Info("order expired",
		zap.String("orderId", id.Hex()),
		zap.Bool("refunded", refunded))
	return nil
}
