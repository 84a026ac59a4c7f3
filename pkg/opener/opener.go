// Package opener validates and commits new orders into the ledger exactly
// once. It is the replay-protection boundary: whatever the nonce discipline
// of a sub-type, the order identifier uniqueness check here is what actually
// prevents a double open.
package opener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/openfill/openfill/pkg/custody"
	"github.com/openfill/openfill/pkg/ledger"
	"github.com/openfill/openfill/pkg/notifier"
	"github.com/openfill/openfill/pkg/order"
	"github.com/openfill/openfill/pkg/resolver"
	"github.com/openfill/openfill/pkg/schema"
)

var (
	ErrAlreadyOpened        = errors.New("opener: order already opened")
	ErrOpenDeadlineExceeded = errors.New("opener: open deadline exceeded")
	ErrUnauthorized         = errors.New("opener: authorization rejected")
)

// Verifier checks a gasless intent's signature. Signature schemes live with
// the collaborator, not here.
type Verifier interface {
	Verify(intent order.GaslessIntent, signature []byte) (bool, error)
}

// Authorization for an open call. A non-nil signature selects the delegated
// path, a nil signature asserts the submitting caller is the signer.
type Authorization struct {
	Signature []byte
}

type Opener struct {
	resolver *resolver.Resolver
	store    ledger.Store
	notifier notifier.Notifier
	verifier Verifier
	custody  custody.Custody
	logger   *zap.Logger
	clock    func() time.Time
}

func New(res *resolver.Resolver, store ledger.Store, ntf notifier.Notifier, verifier Verifier, cst custody.Custody, logger *zap.Logger, opts ...Option) *Opener {
	o := &Opener{
		resolver: res,
		store:    store,
		notifier: ntf,
		verifier: verifier,
		custody:  cst,
		logger:   logger,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type Option func(*Opener)

// WithClock replaces the wall clock, tests pin deadlines with it.
func WithClock(clock func() time.Time) Option {
	return func(o *Opener) { o.clock = clock }
}

// Open resolves the intent, enforces the open deadline and replay
// protection, escrows the max-spend outputs, commits the order as Opened and
// publishes the Opened notification. Two concurrent calls for the same
// logical intent end with exactly one success, the ledger's at-most-once
// create is the enforcement point.
//
// A rejected open leaves no partial state behind.
func (o *Opener) Open(ctx context.Context, rctx schema.ResolveContext, intent order.Intent, auth Authorization) (common.Hash, error) {
	resolved, err := o.resolver.Resolve(rctx, intent)
	if err != nil {
		return common.Hash{}, err
	}

	if _, err := o.store.Order(resolved.ID); err == nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrAlreadyOpened, resolved.ID.Hex())
	} else if !errors.Is(err, ledger.ErrUnknownOrder) {
		return common.Hash{}, err
	}

	if deadline, ok := intent.OpenDeadline(); ok && o.clock().Unix() > deadline {
		return common.Hash{}, fmt.Errorf("%w: deadline %d, now %d", ErrOpenDeadlineExceeded, deadline, o.clock().Unix())
	}

	if err := o.authorize(intent, auth); err != nil {
		return common.Hash{}, err
	}

	escrowed, err := o.escrow(ctx, resolved)
	if err != nil {
		return common.Hash{}, err
	}

	if err := o.store.CreateOrder(resolved, order.Opened); err != nil {
		o.releaseEscrow(ctx, resolved, escrowed)
		if errors.Is(err, ledger.ErrDuplicateOrder) {
			return common.Hash{}, fmt.Errorf("%w: %v", ErrAlreadyOpened, resolved.ID.Hex())
		}
		return common.Hash{}, err
	}

	// The notification payload must be identical to a direct resolve of the
	// same intent, so publish the resolved order as committed, untouched.
	event := notifier.OpenedEvent{OrderID: resolved.ID, Order: resolved}
	if err := o.notifier.Publish(ctx, event); err != nil {
		o.logger.Error("publish opened event",
			zap.String("orderId", resolved.ID.Hex()),
			zap.Error(err))
	}

	o.logger.Info("order opened",
		zap.String("orderId", resolved.ID.Hex()),
		zap.String("user", resolved.User.Hex()),
		zap.Int("legs", len(resolved.FillInstructions)))
	return resolved.ID, nil
}

func (o *Opener) authorize(intent order.Intent, auth Authorization) error {
	gasless, delegated := intent.(order.GaslessIntent)
	if !delegated {
		// Self-submitted: the transport authenticated the caller and set it
		// as the intent account, nothing further to check here.
		return nil
	}

	if len(auth.Signature) == 0 {
		return fmt.Errorf("%w: delegated open without signature", ErrUnauthorized)
	}
	ok, err := o.verifier.Verify(gasless, auth.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !ok {
		return fmt.Errorf("%w: signature does not match signer %v", ErrUnauthorized, gasless.User.Hex())
	}
	return nil
}

func (o *Opener) escrow(ctx context.Context, resolved order.ResolvedOrder) (int, error) {
	for i, output := range resolved.MaxSpent {
		if err := o.custody.Escrow(ctx, resolved.ID, output); err != nil {
			o.releaseEscrow(ctx, resolved, i)
			return 0, fmt.Errorf("opener: escrow output %d: %w", i, err)
		}
	}
	return len(resolved.MaxSpent), nil
}

// releaseEscrow compensates a failed open by refunding the first n escrowed
// outputs back to the user. Best effort, failures are logged.
func (o *Opener) releaseEscrow(ctx context.Context, resolved order.ResolvedOrder, n int) {
	for i := 0; i < n; i++ {
		if err := o.custody.Refund(ctx, resolved.ID, resolved.MaxSpent[i], resolved.User); err != nil {
			o.logger.Error("refund escrow after failed open",
				zap.String("orderId", resolved.ID.Hex()),
				zap.Int("output", i),
				zap.Error(err))
		}
	}
}
