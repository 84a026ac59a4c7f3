// Package engine wires the resolution, opening, tracking and reconciliation
// components into one lifecycle-managed unit the daemon and tests run.
package engine

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/openfill/openfill/pkg/custody"
	"github.com/openfill/openfill/pkg/ledger"
	"github.com/openfill/openfill/pkg/notifier"
	"github.com/openfill/openfill/pkg/opener"
	"github.com/openfill/openfill/pkg/order"
	"github.com/openfill/openfill/pkg/reconciler"
	"github.com/openfill/openfill/pkg/resolver"
	"github.com/openfill/openfill/pkg/schema"
	"github.com/openfill/openfill/pkg/schema/dutchv1"
	"github.com/openfill/openfill/pkg/schema/swapv1"
	"github.com/openfill/openfill/pkg/tracker"
)

type Config struct {
	// OriginChainID is the chain this instance opens orders on.
	OriginChainID *big.Int

	// Dialector selects the ledger database. Nil runs on the in-memory store.
	Dialector gorm.Dialector

	// RedisURL, when set, publishes opened orders over redis pub/sub in
	// addition to the in-process broker.
	RedisURL string

	// SweepInterval for the settlement reconciler, zero keeps the default.
	SweepInterval time.Duration

	// Clock override for tests, nil uses the wall clock.
	Clock func() time.Time
}

type Engine struct {
	registry   *schema.Registry
	resolver   *resolver.Resolver
	store      ledger.Store
	broker     *notifier.Broker
	opener     *opener.Opener
	tracker    *tracker.Tracker
	reconciler *reconciler.Reconciler
	custody    custody.Custody
	logger     *zap.Logger
	chainID    *big.Int
	clock      func() time.Time
}

// New builds an engine with the built-in order sub-types registered. cst may
// be nil, a recording vault is used then.
func New(config Config, cst custody.Custody, logger *zap.Logger) (*Engine, error) {
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}
	if config.OriginChainID == nil {
		return nil, fmt.Errorf("engine: origin chain id is required")
	}
	if cst == nil {
		cst = custody.NewVault()
	}

	registry := schema.NewRegistry()
	if err := registry.Register(swapv1.TypeID, swapv1.Codec{}); err != nil {
		return nil, err
	}
	if err := registry.Register(dutchv1.TypeID, dutchv1.Codec{}); err != nil {
		return nil, err
	}

	store := ledger.NewInMemStore()
	if config.Dialector != nil {
		var err error
		store, err = ledger.NewStore(config.Dialector, &gorm.Config{
			NowFunc: func() time.Time { return time.Now().UTC() },
		})
		if err != nil {
			return nil, err
		}
	}

	broker := notifier.NewBroker()
	var ntf notifier.Notifier = broker
	if config.RedisURL != "" {
		redisNtf, err := notifier.NewRedisNotifier(config.RedisURL, logger.Named("notifier"))
		if err != nil {
			return nil, err
		}
		ntf = notifier.Fanout{broker, redisNtf}
	}

	res := resolver.New(registry)
	opn := opener.New(res, store, ntf, opener.SignerVerifier{}, cst,
		logger.Named("opener"), opener.WithClock(clock))
	trk := tracker.New(store, logger.Named("tracker"), tracker.WithClock(clock))

	recOpts := []reconciler.Option{reconciler.WithClock(clock)}
	if config.SweepInterval > 0 {
		recOpts = append(recOpts, reconciler.WithInterval(config.SweepInterval))
	}
	rec := reconciler.New(store, cst, logger.Named("reconciler"), recOpts...)

	return &Engine{
		registry:   registry,
		resolver:   res,
		store:      store,
		broker:     broker,
		opener:     opn,
		tracker:    trk,
		reconciler: rec,
		custody:    cst,
		logger:     logger,
		chainID:    config.OriginChainID,
		clock:      clock,
	}, nil
}

func (e *Engine) Start() error {
	return e.reconciler.Start()
}

func (e *Engine) Stop() {
	e.reconciler.Stop()
}

func (e *Engine) resolveContext() schema.ResolveContext {
	return schema.ResolveContext{
		OriginChainID: e.chainID,
		Timestamp:     e.clock().Unix(),
	}
}

// Registry exposes the schema registry so embedders can register their own
// order sub-types before Start.
func (e *Engine) Registry() *schema.Registry {
	return e.registry
}

// ChainID is the origin chain this instance opens orders on.
func (e *Engine) ChainID() *big.Int {
	return new(big.Int).Set(e.chainID)
}

// Resolve previews an intent without touching the ledger.
func (e *Engine) Resolve(intent order.Intent) (order.ResolvedOrder, error) {
	return e.resolver.Resolve(e.resolveContext(), intent)
}

// Open commits an intent as an opened order.
func (e *Engine) Open(ctx context.Context, intent order.Intent, auth opener.Authorization) (common.Hash, error) {
	return e.opener.Open(ctx, e.resolveContext(), intent, auth)
}

// Fill records a destination-chain fill attestation.
func (e *Engine) Fill(orderID common.Hash, originData []byte, filler common.Hash, fillerData []byte) (order.Status, error) {
	return e.tracker.Fill(orderID, originData, filler, fillerData)
}

// Order returns the ledger record for an order.
func (e *Engine) Order(id common.Hash) (ledger.Record, error) {
	return e.store.Order(id)
}

// Orders lists records in the given statuses, all non-terminal ones when none
// are given.
func (e *Engine) Orders(statuses ...order.Status) ([]ledger.Record, error) {
	if len(statuses) == 0 {
		statuses = []order.Status{order.Opened, order.PartiallyFilled, order.Filled}
	}
	return e.store.OrdersByStatus(statuses...)
}

// Settle forces settlement of a filled order outside the sweep.
func (e *Engine) Settle(ctx context.Context, id common.Hash) error {
	return e.reconciler.Settle(ctx, id)
}

// Expire forces expiry of an order past its fill deadline outside the sweep.
func (e *Engine) Expire(ctx context.Context, id common.Hash) error {
	return e.reconciler.Expire(ctx, id)
}

// Sweep runs one reconciliation round immediately.
func (e *Engine) Sweep(ctx context.Context) error {
	return e.reconciler.Sweep(ctx)
}

// Subscribe returns a channel of future opened-order events.
func (e *Engine) Subscribe() (<-chan notifier.OpenedEvent, func()) {
	return e.broker.Subscribe()
}
