package reconciler_test

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/openfill/openfill/pkg/custody"
	"github.com/openfill/openfill/pkg/ledger"
	"github.com/openfill/openfill/pkg/order"
	"github.com/openfill/openfill/pkg/reconciler"
)

var _ = Describe("Reconciler", func() {
	var (
		store ledger.Store
		vault *custody.Vault
		rec   *reconciler.Reconciler
		now   time.Time
	)

	filler := common.HexToHash("0xf1")
	user := common.HexToAddress("0x1111111111111111111111111111111111111111")

	newOrder := func(tag byte, legs int) order.ResolvedOrder {
		o := order.ResolvedOrder{
			ID:            common.BytesToHash([]byte{0xee, tag}),
			User:          user,
			OriginChainID: big.NewInt(1),
			FillDeadline:  2000,
		}
		for i := 0; i < legs; i++ {
			o.MaxSpent = append(o.MaxSpent, order.Output{
				Token:     common.HexToHash("0x01"),
				Amount:    big.NewInt(int64(100 + i)),
				Recipient: order.UnknownRecipient,
				ChainID:   big.NewInt(1),
			})
			o.FillInstructions = append(o.FillInstructions, order.FillInstruction{
				DestinationChainID: big.NewInt(10),
				DestinationSettler: common.HexToHash("0x04"),
				OriginData:         []byte{byte(i)},
			})
		}
		return o
	}

	BeforeEach(func() {
		store = ledger.NewInMemStore()
		vault = custody.NewVault()
		now = time.Unix(1600, 0)
		rec = reconciler.New(store, vault, zap.NewNop(),
			reconciler.WithClock(func() time.Time { return now }))
	})

	Context("settlement", func() {
		It("should settle a filled order and pay each leg's filler", func() {
			o := newOrder(1, 2)
			Expect(store.CreateOrder(o, order.Opened)).To(Succeed())
			_, err := store.FillLeg(o.ID, 0, filler, nil, 1600)
			Expect(err).To(BeNil())
			otherFiller := common.HexToHash("0xf2")
			_, err = store.FillLeg(o.ID, 1, otherFiller, nil, 1700)
			Expect(err).To(BeNil())

			Expect(rec.Settle(context.Background(), o.ID)).To(Succeed())

			record, err := store.Order(o.ID)
			Expect(err).To(BeNil())
			Expect(record.Status).To(Equal(order.Settled))

			movements := vault.Movements()
			Expect(movements).To(HaveLen(2))
			Expect(movements[0].Op).To(Equal("release"))
			Expect(movements[0].Recipient).To(Equal(filler))
			Expect(movements[0].Output.Amount.Int64()).To(Equal(int64(100)))
			Expect(movements[1].Recipient).To(Equal(otherFiller))
			Expect(movements[1].Output.Amount.Int64()).To(Equal(int64(101)))
		})

		It("should refuse to settle a partially filled order", func() {
			o := newOrder(2, 2)
			Expect(store.CreateOrder(o, order.Opened)).To(Succeed())
			_, err := store.FillLeg(o.ID, 0, filler, nil, 1600)
			Expect(err).To(BeNil())

			Expect(rec.Settle(context.Background(), o.ID)).To(MatchError(reconciler.ErrNotFilled))
			Expect(vault.Movements()).To(BeEmpty())
		})

		It("should settle at most once", func() {
			o := newOrder(3, 1)
			Expect(store.CreateOrder(o, order.Opened)).To(Succeed())
			_, err := store.FillLeg(o.ID, 0, filler, nil, 1600)
			Expect(err).To(BeNil())

			Expect(rec.Settle(context.Background(), o.ID)).To(Succeed())
			Expect(rec.Settle(context.Background(), o.ID)).NotTo(Succeed())
			Expect(vault.Movements()).To(HaveLen(1))
		})
	})

	Context("expiry", func() {
		It("should expire and refund an order past its fill deadline", func() {
			o := newOrder(4, 1)
			Expect(store.CreateOrder(o, order.Opened)).To(Succeed())
			now = time.Unix(2100, 0)

			Expect(rec.Expire(context.Background(), o.ID)).To(Succeed())

			record, err := store.Order(o.ID)
			Expect(err).To(BeNil())
			Expect(record.Status).To(Equal(order.Refunded))

			movements := vault.Movements()
			Expect(movements).To(HaveLen(1))
			Expect(movements[0].Op).To(Equal("refund"))
			Expect(movements[0].User).To(Equal(user))
		})

		It("should refuse to expire before the deadline", func() {
			o := newOrder(5, 1)
			Expect(store.CreateOrder(o, order.Opened)).To(Succeed())

			Expect(rec.Expire(context.Background(), o.ID)).To(MatchError(reconciler.ErrNotExpirable))
		})

		It("should expire a partially filled order", func() {
			o := newOrder(6, 2)
			Expect(store.CreateOrder(o, order.Opened)).To(Succeed())
			_, err := store.FillLeg(o.ID, 0, filler, nil, 1600)
			Expect(err).To(BeNil())
			now = time.Unix(2100, 0)

			Expect(rec.Expire(context.Background(), o.ID)).To(Succeed())

			record, err := store.Order(o.ID)
			Expect(err).To(BeNil())
			Expect(record.Status).To(Equal(order.Refunded))
		})

		It("should not expire a settled order", func() {
			o := newOrder(7, 1)
			Expect(store.CreateOrder(o, order.Opened)).To(Succeed())
			_, err := store.FillLeg(o.ID, 0, filler, nil, 1600)
			Expect(err).To(BeNil())
			Expect(rec.Settle(context.Background(), o.ID)).To(Succeed())
			now = time.Unix(2100, 0)

			Expect(rec.Expire(context.Background(), o.ID)).To(MatchError(ledger.ErrTerminalStatus))
		})
	})

	Context("sweeping", func() {
		It("should settle filled orders and expire stale ones in one round", func() {
			filled := newOrder(8, 1)
			stale := newOrder(9, 1)
			fresh := newOrder(10, 1)
			fresh.FillDeadline = 9000

			Expect(store.CreateOrder(filled, order.Opened)).To(Succeed())
			Expect(store.CreateOrder(stale, order.Opened)).To(Succeed())
			Expect(store.CreateOrder(fresh, order.Opened)).To(Succeed())
			_, err := store.FillLeg(filled.ID, 0, filler, nil, 1600)
			Expect(err).To(BeNil())
			now = time.Unix(2100, 0)

			Expect(rec.Sweep(context.Background())).To(Succeed())

			settled, err := store.Order(filled.ID)
			Expect(err).To(BeNil())
			Expect(settled.Status).To(Equal(order.Settled))

			refunded, err := store.Order(stale.ID)
			Expect(err).To(BeNil())
			Expect(refunded.Status).To(Equal(order.Refunded))

			untouched, err := store.Order(fresh.ID)
			Expect(err).To(BeNil())
			Expect(untouched.Status).To(Equal(order.Opened))
		})

		It("should run the background loop until stopped", func() {
			o := newOrder(11, 1)
			Expect(store.CreateOrder(o, order.Opened)).To(Succeed())
			_, err := store.FillLeg(o.ID, 0, filler, nil, 1600)
			Expect(err).To(BeNil())

			fast := reconciler.New(store, vault, zap.NewNop(),
				reconciler.WithClock(func() time.Time { return now }),
				reconciler.WithInterval(10*time.Millisecond))
			Expect(fast.Start()).To(Succeed())
			defer fast.Stop()

			Eventually(func() order.Status {
				record, err := store.Order(o.ID)
				Expect(err).To(BeNil())
				return record.Status
			}).Should(Equal(order.Settled))
		})
	})
})
