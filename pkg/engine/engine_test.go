package engine_test

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/openfill/openfill/pkg/custody"
	"github.com/openfill/openfill/pkg/engine"
	"github.com/openfill/openfill/pkg/notifier"
	"github.com/openfill/openfill/pkg/opener"
	"github.com/openfill/openfill/pkg/order"
	"github.com/openfill/openfill/pkg/schema/swapv1"
	"github.com/openfill/openfill/pkg/tracker"
)

var _ = Describe("Engine", func() {
	var (
		eng   *engine.Engine
		vault *custody.Vault
		key   *ecdsa.PrivateKey
		now   time.Time
	)

	t0 := time.Unix(100000, 0)
	fillerA := common.HexToHash("0xaa")
	fillerB := common.HexToHash("0xbb")

	payload := func() []byte {
		data, err := swapv1.Codec{}.Encode(swapv1.OrderData{Legs: []swapv1.Leg{
			{
				InputToken:  common.HexToHash("0x01"),
				InputAmount: big.NewInt(100),
				Token:       common.HexToHash("0x02"),
				Amount:      big.NewInt(90),
				Recipient:   common.HexToHash("0x03"),
				ChainID:     big.NewInt(10),
				Settler:     common.HexToHash("0x04"),
			},
			{
				InputToken:  common.HexToHash("0x05"),
				InputAmount: big.NewInt(200),
				Token:       common.HexToHash("0x06"),
				Amount:      big.NewInt(180),
				Recipient:   common.HexToHash("0x07"),
				ChainID:     big.NewInt(20),
				Settler:     common.HexToHash("0x08"),
			},
		}})
		Expect(err).To(BeNil())
		return data
	}

	newIntent := func() order.GaslessIntent {
		return order.GaslessIntent{
			User:           crypto.PubkeyToAddress(key.PublicKey),
			Nonce:          1,
			OriginChainID:  big.NewInt(1),
			OpenDeadlineAt: t0.Unix() + 300,
			FillDeadlineAt: t0.Unix() + 600,
			OrderType:      swapv1.TypeID,
			OrderData:      payload(),
		}
	}

	sign := func(intent order.GaslessIntent) opener.Authorization {
		hash := intent.SigningHash()
		sig, err := crypto.Sign(hash.Bytes(), key)
		Expect(err).To(BeNil())
		return opener.Authorization{Signature: sig}
	}

	BeforeEach(func() {
		var err error
		key, err = crypto.GenerateKey()
		Expect(err).To(BeNil())

		now = t0
		vault = custody.NewVault()
		eng, err = engine.New(engine.Config{
			OriginChainID: big.NewInt(1),
			Clock:         func() time.Time { return now },
		}, vault, zap.NewNop())
		Expect(err).To(BeNil())
	})

	It("should carry an order from open to settled", func() {
		intent := newIntent()

		resolved, err := eng.Resolve(intent)
		Expect(err).To(BeNil())
		Expect(resolved.FillInstructions).To(HaveLen(2))

		id, err := eng.Open(context.Background(), intent, sign(intent))
		Expect(err).To(BeNil())

		// Two different fillers take one leg each, 100 seconds in.
		now = t0.Add(100 * time.Second)
		status, err := eng.Fill(id, resolved.FillInstructions[0].OriginData, fillerA, nil)
		Expect(err).To(BeNil())
		Expect(status).To(Equal(order.PartiallyFilled))

		status, err = eng.Fill(id, resolved.FillInstructions[1].OriginData, fillerB, nil)
		Expect(err).To(BeNil())
		Expect(status).To(Equal(order.Filled))

		Expect(eng.Sweep(context.Background())).To(Succeed())

		record, err := eng.Order(id)
		Expect(err).To(BeNil())
		Expect(record.Status).To(Equal(order.Settled))

		// Escrow at open, then one payout per leg to its filler.
		movements := vault.Movements()
		Expect(movements).To(HaveLen(4))
		Expect(movements[0].Op).To(Equal("escrow"))
		Expect(movements[1].Op).To(Equal("escrow"))
		Expect(movements[2].Op).To(Equal("release"))
		Expect(movements[2].Recipient).To(Equal(fillerA))
		Expect(movements[3].Recipient).To(Equal(fillerB))
	})

	It("should expire and refund an order nobody fills", func() {
		intent := newIntent()
		id, err := eng.Open(context.Background(), intent, sign(intent))
		Expect(err).To(BeNil())

		now = t0.Add(700 * time.Second)
		Expect(eng.Sweep(context.Background())).To(Succeed())

		record, err := eng.Order(id)
		Expect(err).To(BeNil())
		Expect(record.Status).To(Equal(order.Refunded))

		movements := vault.Movements()
		Expect(movements).To(HaveLen(4))
		Expect(movements[2].Op).To(Equal("refund"))
		Expect(movements[2].User).To(Equal(intent.User))
		Expect(movements[3].Op).To(Equal("refund"))
	})

	It("should reject a late fill and expire the order instead", func() {
		intent := newIntent()
		resolved, err := eng.Resolve(intent)
		Expect(err).To(BeNil())

		id, err := eng.Open(context.Background(), intent, sign(intent))
		Expect(err).To(BeNil())

		now = t0.Add(601 * time.Second)
		_, err = eng.Fill(id, resolved.FillInstructions[0].OriginData, fillerA, nil)
		Expect(err).To(MatchError(tracker.ErrOrderExpired))

		record, err := eng.Order(id)
		Expect(err).To(BeNil())
		Expect(record.Status).To(Equal(order.Expired))
	})

	It("should deliver the opened event to subscribers", func() {
		events, cancel := eng.Subscribe()
		defer cancel()

		intent := newIntent()
		expected, err := eng.Resolve(intent)
		Expect(err).To(BeNil())

		id, err := eng.Open(context.Background(), intent, sign(intent))
		Expect(err).To(BeNil())

		var event notifier.OpenedEvent
		Eventually(events).Should(Receive(&event))
		Expect(event.OrderID).To(Equal(id))
		Expect(event.Order).To(Equal(expected))
	})

	It("should refuse opening past the open deadline", func() {
		intent := newIntent()
		now = t0.Add(301 * time.Second)

		_, err := eng.Open(context.Background(), intent, sign(intent))
		Expect(err).To(MatchError(opener.ErrOpenDeadlineExceeded))
	})

	It("should keep replay protection across restarts of the flow", func() {
		intent := newIntent()
		_, err := eng.Open(context.Background(), intent, sign(intent))
		Expect(err).To(BeNil())

		_, err = eng.Open(context.Background(), intent, sign(intent))
		Expect(err).To(MatchError(opener.ErrAlreadyOpened))
	})

	It("should list open orders", func() {
		intent := newIntent()
		id, err := eng.Open(context.Background(), intent, sign(intent))
		Expect(err).To(BeNil())

		records, err := eng.Orders()
		Expect(err).To(BeNil())
		Expect(records).To(HaveLen(1))
		Expect(records[0].Order.ID).To(Equal(id))
	})
})
