package resolver_test

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openfill/openfill/pkg/order"
	"github.com/openfill/openfill/pkg/resolver"
	"github.com/openfill/openfill/pkg/schema"
	"github.com/openfill/openfill/pkg/schema/swapv1"
)

var _ = Describe("Resolver", func() {
	var res *resolver.Resolver
	rctx := schema.ResolveContext{OriginChainID: big.NewInt(1), Timestamp: 1000}

	payload := func() []byte {
		data, err := swapv1.Codec{}.Encode(swapv1.OrderData{Legs: []swapv1.Leg{{
			InputToken:  common.HexToHash("0x01"),
			InputAmount: big.NewInt(100),
			Token:       common.HexToHash("0x02"),
			Amount:      big.NewInt(90),
			Recipient:   common.HexToHash("0x03"),
			ChainID:     big.NewInt(10),
			Settler:     common.HexToHash("0x04"),
		}}})
		Expect(err).To(BeNil())
		return data
	}

	newIntent := func() order.GaslessIntent {
		return order.GaslessIntent{
			User:           common.HexToAddress("0x1111111111111111111111111111111111111111"),
			Nonce:          1,
			OriginChainID:  big.NewInt(1),
			OpenDeadlineAt: 1500,
			FillDeadlineAt: 2000,
			OrderType:      swapv1.TypeID,
			OrderData:      payload(),
		}
	}

	BeforeEach(func() {
		registry := schema.NewRegistry()
		Expect(registry.Register(swapv1.TypeID, swapv1.Codec{})).To(Succeed())
		res = resolver.New(registry)
	})

	It("should resolve a valid intent into a complete order", func() {
		intent := newIntent()

		resolved, err := res.Resolve(rctx, intent)
		Expect(err).To(BeNil())
		Expect(resolved.ID).To(Equal(intent.OrderID(rctx.OriginChainID)))
		Expect(resolved.User).To(Equal(intent.User))
		Expect(resolved.OpenDeadline).To(Equal(intent.OpenDeadlineAt))
		Expect(resolved.FillDeadline).To(Equal(intent.FillDeadlineAt))
		Expect(resolved.MaxSpent).To(HaveLen(1))
		Expect(resolved.MinReceived).To(HaveLen(1))
		Expect(resolved.FillInstructions).To(HaveLen(1))
	})

	It("should be idempotent", func() {
		first, err := res.Resolve(rctx, newIntent())
		Expect(err).To(BeNil())
		second, err := res.Resolve(rctx, newIntent())
		Expect(err).To(BeNil())
		Expect(first).To(Equal(second))
	})

	It("should fail on an unregistered sub-type", func() {
		intent := newIntent()
		intent.OrderType = common.HexToHash("0xdead")

		_, err := res.Resolve(rctx, intent)
		Expect(err).To(MatchError(resolver.ErrSchemaNotFound))
	})

	It("should fail on a malformed payload", func() {
		intent := newIntent()
		intent.OrderData = []byte{0x00, 0x01}

		_, err := res.Resolve(rctx, intent)
		Expect(err).To(MatchError(resolver.ErrMalformedPayload))
	})

	It("should fail on a payload that violates sub-type rules", func() {
		empty, err := swapv1.Codec{}.Encode(swapv1.OrderData{})
		Expect(err).To(BeNil())
		intent := newIntent()
		intent.OrderData = empty

		_, err = res.Resolve(rctx, intent)
		Expect(err).To(MatchError(resolver.ErrInvalidOrder))
	})

	It("should reject a gasless intent bound to a different chain", func() {
		intent := newIntent()
		intent.OriginChainID = big.NewInt(5)

		_, err := res.Resolve(rctx, intent)
		Expect(err).To(MatchError(resolver.ErrInvalidOrder))
	})
})
