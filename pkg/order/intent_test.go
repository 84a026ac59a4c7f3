package order_test

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openfill/openfill/pkg/order"
)

var _ = Describe("Intent identifiers", func() {
	newGasless := func() order.GaslessIntent {
		return order.GaslessIntent{
			User:           common.HexToAddress("0x1111111111111111111111111111111111111111"),
			Nonce:          7,
			OriginChainID:  big.NewInt(1),
			OpenDeadlineAt: 1000,
			FillDeadlineAt: 2000,
			OrderType:      common.HexToHash("0xaa"),
			OrderData:      []byte{1, 2, 3},
		}
	}

	Context("gasless intents", func() {
		It("should derive the same identifier for identical content", func() {
			Expect(newGasless().OrderID(nil)).To(Equal(newGasless().OrderID(nil)))
		})

		It("should ignore the passed chain id and use its own", func() {
			intent := newGasless()
			Expect(intent.OrderID(big.NewInt(999))).To(Equal(intent.OrderID(nil)))
		})

		It("should change the identifier when any field changes", func() {
			base := newGasless().OrderID(nil)

			bumped := newGasless()
			bumped.Nonce++
			Expect(bumped.OrderID(nil)).NotTo(Equal(base))

			later := newGasless()
			later.FillDeadlineAt++
			Expect(later.OrderID(nil)).NotTo(Equal(base))

			other := newGasless()
			other.OrderData = []byte{1, 2, 4}
			Expect(other.OrderID(nil)).NotTo(Equal(base))

			elsewhere := newGasless()
			elsewhere.OriginChainID = big.NewInt(10)
			Expect(elsewhere.OrderID(nil)).NotTo(Equal(base))
		})

		It("should not collide with the signing hash", func() {
			intent := newGasless()
			Expect(intent.SigningHash()).NotTo(Equal(intent.OrderID(nil)))
		})
	})

	Context("onchain intents", func() {
		It("should derive the identifier from the submission chain", func() {
			intent := order.OnchainIntent{
				User:           common.HexToAddress("0x2222222222222222222222222222222222222222"),
				FillDeadlineAt: 2000,
				OrderType:      common.HexToHash("0xaa"),
				OrderData:      []byte{1, 2, 3},
			}
			Expect(intent.OrderID(big.NewInt(1))).NotTo(Equal(intent.OrderID(big.NewInt(2))))
			Expect(intent.OrderID(big.NewInt(1))).To(Equal(intent.OrderID(big.NewInt(1))))
		})

		It("should not collide with a gasless intent of the same content", func() {
			gasless := newGasless()
			onchain := order.OnchainIntent{
				User:           gasless.User,
				FillDeadlineAt: gasless.FillDeadlineAt,
				OrderType:      gasless.OrderType,
				OrderData:      gasless.OrderData,
			}
			Expect(onchain.OrderID(gasless.OriginChainID)).NotTo(Equal(gasless.OrderID(nil)))
		})

		It("should have no open deadline", func() {
			_, ok := order.OnchainIntent{}.OpenDeadline()
			Expect(ok).To(BeFalse())
		})
	})
})

var _ = Describe("Status", func() {
	It("should mark only settled, expired and refunded as terminal", func() {
		Expect(order.Settled.Terminal()).To(BeTrue())
		Expect(order.Expired.Terminal()).To(BeTrue())
		Expect(order.Refunded.Terminal()).To(BeTrue())
		Expect(order.Opened.Terminal()).To(BeFalse())
		Expect(order.PartiallyFilled.Terminal()).To(BeFalse())
		Expect(order.Filled.Terminal()).To(BeFalse())
	})
})
