package notifier_test

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openfill/openfill/pkg/notifier"
)

var _ = Describe("Broker", func() {
	event := notifier.OpenedEvent{OrderID: common.HexToHash("0x01")}

	It("should fan an event out to every subscriber", func() {
		broker := notifier.NewBroker()
		first, cancelFirst := broker.Subscribe()
		defer cancelFirst()
		second, cancelSecond := broker.Subscribe()
		defer cancelSecond()

		Expect(broker.Publish(context.Background(), event)).To(Succeed())
		Eventually(first).Should(Receive(Equal(event)))
		Eventually(second).Should(Receive(Equal(event)))
	})

	It("should stop delivering after cancel", func() {
		broker := notifier.NewBroker()
		events, cancel := broker.Subscribe()
		cancel()

		Expect(broker.Publish(context.Background(), event)).To(Succeed())
		Eventually(events).Should(BeClosed())
	})

	It("should not block on a subscriber that stopped reading", func() {
		broker := notifier.NewBroker()
		_, cancel := broker.Subscribe()
		defer cancel()

		for i := 0; i < 1000; i++ {
			Expect(broker.Publish(context.Background(), event)).To(Succeed())
		}
	})
})
