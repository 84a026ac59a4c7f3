package jsonrpc

import (
	"errors"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openfill/openfill/pkg/ledger"
	"github.com/openfill/openfill/pkg/opener"
	"github.com/openfill/openfill/pkg/reconciler"
	"github.com/openfill/openfill/pkg/resolver"
	"github.com/openfill/openfill/pkg/tracker"
)

var _ = Describe("Error classification", func() {
	callerMistakes := []error{
		resolver.ErrSchemaNotFound,
		resolver.ErrMalformedPayload,
		resolver.ErrInvalidOrder,
		opener.ErrAlreadyOpened,
		opener.ErrOpenDeadlineExceeded,
		opener.ErrUnauthorized,
		tracker.ErrUnknownOrder,
		tracker.ErrLegNotFound,
		tracker.ErrLegAlreadyFilled,
		tracker.ErrOrderExpired,
		reconciler.ErrNotFilled,
		reconciler.ErrNotExpirable,
		ledger.ErrUnknownOrder,
	}

	It("should report caller mistakes as invalid params", func() {
		for _, sentinel := range callerMistakes {
			code, _, status := classify(fmt.Errorf("wrapped: %w", sentinel))
			Expect(code).To(Equal(ErrorCodeInvalidParams), sentinel.Error())
			Expect(status).To(Equal(http.StatusBadRequest), sentinel.Error())
		}
	})

	It("should report settling an unfilled order as invalid params, not an internal error", func() {
		code, _, status := classify(fmt.Errorf("engine: %w", reconciler.ErrNotFilled))
		Expect(code).To(Equal(ErrorCodeInvalidParams))
		Expect(status).To(Equal(http.StatusBadRequest))

		code, _, status = classify(fmt.Errorf("engine: %w", reconciler.ErrNotExpirable))
		Expect(code).To(Equal(ErrorCodeInvalidParams))
		Expect(status).To(Equal(http.StatusBadRequest))
	})

	It("should report everything unrecognized as an internal error", func() {
		code, _, status := classify(errors.New("disk on fire"))
		Expect(code).To(Equal(ErrorCodeInternalError))
		Expect(status).To(Equal(http.StatusInternalServerError))
	})
})
