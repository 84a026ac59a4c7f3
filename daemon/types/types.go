// Package types holds the wire shapes of the daemon's JSON-RPC surface.
package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/openfill/openfill/pkg/ledger"
	"github.com/openfill/openfill/pkg/order"
)

// GaslessOrder is the wire form of a pre-signed intent.
type GaslessOrder struct {
	User          common.Address `json:"user" binding:"required"`
	Nonce         uint64         `json:"nonce"`
	OriginChainID *hexutil.Big   `json:"originChainId" binding:"required"`
	OpenDeadline  int64          `json:"openDeadline" binding:"required"`
	FillDeadline  int64          `json:"fillDeadline" binding:"required"`
	OriginSettler common.Address `json:"originSettler"`
	OrderType     common.Hash    `json:"orderType" binding:"required"`
	OrderData     hexutil.Bytes  `json:"orderData" binding:"required"`
}

// OnchainOrder is the wire form of a self-submitted intent.
type OnchainOrder struct {
	User         common.Address `json:"user" binding:"required"`
	FillDeadline int64          `json:"fillDeadline" binding:"required"`
	OrderType    common.Hash    `json:"orderType" binding:"required"`
	OrderData    hexutil.Bytes  `json:"orderData" binding:"required"`
}

// RequestResolve carries exactly one of the two intent variants.
type RequestResolve struct {
	Gasless *GaslessOrder `json:"gasless,omitempty"`
	Onchain *OnchainOrder `json:"onchain,omitempty"`
}

// Intent converts the wire request into the engine's intent form.
func (r RequestResolve) Intent() (order.Intent, error) {
	switch {
	case r.Gasless != nil && r.Onchain != nil:
		return nil, fmt.Errorf("both gasless and onchain given, want exactly one")
	case r.Gasless != nil:
		return order.GaslessIntent{
			User:           r.Gasless.User,
			Nonce:          r.Gasless.Nonce,
			OriginChainID:  r.Gasless.OriginChainID.ToInt(),
			OpenDeadlineAt: r.Gasless.OpenDeadline,
			FillDeadlineAt: r.Gasless.FillDeadline,
			OriginSettler:  r.Gasless.OriginSettler,
			OrderType:      r.Gasless.OrderType,
			OrderData:      r.Gasless.OrderData,
		}, nil
	case r.Onchain != nil:
		return order.OnchainIntent{
			User:           r.Onchain.User,
			FillDeadlineAt: r.Onchain.FillDeadline,
			OrderType:      r.Onchain.OrderType,
			OrderData:      r.Onchain.OrderData,
		}, nil
	default:
		return nil, fmt.Errorf("neither gasless nor onchain given")
	}
}

type RequestOpen struct {
	RequestResolve

	// Signature authorizes a delegated open of a gasless intent. Empty for
	// self-submitted intents.
	Signature hexutil.Bytes `json:"signature,omitempty"`
}

type RequestFill struct {
	OrderID    common.Hash   `json:"orderId" binding:"required"`
	OriginData hexutil.Bytes `json:"originData" binding:"required"`
	Filler     common.Hash   `json:"filler" binding:"required"`
	FillerData hexutil.Bytes `json:"fillerData,omitempty"`
}

type RequestOrder struct {
	OrderID common.Hash `json:"orderId" binding:"required"`
}

type RequestListOrders struct {
	// Statuses filters by status name, empty lists all non-terminal orders.
	Statuses []string `json:"statuses,omitempty"`
}

type ResponseOpen struct {
	OrderID common.Hash `json:"orderId"`
}

type ResponseFill struct {
	OrderID common.Hash `json:"orderId"`
	Status  string      `json:"status"`
}

type ResponseOrder struct {
	Order  order.ResolvedOrder `json:"order"`
	Status string              `json:"status"`
	Legs   []ledger.LegRecord  `json:"legs"`
}

// ParseStatuses maps status names from the wire to status values.
func ParseStatuses(names []string) ([]order.Status, error) {
	all := []order.Status{
		order.Resolved, order.Opened, order.PartiallyFilled,
		order.Filled, order.Settled, order.Expired, order.Refunded,
	}

	statuses := make([]order.Status, 0, len(names))
	for _, name := range names {
		found := false
		for _, st := range all {
			if st.String() == name {
				statuses = append(statuses, st)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown status %q", name)
		}
	}
	return statuses, nil
}
