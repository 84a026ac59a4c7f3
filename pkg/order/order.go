package order

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type Status uint

// dont change sequence of status fields, persisted records depend on it
const (
	Unknown Status = iota
	Resolved
	Opened
	PartiallyFilled
	Filled
	Settled
	Expired
	Refunded
)

func (s Status) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Opened:
		return "opened"
	case PartiallyFilled:
		return "partially_filled"
	case Filled:
		return "filled"
	case Settled:
		return "settled"
	case Expired:
		return "expired"
	case Refunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == Settled || s == Expired || s == Refunded
}

// UnknownRecipient marks an output whose receiver is not known at resolution
// time, the filler claims it when the leg is filled.
var UnknownRecipient = common.Hash{}

// Output is a token amount owed on a specific chain. Token and Recipient use
// the 32-byte chain-agnostic address form so non-EVM destinations fit.
type Output struct {
	Token     common.Hash `json:"token"`
	Amount    *big.Int    `json:"amount"`
	Recipient common.Hash `json:"recipient"`
	ChainID   *big.Int    `json:"chainId"`
}

// FillInstruction tells a filler how to satisfy one leg of an order. The
// engine produces OriginData at resolution and never interprets it again, the
// destination settler consumes it verbatim.
type FillInstruction struct {
	DestinationChainID *big.Int      `json:"destinationChainId"`
	DestinationSettler common.Hash   `json:"destinationSettler"`
	OriginData         hexutil.Bytes `json:"originData"`
}

// ResolvedOrder is the canonical, filler-consumable form of an intent.
type ResolvedOrder struct {
	ID               common.Hash       `json:"orderId"`
	User             common.Address    `json:"user"`
	OriginChainID    *big.Int          `json:"originChainId"`
	OpenDeadline     int64             `json:"openDeadline"`
	FillDeadline     int64             `json:"fillDeadline"`
	MaxSpent         []Output          `json:"maxSpent"`
	MinReceived      []Output          `json:"minReceived"`
	FillInstructions []FillInstruction `json:"fillInstructions"`
}
