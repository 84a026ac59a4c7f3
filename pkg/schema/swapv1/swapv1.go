// Package swapv1 is the fixed-price token swap sub-type. The payload is the
// ABI encoding of a list of legs, each leg pairs an origin-chain input with
// the destination-chain output that satisfies it.
package swapv1

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/openfill/openfill/pkg/order"
	"github.com/openfill/openfill/pkg/schema"
)

// TypeID registered for this sub-type.
var TypeID = crypto.Keccak256Hash([]byte("openfill.swap.v1"))

var ErrNoLegs = errors.New("swapv1: order data has no legs")

type Leg struct {
	InputToken  common.Hash
	InputAmount *big.Int
	Token       common.Hash
	Amount      *big.Int
	Recipient   common.Hash
	ChainID     *big.Int
	Settler     common.Hash
}

type OrderData struct {
	Legs []Leg
}

func (d OrderData) Validate() error {
	if len(d.Legs) == 0 {
		return ErrNoLegs
	}
	for i, leg := range d.Legs {
		if leg.InputAmount == nil || leg.InputAmount.Sign() <= 0 {
			return fmt.Errorf("swapv1: leg %d: input amount must be positive", i)
		}
		if leg.Amount == nil || leg.Amount.Sign() <= 0 {
			return fmt.Errorf("swapv1: leg %d: amount must be positive", i)
		}
		if leg.ChainID == nil || leg.ChainID.Sign() <= 0 {
			return fmt.Errorf("swapv1: leg %d: invalid destination chain id", i)
		}
		if leg.Token == (common.Hash{}) || leg.InputToken == (common.Hash{}) {
			return fmt.Errorf("swapv1: leg %d: zero token", i)
		}
		if leg.Settler == (common.Hash{}) {
			return fmt.Errorf("swapv1: leg %d: zero destination settler", i)
		}
	}
	return nil
}

// Resolve pairs maxSpent[i] with minReceived[i] and instructions[i], one
// triple per leg. Reconciliation relies on this alignment to pay each leg's
// filler its matching input.
func (d OrderData) Resolve(rctx schema.ResolveContext, user common.Address, fillDeadline int64) ([]order.Output, []order.Output, []order.FillInstruction, error) {
	maxSpent := make([]order.Output, 0, len(d.Legs))
	minReceived := make([]order.Output, 0, len(d.Legs))
	instructions := make([]order.FillInstruction, 0, len(d.Legs))

	for _, leg := range d.Legs {
		maxSpent = append(maxSpent, order.Output{
			Token:     leg.InputToken,
			Amount:    new(big.Int).Set(leg.InputAmount),
			Recipient: order.UnknownRecipient,
			ChainID:   new(big.Int).Set(rctx.OriginChainID),
		})
		minReceived = append(minReceived, order.Output{
			Token:     leg.Token,
			Amount:    new(big.Int).Set(leg.Amount),
			Recipient: leg.Recipient,
			ChainID:   new(big.Int).Set(leg.ChainID),
		})

		originData, err := packOriginData(leg, rctx.OriginChainID, fillDeadline)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("swapv1: pack origin data: %w", err)
		}
		instructions = append(instructions, order.FillInstruction{
			DestinationChainID: new(big.Int).Set(leg.ChainID),
			DestinationSettler: leg.Settler,
			OriginData:         originData,
		})
	}
	return maxSpent, minReceived, instructions, nil
}

// Codec implements schema.Codec for swapv1 payloads.
type Codec struct{}

var _ schema.Codec = Codec{}

func (Codec) Decode(payload []byte) (schema.OrderData, error) {
	out, err := payloadArgs.Unpack(payload)
	if err != nil {
		return nil, fmt.Errorf("swapv1: unpack payload: %w", err)
	}
	tuples := *abi.ConvertType(out[0], new([]legTuple)).(*[]legTuple)

	data := OrderData{Legs: make([]Leg, 0, len(tuples))}
	for _, t := range tuples {
		data.Legs = append(data.Legs, Leg{
			InputToken:  t.InputToken,
			InputAmount: t.InputAmount,
			Token:       t.Token,
			Amount:      t.Amount,
			Recipient:   t.Recipient,
			ChainID:     t.ChainId,
			Settler:     t.Settler,
		})
	}
	return data, nil
}

func (Codec) Encode(data schema.OrderData) ([]byte, error) {
	swap, ok := data.(OrderData)
	if !ok {
		return nil, fmt.Errorf("swapv1: cannot encode %T", data)
	}

	tuples := make([]legTuple, 0, len(swap.Legs))
	for _, leg := range swap.Legs {
		tuples = append(tuples, legTuple{
			InputToken:  leg.InputToken,
			InputAmount: leg.InputAmount,
			Token:       leg.Token,
			Amount:      leg.Amount,
			Recipient:   leg.Recipient,
			ChainId:     leg.ChainID,
			Settler:     leg.Settler,
		})
	}
	return payloadArgs.Pack(tuples)
}

// legTuple mirrors the ABI tuple component names, capitalized for the
// reflection-based marshalling in go-ethereum.
type legTuple struct {
	InputToken  [32]byte
	InputAmount *big.Int
	Token       [32]byte
	Amount      *big.Int
	Recipient   [32]byte
	ChainId     *big.Int
	Settler     [32]byte
}

type originDataTuple struct {
	Token         [32]byte
	Amount        *big.Int
	Recipient     [32]byte
	OriginChainId *big.Int
	FillDeadline  *big.Int
}

var (
	legsType = mustType("tuple[]", []abi.ArgumentMarshaling{
		{Name: "inputToken", Type: "bytes32"},
		{Name: "inputAmount", Type: "uint256"},
		{Name: "token", Type: "bytes32"},
		{Name: "amount", Type: "uint256"},
		{Name: "recipient", Type: "bytes32"},
		{Name: "chainId", Type: "uint256"},
		{Name: "settler", Type: "bytes32"},
	})
	payloadArgs = abi.Arguments{{Name: "legs", Type: legsType}}

	originDataType = mustType("tuple", []abi.ArgumentMarshaling{
		{Name: "token", Type: "bytes32"},
		{Name: "amount", Type: "uint256"},
		{Name: "recipient", Type: "bytes32"},
		{Name: "originChainId", Type: "uint256"},
		{Name: "fillDeadline", Type: "uint256"},
	})
	originDataArgs = abi.Arguments{{Name: "fill", Type: originDataType}}
)

func packOriginData(leg Leg, originChainID *big.Int, fillDeadline int64) ([]byte, error) {
	return originDataArgs.Pack(originDataTuple{
		Token:         leg.Token,
		Amount:        leg.Amount,
		Recipient:     leg.Recipient,
		OriginChainId: new(big.Int).Set(originChainID),
		FillDeadline:  big.NewInt(fillDeadline),
	})
}

func mustType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(err)
	}
	return typ
}
