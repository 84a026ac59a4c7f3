// Package dutchv1 is the dutch-auction swap sub-type. The destination amount
// decays linearly from StartAmount to EndAmount between StartTime and
// EndTime, evaluated against the timestamp of the resolve context. The
// payload is JSON.
package dutchv1

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/openfill/openfill/pkg/order"
	"github.com/openfill/openfill/pkg/schema"
)

// TypeID registered for this sub-type.
var TypeID = crypto.Keccak256Hash([]byte("openfill.dutch.v1"))

var ErrBadDecayWindow = errors.New("dutchv1: end time must be after start time")

type OrderData struct {
	InputToken  common.Hash `json:"inputToken"`
	InputAmount *big.Int    `json:"inputAmount"`
	Token       common.Hash `json:"token"`
	StartAmount *big.Int    `json:"startAmount"`
	EndAmount   *big.Int    `json:"endAmount"`
	StartTime   int64       `json:"startTime"`
	EndTime     int64       `json:"endTime"`
	Recipient   common.Hash `json:"recipient"`
	ChainID     *big.Int    `json:"chainId"`
	Settler     common.Hash `json:"settler"`
}

func (d OrderData) Validate() error {
	if d.InputAmount == nil || d.InputAmount.Sign() <= 0 {
		return errors.New("dutchv1: input amount must be positive")
	}
	if d.StartAmount == nil || d.EndAmount == nil || d.EndAmount.Sign() <= 0 {
		return errors.New("dutchv1: amounts must be positive")
	}
	if d.StartAmount.Cmp(d.EndAmount) < 0 {
		return errors.New("dutchv1: start amount below end amount")
	}
	if d.EndTime <= d.StartTime {
		return ErrBadDecayWindow
	}
	if d.ChainID == nil || d.ChainID.Sign() <= 0 {
		return errors.New("dutchv1: invalid destination chain id")
	}
	if d.Token == (common.Hash{}) || d.InputToken == (common.Hash{}) {
		return errors.New("dutchv1: zero token")
	}
	if d.Settler == (common.Hash{}) {
		return errors.New("dutchv1: zero destination settler")
	}
	return nil
}

// AmountAt evaluates the decay curve at ts, clamped to the window bounds.
func (d OrderData) AmountAt(ts int64) *big.Int {
	if ts <= d.StartTime {
		return new(big.Int).Set(d.StartAmount)
	}
	if ts >= d.EndTime {
		return new(big.Int).Set(d.EndAmount)
	}

	span := big.NewInt(d.EndTime - d.StartTime)
	elapsed := big.NewInt(ts - d.StartTime)
	drop := new(big.Int).Sub(d.StartAmount, d.EndAmount)
	drop.Mul(drop, elapsed)
	drop.Quo(drop, span)
	return new(big.Int).Sub(d.StartAmount, drop)
}

type fillData struct {
	Token         common.Hash `json:"token"`
	Amount        *big.Int    `json:"amount"`
	Recipient     common.Hash `json:"recipient"`
	OriginChainID *big.Int    `json:"originChainId"`
	FillDeadline  int64       `json:"fillDeadline"`
}

func (d OrderData) Resolve(rctx schema.ResolveContext, user common.Address, fillDeadline int64) ([]order.Output, []order.Output, []order.FillInstruction, error) {
	amount := d.AmountAt(rctx.Timestamp)

	originData, err := json.Marshal(fillData{
		Token:         d.Token,
		Amount:        amount,
		Recipient:     d.Recipient,
		OriginChainID: rctx.OriginChainID,
		FillDeadline:  fillDeadline,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("dutchv1: marshal origin data: %w", err)
	}

	maxSpent := []order.Output{{
		Token:     d.InputToken,
		Amount:    new(big.Int).Set(d.InputAmount),
		Recipient: order.UnknownRecipient,
		ChainID:   new(big.Int).Set(rctx.OriginChainID),
	}}
	minReceived := []order.Output{{
		Token:     d.Token,
		Amount:    amount,
		Recipient: d.Recipient,
		ChainID:   new(big.Int).Set(d.ChainID),
	}}
	instructions := []order.FillInstruction{{
		DestinationChainID: new(big.Int).Set(d.ChainID),
		DestinationSettler: d.Settler,
		OriginData:         originData,
	}}
	return maxSpent, minReceived, instructions, nil
}

// Codec implements schema.Codec for dutchv1 payloads.
type Codec struct{}

var _ schema.Codec = Codec{}

func (Codec) Decode(payload []byte) (schema.OrderData, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()

	var data OrderData
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("dutchv1: decode payload: %w", err)
	}
	return data, nil
}

func (Codec) Encode(data schema.OrderData) ([]byte, error) {
	dutch, ok := data.(OrderData)
	if !ok {
		return nil, fmt.Errorf("dutchv1: cannot encode %T", data)
	}
	return json.Marshal(dutch)
}
