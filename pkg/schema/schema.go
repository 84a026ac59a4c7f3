package schema

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openfill/openfill/pkg/order"
)

var (
	ErrDuplicateSchema = errors.New("schema: type identifier already registered")
	ErrUnknownSchema   = errors.New("schema: unknown type identifier")
)

// ResolveContext carries the chain context resolution is allowed to depend
// on. It is always passed explicitly, resolution never reads ambient state.
type ResolveContext struct {
	// OriginChainID of the instance performing the resolution.
	OriginChainID *big.Int

	// Timestamp the resolution is evaluated at, unix seconds. Dynamic
	// pricing sub-types derive their current price from it.
	Timestamp int64
}

// OrderData is a decoded sub-type payload. Implementations are closed,
// explicitly registered types, the engine never inspects payloads beyond
// this interface.
type OrderData interface {
	// Validate checks sub-type declared constraints on the decoded fields.
	Validate() error

	// Resolve produces the canonical outputs and per-leg fill instructions.
	// It must be a pure function of the receiver and its arguments.
	Resolve(rctx ResolveContext, user common.Address, fillDeadline int64) (maxSpent, minReceived []order.Output, instructions []order.FillInstruction, err error)
}

// Codec binds a sub-type payload encoding. Decode then Encode is lossless
// for every field Resolve consumes.
type Codec interface {
	Decode(payload []byte) (OrderData, error)
	Encode(data OrderData) ([]byte, error)
}
