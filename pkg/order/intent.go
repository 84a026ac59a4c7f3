package order

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Intent variant tags, part of the order identifier preimage.
const (
	variantOnchain byte = 0x00
	variantGasless byte = 0x01
)

// Intent is a user's declared desire to move value across chains. Two
// variants implement it: GaslessIntent (pre-signed, opened by a delegate) and
// OnchainIntent (self-submitted, the submitting caller is the signer).
type Intent interface {
	// TypeID identifies the registered schema the payload decodes against.
	TypeID() common.Hash

	// Data is the opaque sub-type payload.
	Data() []byte

	// Account is the signer (gasless) or submitting caller (onchain).
	Account() common.Address

	// Deadline for opening. ok is false for self-submitted intents, which
	// have no open deadline since submission itself is the opening.
	OpenDeadline() (deadline int64, ok bool)

	FillDeadline() int64

	// OrderID derives the deterministic order identifier from intent
	// content. Independent instances recompute it without communication, so
	// it must only depend on the arguments and the intent fields.
	OrderID(originChainID *big.Int) common.Hash
}

// GaslessIntent is signed offchain by User and handed to a delegate which
// opens it on the origin chain before OpenDeadlineAt.
type GaslessIntent struct {
	User           common.Address `json:"user"`
	Nonce          uint64         `json:"nonce"`
	OriginChainID  *big.Int       `json:"originChainId"`
	OpenDeadlineAt int64          `json:"openDeadline"`
	FillDeadlineAt int64          `json:"fillDeadline"`
	OriginSettler  common.Address `json:"originSettler"`
	OrderType      common.Hash    `json:"orderType"`
	OrderData      []byte         `json:"orderData"`
}

func (i GaslessIntent) TypeID() common.Hash      { return i.OrderType }
func (i GaslessIntent) Data() []byte             { return i.OrderData }
func (i GaslessIntent) Account() common.Address  { return i.User }
func (i GaslessIntent) FillDeadline() int64      { return i.FillDeadlineAt }
func (i GaslessIntent) OpenDeadline() (int64, bool) {
	return i.OpenDeadlineAt, true
}

// OrderID for a gasless intent hashes the intent's own origin chain id, the
// passed one is ignored so that every instance agrees regardless of where the
// computation runs.
func (i GaslessIntent) OrderID(_ *big.Int) common.Hash {
	return hashIntent(i.OriginChainID, variantGasless, i.User, i.Nonce, i.OpenDeadlineAt, i.FillDeadlineAt, i.OrderType, i.OrderData)
}

// SigningHash is the digest User signs over. It binds the same content as the
// order identifier under a distinct domain tag so a signature can never be
// replayed as an identifier or vice versa.
func (i GaslessIntent) SigningHash() common.Hash {
	id := i.OrderID(nil)
	return crypto.Keccak256Hash([]byte("OPENFILL_GASLESS_V1"), id[:])
}

// OnchainIntent is submitted directly by its signer. User is filled in by the
// transport from the authenticated caller, no nonce is needed because the
// submission itself is the authorization.
type OnchainIntent struct {
	User           common.Address `json:"user"`
	FillDeadlineAt int64          `json:"fillDeadline"`
	OrderType      common.Hash    `json:"orderType"`
	OrderData      []byte         `json:"orderData"`
}

func (i OnchainIntent) TypeID() common.Hash     { return i.OrderType }
func (i OnchainIntent) Data() []byte            { return i.OrderData }
func (i OnchainIntent) Account() common.Address { return i.User }
func (i OnchainIntent) FillDeadline() int64     { return i.FillDeadlineAt }
func (i OnchainIntent) OpenDeadline() (int64, bool) {
	return 0, false
}

func (i OnchainIntent) OrderID(originChainID *big.Int) common.Hash {
	return hashIntent(originChainID, variantOnchain, i.User, 0, 0, i.FillDeadlineAt, i.OrderType, i.OrderData)
}

// hashIntent is the shared identifier preimage: origin chain id (32 bytes),
// variant tag, account, nonce, both deadlines, schema type id and the raw
// payload. Two intents differing in any of these never collide.
func hashIntent(originChainID *big.Int, variant byte, account common.Address, nonce uint64, openDeadline, fillDeadline int64, typeID common.Hash, payload []byte) common.Hash {
	var chainBuf [32]byte
	if originChainID != nil {
		originChainID.FillBytes(chainBuf[:])
	}

	var numBuf [24]byte
	binary.BigEndian.PutUint64(numBuf[0:8], nonce)
	binary.BigEndian.PutUint64(numBuf[8:16], uint64(openDeadline))
	binary.BigEndian.PutUint64(numBuf[16:24], uint64(fillDeadline))

	return crypto.Keccak256Hash(
		chainBuf[:],
		[]byte{variant},
		account.Bytes(),
		numBuf[:],
		typeID.Bytes(),
		payload,
	)
}
