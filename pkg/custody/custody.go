// Package custody is the boundary to the value-transfer collaborator. The
// engine decides that escrow, payout or refund is due and who it is owed to,
// how value actually moves is not its concern.
package custody

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openfill/openfill/pkg/order"
)

type Custody interface {
	// Escrow locks an output at opening time.
	Escrow(ctx context.Context, id common.Hash, output order.Output) error

	// Release pays an escrowed output out to recipient after settlement.
	Release(ctx context.Context, id common.Hash, output order.Output, recipient common.Hash) error

	// Refund returns an escrowed output to the original user after expiry.
	Refund(ctx context.Context, id common.Hash, output order.Output, user common.Address) error
}

// Movement is one recorded custody operation.
type Movement struct {
	Op        string
	OrderID   common.Hash
	Output    order.Output
	Recipient common.Hash
	User      common.Address
}

// Vault records movements without moving anything. It stands in for the real
// custody collaborator in the daemon's dry-run mode and in tests.
type Vault struct {
	mu        sync.Mutex
	movements []Movement
}

var _ Custody = (*Vault)(nil)

func NewVault() *Vault {
	return &Vault{}
}

func (v *Vault) Escrow(_ context.Context, id common.Hash, output order.Output) error {
	v.record(Movement{Op: "escrow", OrderID: id, Output: output})
	return nil
}

func (v *Vault) Release(_ context.Context, id common.Hash, output order.Output, recipient common.Hash) error {
	v.record(Movement{Op: "release", OrderID: id, Output: output, Recipient: recipient})
	return nil
}

func (v *Vault) Refund(_ context.Context, id common.Hash, output order.Output, user common.Address) error {
	v.record(Movement{Op: "refund", OrderID: id, Output: output, User: user})
	return nil
}

// Movements returns a copy of everything recorded so far.
func (v *Vault) Movements() []Movement {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Movement(nil), v.movements...)
}

func (v *Vault) record(m Movement) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.movements = append(v.movements, m)
}
