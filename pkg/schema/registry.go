package schema

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry maps sub-type identifiers to codecs. It is append-only, a bound
// identifier can never be rebound or removed, so resolution of historical
// orders stays deterministic for the lifetime of the ledger.
type Registry struct {
	mu     sync.RWMutex
	codecs map[common.Hash]Codec
}

func NewRegistry() *Registry {
	return &Registry{codecs: map[common.Hash]Codec{}}
}

func (r *Registry) Register(id common.Hash, codec Codec) error {
	if codec == nil {
		return fmt.Errorf("schema: nil codec for type %v", id.Hex())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.codecs[id]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicateSchema, id.Hex())
	}
	r.codecs[id] = codec
	return nil
}

func (r *Registry) Lookup(id common.Hash) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codec, ok := r.codecs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownSchema, id.Hex())
	}
	return codec, nil
}

// Types returns the registered identifiers, in no particular order.
func (r *Registry) Types() []common.Hash {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]common.Hash, 0, len(r.codecs))
	for id := range r.codecs {
		ids = append(ids, id)
	}
	return ids
}
