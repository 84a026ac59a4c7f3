package ledger

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openfill/openfill/pkg/order"
)

type inMemStore struct {
	mu      sync.Mutex
	records map[common.Hash]*Record
}

// NewInMemStore is a ledger without persistence. Destination-chain tracker
// instances and tests use it.
func NewInMemStore() Store {
	return &inMemStore{records: map[common.Hash]*Record{}}
}

func (s *inMemStore) CreateOrder(o order.ResolvedOrder, status order.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[o.ID]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicateOrder, o.ID.Hex())
	}

	legs := make([]LegRecord, len(o.FillInstructions))
	for i := range legs {
		legs[i] = LegRecord{Index: i}
	}
	s.records[o.ID] = &Record{Order: o, Status: status, Legs: legs}
	return nil
}

func (s *inMemStore) Order(id common.Hash) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %v", ErrUnknownOrder, id.Hex())
	}
	return copyRecord(rec), nil
}

func (s *inMemStore) FillLeg(id common.Hash, legIndex int, filler common.Hash, fillerData []byte, filledAt int64) (order.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return order.Unknown, fmt.Errorf("%w: %v", ErrUnknownOrder, id.Hex())
	}
	if rec.Status.Terminal() {
		return order.Unknown, fmt.Errorf("%w: %v is %v", ErrTerminalStatus, id.Hex(), rec.Status)
	}
	if legIndex < 0 || legIndex >= len(rec.Legs) {
		return order.Unknown, fmt.Errorf("%w: %v leg %d", ErrUnknownOrder, id.Hex(), legIndex)
	}
	if rec.Legs[legIndex].Filled {
		return order.Unknown, fmt.Errorf("%w: order %v leg %d", ErrLegAlreadyFilled, id.Hex(), legIndex)
	}

	rec.Legs[legIndex].Filled = true
	rec.Legs[legIndex].Filler = filler
	rec.Legs[legIndex].FillerData = append([]byte(nil), fillerData...)
	rec.Legs[legIndex].FilledAt = filledAt

	rec.Status = order.Filled
	for _, leg := range rec.Legs {
		if !leg.Filled {
			rec.Status = order.PartiallyFilled
			break
		}
	}
	return rec.Status, nil
}

func (s *inMemStore) UpdateStatus(id common.Hash, from, to order.Status) error {
	if from.Terminal() && !(from == order.Expired && to == order.Refunded) {
		return fmt.Errorf("%w: cannot leave %v", ErrTerminalStatus, from)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownOrder, id.Hex())
	}
	if rec.Status != from {
		return fmt.Errorf("%w: order %v not in %v", ErrStatusConflict, id.Hex(), from)
	}
	rec.Status = to
	return nil
}

func (s *inMemStore) OrdersByStatus(statuses ...order.Status) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []Record
	for _, rec := range s.records {
		for _, st := range statuses {
			if rec.Status == st {
				records = append(records, copyRecord(rec))
				break
			}
		}
	}
	return records, nil
}

func copyRecord(rec *Record) Record {
	out := *rec
	out.Legs = append([]LegRecord(nil), rec.Legs...)
	return out
}
