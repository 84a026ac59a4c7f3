package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	"github.com/openfill/openfill/pkg/order"
)

// OrderRow is the persisted order record. Outputs and fill instructions are
// stored as JSON, they are written once at opening and only ever read back
// whole.
type OrderRow struct {
	gorm.Model

	OrderID       string `gorm:"uniqueIndex"`
	Status        uint
	User          string
	OriginChainID string
	OpenDeadline  int64
	FillDeadline  int64
	MaxSpent      []byte
	MinReceived   []byte
	Instructions  []byte
}

type LegRow struct {
	gorm.Model

	OrderID    string `gorm:"index:idx_order_leg,unique"`
	LegIndex   int    `gorm:"index:idx_order_leg,unique"`
	Filled     bool
	Filler     string
	FillerData []byte
	FilledAt   int64
}

type gormStore struct {
	db *gorm.DB
}

// NewStore builds a gorm-backed ledger. The dialector decides sqlite or
// postgres, see utils.Dialector.
func NewStore(dialector gorm.Dialector, opts ...gorm.Option) (Store, error) {
	db, err := gorm.Open(dialector, opts...)
	if err != nil {
		return nil, err
	}
	// Duplicate detection relies on driver unique-violation errors surfacing
	// as gorm.ErrDuplicatedKey, so translation is forced on regardless of the
	// caller's config. Under concurrent creates on postgres both transactions
	// can pass the count check and the loser only fails on the unique index.
	db.Config.TranslateError = true
	if err := db.AutoMigrate(&OrderRow{}, &LegRow{}); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	return &gormStore{db: db}, nil
}

func (s *gormStore) CreateOrder(o order.ResolvedOrder, status order.Status) error {
	row, err := toRow(o, status)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&OrderRow{}).Where("order_id = ?", row.OrderID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %v", ErrDuplicateOrder, row.OrderID)
		}

		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %v", ErrDuplicateOrder, row.OrderID)
			}
			return err
		}
		for i := range o.FillInstructions {
			leg := LegRow{OrderID: row.OrderID, LegIndex: i}
			if err := tx.Create(&leg).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *gormStore) Order(id common.Hash) (Record, error) {
	var row OrderRow
	if err := s.db.Where("order_id = ?", id.Hex()).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Record{}, fmt.Errorf("%w: %v", ErrUnknownOrder, id.Hex())
		}
		return Record{}, err
	}

	var legs []LegRow
	if err := s.db.Where("order_id = ?", row.OrderID).Order("leg_index asc").Find(&legs).Error; err != nil {
		return Record{}, err
	}
	return fromRow(row, legs)
}

func (s *gormStore) FillLeg(id common.Hash, legIndex int, filler common.Hash, fillerData []byte, filledAt int64) (order.Status, error) {
	var resulting order.Status

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var row OrderRow
		if err := tx.Where("order_id = ?", id.Hex()).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %v", ErrUnknownOrder, id.Hex())
			}
			return err
		}
		if order.Status(row.Status).Terminal() {
			return fmt.Errorf("%w: %v is %v", ErrTerminalStatus, id.Hex(), order.Status(row.Status))
		}

		res := tx.Model(&LegRow{}).
			Where("order_id = ? AND leg_index = ? AND filled = ?", row.OrderID, legIndex, false).
			Updates(map[string]interface{}{
				"filled":      true,
				"filler":      filler.Hex(),
				"filler_data": fillerData,
				"filled_at":   filledAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: order %v leg %d", ErrLegAlreadyFilled, id.Hex(), legIndex)
		}

		var unfilled int64
		if err := tx.Model(&LegRow{}).Where("order_id = ? AND filled = ?", row.OrderID, false).Count(&unfilled).Error; err != nil {
			return err
		}
		resulting = order.PartiallyFilled
		if unfilled == 0 {
			resulting = order.Filled
		}
		return tx.Model(&OrderRow{}).Where("id = ?", row.ID).Update("status", uint(resulting)).Error
	})
	if err != nil {
		return order.Unknown, err
	}
	return resulting, nil
}

func (s *gormStore) UpdateStatus(id common.Hash, from, to order.Status) error {
	if from.Terminal() && !(from == order.Expired && to == order.Refunded) {
		return fmt.Errorf("%w: cannot leave %v", ErrTerminalStatus, from)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var row OrderRow
		if err := tx.Where("order_id = ?", id.Hex()).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %v", ErrUnknownOrder, id.Hex())
			}
			return err
		}

		res := tx.Model(&OrderRow{}).
			Where("order_id = ? AND status = ?", id.Hex(), uint(from)).
			Update("status", uint(to))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: order %v not in %v", ErrStatusConflict, id.Hex(), from)
		}
		return nil
	})
}

func (s *gormStore) OrdersByStatus(statuses ...order.Status) ([]Record, error) {
	raw := make([]uint, 0, len(statuses))
	for _, st := range statuses {
		raw = append(raw, uint(st))
	}

	var rows []OrderRow
	if err := s.db.Where("status IN ?", raw).Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		var legs []LegRow
		if err := s.db.Where("order_id = ?", row.OrderID).Order("leg_index asc").Find(&legs).Error; err != nil {
			return nil, err
		}
		rec, err := fromRow(row, legs)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func toRow(o order.ResolvedOrder, status order.Status) (OrderRow, error) {
	maxSpent, err := json.Marshal(o.MaxSpent)
	if err != nil {
		return OrderRow{}, err
	}
	minReceived, err := json.Marshal(o.MinReceived)
	if err != nil {
		return OrderRow{}, err
	}
	instructions, err := json.Marshal(o.FillInstructions)
	if err != nil {
		return OrderRow{}, err
	}

	return OrderRow{
		OrderID:       o.ID.Hex(),
		Status:        uint(status),
		User:          o.User.Hex(),
		OriginChainID: o.OriginChainID.String(),
		OpenDeadline:  o.OpenDeadline,
		FillDeadline:  o.FillDeadline,
		MaxSpent:      maxSpent,
		MinReceived:   minReceived,
		Instructions:  instructions,
	}, nil
}

func fromRow(row OrderRow, legs []LegRow) (Record, error) {
	chainID, ok := new(big.Int).SetString(row.OriginChainID, 10)
	if !ok {
		return Record{}, fmt.Errorf("ledger: corrupt chain id %q for order %v", row.OriginChainID, row.OrderID)
	}

	o := order.ResolvedOrder{
		ID:            common.HexToHash(row.OrderID),
		User:          common.HexToAddress(row.User),
		OriginChainID: chainID,
		OpenDeadline:  row.OpenDeadline,
		FillDeadline:  row.FillDeadline,
	}
	if err := json.Unmarshal(row.MaxSpent, &o.MaxSpent); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(row.MinReceived, &o.MinReceived); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(row.Instructions, &o.FillInstructions); err != nil {
		return Record{}, err
	}

	rec := Record{Order: o, Status: order.Status(row.Status), Legs: make([]LegRecord, 0, len(legs))}
	for _, leg := range legs {
		rec.Legs = append(rec.Legs, LegRecord{
			Index:      leg.LegIndex,
			Filled:     leg.Filled,
			Filler:     common.HexToHash(leg.Filler),
			FillerData: leg.FillerData,
			FilledAt:   leg.FilledAt,
		})
	}
	return rec, nil
}
