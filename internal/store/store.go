package store

import (
	"context"
	"errors"

	"github.com/iurnickita/dealership/internal/model"
	"github.com/iurnickita/dealership/internal/store/config"
)

// Store opens units of work over the sale ledger and the inventory rows it touches.
type Store interface {
	// WithinTx runs fn in one transaction. Any error returned by fn, a panic or a
	// cancelled ctx rolls back every write made through tx.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Tx is the view of the store inside a unit of work. Methods with a lock flag take a
// row lock that is held until the unit of work ends.
type Tx interface {
	SaleGet(ctx context.Context, id int64, lock bool) (model.Sale, error)
	SaleList(ctx context.Context, filter model.SaleFilter) ([]model.Sale, error)
	SaleInsert(ctx context.Context, sale *model.Sale) error
	SaleUpdate(ctx context.Context, sale *model.Sale) error
	SaleDelete(ctx context.Context, id int64) error
	// SaleActiveByVehicle returns the ids of non-delivered sales whose subject is vehicleID.
	SaleActiveByVehicle(ctx context.Context, vehicleID int64) ([]int64, error)

	PaymentGet(ctx context.Context, id int64, lock bool) (model.Payment, error)
	PaymentList(ctx context.Context, saleID int64) ([]model.Payment, error)
	PaymentInsert(ctx context.Context, payment *model.Payment) error
	PaymentUpdate(ctx context.Context, payment *model.Payment) error

	TradeInList(ctx context.Context, saleID int64) ([]model.TradeIn, error)
	TradeInInsert(ctx context.Context, tradeIn *model.TradeIn) error
	// TradeInActiveSales returns the ids of non-delivered sales holding vehicleID as a trade-in.
	TradeInActiveSales(ctx context.Context, vehicleID int64) ([]int64, error)

	VehicleGet(ctx context.Context, id int64, lock bool) (model.Vehicle, error)
	VehicleSetStatus(ctx context.Context, id int64, status model.VehicleStatus) error

	ClientExists(ctx context.Context, id int64) (bool, error)
	UserExists(ctx context.Context, id int64) (bool, error)
	QuoteExists(ctx context.Context, id int64) (bool, error)
}

var (
	ErrNoRows        = errors.New("no rows")
	ErrAlreadyExists = errors.New("already exists")
	ErrReference     = errors.New("referenced row does not exist")
)

// NewStore connects to PostgreSQL, or keeps everything in memory when no DSN is configured.
func NewStore(cfg config.Config) (Store, error) {
	if cfg.DBDsn == "" {
		return NewMemStore(), nil
	}
	return NewPgStore(cfg)
}
