package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iurnickita/dealership/internal/model"
	"github.com/iurnickita/dealership/internal/pricing"
	"github.com/iurnickita/dealership/internal/service/config"
	"github.com/iurnickita/dealership/internal/service/directoryclient"
	"github.com/iurnickita/dealership/internal/store"
)

// Service is the sale transaction engine. Every mutating operation runs as one unit of
// work and leaves the sale status as computed by balance.ResolveStatus.
type Service interface {
	CreateSale(ctx context.Context, req CreateSale) (model.Sale, error)
	GetSale(ctx context.Context, id int64) (model.Sale, error)
	ListSales(ctx context.Context, filter model.SaleFilter) ([]model.Sale, model.SalesSummary, error)
	UpdateSale(ctx context.Context, id int64, req UpdateSale) (model.Sale, error)
	RemoveSale(ctx context.Context, id int64) error
	ReserveSale(ctx context.Context, id int64) (model.Sale, error)
	DeliverSale(ctx context.Context, id int64) (model.Sale, error)
	AddPayment(ctx context.Context, saleID int64, req NewPayment) (PaymentResult, error)
	ConfirmPayment(ctx context.Context, paymentID int64, status model.PaymentStatus) (PaymentResult, error)
	AddTradeIn(ctx context.Context, saleID int64, req NewTradeIn) (TradeInResult, error)
	PreviewPrice(in pricing.Input) (pricing.Breakdown, error)
}

// Directory answers whether the parties referenced by a sale exist.
type Directory interface {
	ClientExists(ctx context.Context, id int64) (bool, error)
	UserExists(ctx context.Context, id int64) (bool, error)
	QuoteExists(ctx context.Context, id int64) (bool, error)
}

// Запросы

// CreateSale describes a new sale. Absent optional amounts are nil.
type CreateSale struct {
	Type               model.SaleType
	ClientID           int64
	VehicleID          int64
	UserID             int64
	QuoteID            *int64
	BasePrice          decimal.NullDecimal
	SaleDate           *time.Time
	Discount           decimal.NullDecimal
	TransferPercentage decimal.NullDecimal
	AdminExpenses      decimal.NullDecimal
	TradeInVehicleID   *int64
}

type UpdateSale struct {
	BasePrice decimal.NullDecimal
	SaleDate  *time.Time
}

type NewPayment struct {
	Amount    decimal.Decimal
	Method    model.PaymentMethod
	Notes     string
	Reference string
}

type NewTradeIn struct {
	VehicleID    int64
	TradeInValue decimal.Decimal
}

// Ответы

type PaymentResult struct {
	Payment model.Payment `json:"payment"`
	Sale    model.Sale    `json:"sale"`
}

type TradeInResult struct {
	TradeIn model.TradeIn `json:"trade_in"`
	Sale    model.Sale    `json:"sale"`
}

type service struct {
	cfg       config.Config
	store     store.Store
	directory Directory
	zaplog    *zap.Logger
	now       func() time.Time
}

type Option func(*service)

// WithDirectory replaces the party lookups. By default they are answered by the
// store inside the unit of work, or by the remote directory when one is configured.
func WithDirectory(directory Directory) Option {
	return func(s *service) {
		s.directory = directory
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

func NewService(cfg config.Config, store store.Store, zaplog *zap.Logger, opts ...Option) (Service, error) {
	if store == nil {
		return nil, errors.New("service: store is required")
	}
	if zaplog == nil {
		zaplog = zap.NewNop()
	}

	service := &service{
		cfg:    cfg,
		store:  store,
		zaplog: zaplog,
		now:    time.Now,
	}
	if cfg.DirectoryAddr != "" {
		service.directory = directoryclient.NewDirectoryClient(cfg.DirectoryAddr)
	}
	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

func (service *service) PreviewPrice(in pricing.Input) (pricing.Breakdown, error) {
	breakdown, err := pricing.ComputeFinalPrice(in)
	if err != nil {
		return pricing.Breakdown{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return breakdown, nil
}

// inTx runs fn as one unit of work bounded by the operation timeout.
func (service *service) inTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if service.cfg.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, service.cfg.OperationTimeout)
		defer cancel()
	}
	return service.store.WithinTx(ctx, fn)
}

// fail passes domain errors through and wraps everything else with the operation.
func (service *service) fail(op string, saleID int64, err error) error {
	if isDomain(err) {
		service.zaplog.Debug("sale operation rejected",
			zap.String("op", op),
			zap.Int64("sale", saleID),
			zap.Error(err))
		return err
	}
	service.zaplog.Error("sale operation failed",
		zap.String("op", op),
		zap.Int64("sale", saleID),
		zap.Error(err))
	return fmt.Errorf("%s: sale %d: %w", op, saleID, err)
}

// loadSale reads the sale with its payments, trade-ins and primary vehicle.
// The vehicle row is never locked here; callers that change it lock it themselves.
func loadSale(ctx context.Context, tx store.Tx, id int64, lock bool) (model.Sale, error) {
	sale, err := tx.SaleGet(ctx, id, lock)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return model.Sale{}, notFound("sale %d", id)
		}
		return model.Sale{}, err
	}
	return withRelations(ctx, tx, sale)
}

func withRelations(ctx context.Context, tx store.Tx, sale model.Sale) (model.Sale, error) {
	var err error
	if sale.Payments, err = tx.PaymentList(ctx, sale.ID); err != nil {
		return model.Sale{}, err
	}
	if sale.TradeIns, err = tx.TradeInList(ctx, sale.ID); err != nil {
		return model.Sale{}, err
	}
	vehicle, err := tx.VehicleGet(ctx, sale.VehicleID, false)
	switch {
	case err == nil:
		sale.Vehicle = &vehicle
	case !errors.Is(err, store.ErrNoRows):
		return model.Sale{}, err
	}
	return sale, nil
}

func loadVehicle(ctx context.Context, tx store.Tx, id int64, lock bool) (model.Vehicle, error) {
	vehicle, err := tx.VehicleGet(ctx, id, lock)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return model.Vehicle{}, notFound("vehicle %d", id)
		}
		return model.Vehicle{}, err
	}
	return vehicle, nil
}

// checkTradeIn makes sure vehicle can be taken in on saleID (zero for a sale not yet
// stored): it may not be reserved, be the subject of an active sale or be traded in
// on another active sale.
func checkTradeIn(ctx context.Context, tx store.Tx, saleID int64, vehicle model.Vehicle) error {
	if vehicle.Status == model.VehicleStatusReserved {
		return conflict("vehicle %d is reserved", vehicle.ID)
	}

	sales, err := tx.SaleActiveByVehicle(ctx, vehicle.ID)
	if err != nil {
		return err
	}
	if len(sales) > 0 {
		return conflict("vehicle %d is the subject of sale %d", vehicle.ID, sales[0])
	}

	active, err := tx.TradeInActiveSales(ctx, vehicle.ID)
	if err != nil {
		return err
	}
	for _, id := range active {
		if id == saleID {
			return conflict("vehicle %d is already traded in on sale %d", vehicle.ID, saleID)
		}
	}
	if len(active) > 0 {
		return conflict("vehicle %d is already traded in on sale %d", vehicle.ID, active[0])
	}
	return nil
}

// checkParties verifies client, user and quote references against dir.
func checkParties(ctx context.Context, dir Directory, req CreateSale) error {
	ok, err := dir.ClientExists(ctx, req.ClientID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("client %d", req.ClientID)
	}

	ok, err = dir.UserExists(ctx, req.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("user %d", req.UserID)
	}

	if req.QuoteID != nil {
		ok, err = dir.QuoteExists(ctx, *req.QuoteID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("quote %d", *req.QuoteID)
		}
	}
	return nil
}
