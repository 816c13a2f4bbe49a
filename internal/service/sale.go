package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iurnickita/dealership/internal/balance"
	"github.com/iurnickita/dealership/internal/model"
	"github.com/iurnickita/dealership/internal/pricing"
	"github.com/iurnickita/dealership/internal/store"
)

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if d.Valid {
		return d.Decimal
	}
	return decimal.Zero
}

// resolve recomputes the status from the current ledger and persists the sale.
func resolve(ctx context.Context, tx store.Tx, sale *model.Sale) error {
	var err error
	if sale.Payments, err = tx.PaymentList(ctx, sale.ID); err != nil {
		return err
	}
	if sale.TradeIns, err = tx.TradeInList(ctx, sale.ID); err != nil {
		return err
	}
	sale.Status = balance.ResolveStatus(*sale)
	return tx.SaleUpdate(ctx, sale)
}

func setVehicleStatus(ctx context.Context, tx store.Tx, id int64, status model.VehicleStatus) error {
	err := tx.VehicleSetStatus(ctx, id, status)
	if errors.Is(err, store.ErrNoRows) {
		return notFound("vehicle %d", id)
	}
	return err
}

func (service *service) CreateSale(ctx context.Context, req CreateSale) (model.Sale, error) {
	const op = "create sale"

	if req.Type == "" {
		req.Type = model.SaleTypeSale
	}
	if !req.Type.Valid() {
		return model.Sale{}, invalid("unknown sale type %q", req.Type)
	}
	if req.TradeInVehicleID != nil && *req.TradeInVehicleID == req.VehicleID {
		return model.Sale{}, invalid("vehicle %d cannot be traded in for itself", req.VehicleID)
	}
	if service.directory != nil {
		if err := checkParties(ctx, service.directory, req); err != nil {
			return model.Sale{}, service.fail(op, 0, err)
		}
	}

	var created model.Sale
	err := service.inTx(ctx, func(tx store.Tx) error {
		if service.directory == nil {
			if err := checkParties(ctx, tx, req); err != nil {
				return err
			}
		}

		// vehicles are locked in ascending id order
		ids := []int64{req.VehicleID}
		if req.TradeInVehicleID != nil {
			ids = append(ids, *req.TradeInVehicleID)
			if ids[1] < ids[0] {
				ids[0], ids[1] = ids[1], ids[0]
			}
		}
		vehicles := make(map[int64]model.Vehicle, len(ids))
		for _, id := range ids {
			vehicle, err := loadVehicle(ctx, tx, id, true)
			if err != nil {
				return err
			}
			vehicles[id] = vehicle
		}

		vehicle := vehicles[req.VehicleID]
		if vehicle.Status != model.VehicleStatusAvailable {
			return conflict("vehicle %d is %s", vehicle.ID, vehicle.Status)
		}

		base := orZero(req.BasePrice)
		if !base.IsPositive() {
			base = vehicle.Price
		}
		price, err := pricing.ComputeFinalPrice(pricing.Input{
			BasePrice:          base,
			Discount:           orZero(req.Discount),
			TransferPercentage: orZero(req.TransferPercentage),
			AdminExpenses:      orZero(req.AdminExpenses),
		})
		if err != nil {
			return invalid("vehicle %d: %v", vehicle.ID, err)
		}

		sale := model.Sale{
			Type:               req.Type,
			Status:             model.SaleStatusDraft,
			ClientID:           req.ClientID,
			VehicleID:          req.VehicleID,
			UserID:             req.UserID,
			QuoteID:            req.QuoteID,
			BasePrice:          price.BasePrice,
			Discount:           price.Discount,
			TransferPercentage: price.TransferPercentage,
			TransferAmount:     price.TransferAmount,
			AdminExpenses:      price.AdminExpenses,
			FinalPrice:         price.FinalPrice,
			TotalPaid:          decimal.Zero,
			SaleDate:           service.now(),
		}
		if req.SaleDate != nil {
			sale.SaleDate = *req.SaleDate
		}

		var tradeIn *model.TradeIn
		if req.TradeInVehicleID != nil {
			traded := vehicles[*req.TradeInVehicleID]
			if err := checkTradeIn(ctx, tx, 0, traded); err != nil {
				return err
			}
			if traded.Price.GreaterThan(sale.FinalPrice) {
				return invalid("trade-in value %s of vehicle %d exceeds final price %s", traded.Price, traded.ID, sale.FinalPrice)
			}
			sale.TotalPaid = traded.Price
			tradeIn = &model.TradeIn{
				VehicleID:    traded.ID,
				TradeInValue: traded.Price,
				Credited:     true,
			}
		}

		if err := tx.SaleInsert(ctx, &sale); err != nil {
			if errors.Is(err, store.ErrReference) {
				return notFound("sale references: %v", err)
			}
			return err
		}
		if tradeIn != nil {
			tradeIn.SaleID = sale.ID
			if err := tx.TradeInInsert(ctx, tradeIn); err != nil {
				if errors.Is(err, store.ErrAlreadyExists) {
					return conflict("vehicle %d is already traded in on sale %d", tradeIn.VehicleID, sale.ID)
				}
				return err
			}
			if err := setVehicleStatus(ctx, tx, tradeIn.VehicleID, model.VehicleStatusInspection); err != nil {
				return err
			}
		}
		if err := setVehicleStatus(ctx, tx, sale.VehicleID, model.VehicleStatusReserved); err != nil {
			return err
		}

		created, err = loadSale(ctx, tx, sale.ID, false)
		return err
	})
	if err != nil {
		return model.Sale{}, service.fail(op, created.ID, err)
	}

	service.zaplog.Info("sale created",
		zap.Int64("sale", created.ID),
		zap.Int64("vehicle", created.VehicleID),
		zap.String("type", string(created.Type)),
		zap.String("final_price", created.FinalPrice.String()))
	return created, nil
}

func (service *service) GetSale(ctx context.Context, id int64) (model.Sale, error) {
	var sale model.Sale
	err := service.inTx(ctx, func(tx store.Tx) error {
		var err error
		sale, err = loadSale(ctx, tx, id, false)
		return err
	})
	if err != nil {
		return model.Sale{}, service.fail("get sale", id, err)
	}
	return sale, nil
}

func (service *service) ListSales(ctx context.Context, filter model.SaleFilter) ([]model.Sale, model.SalesSummary, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, model.SalesSummary{}, invalid("unknown sale status %q", filter.Status)
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, model.SalesSummary{}, invalid("unknown sale type %q", filter.Type)
	}

	var sales []model.Sale
	err := service.inTx(ctx, func(tx store.Tx) error {
		list, err := tx.SaleList(ctx, filter)
		if err != nil {
			return err
		}
		sales = make([]model.Sale, 0, len(list))
		for _, sale := range list {
			sale, err = withRelations(ctx, tx, sale)
			if err != nil {
				return err
			}
			sales = append(sales, sale)
		}
		return nil
	})
	if err != nil {
		return nil, model.SalesSummary{}, service.fail("list sales", 0, err)
	}
	return sales, model.Summarize(sales), nil
}

// UpdateSale edits a draft. A new base price replaces the final price as is.
func (service *service) UpdateSale(ctx context.Context, id int64, req UpdateSale) (model.Sale, error) {
	var updated model.Sale
	err := service.inTx(ctx, func(tx store.Tx) error {
		sale, err := loadSale(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if sale.Status != model.SaleStatusDraft {
			return conflict("sale %d is %s", sale.ID, sale.Status)
		}

		if req.BasePrice.Valid {
			base := req.BasePrice.Decimal
			if !base.IsPositive() {
				return invalid("sale %d: base price must be greater than zero", sale.ID)
			}
			if base.LessThan(sale.TotalPaid) {
				return invalid("sale %d: base price %s is below total paid %s", sale.ID, base, sale.TotalPaid)
			}
			// TODO: reapply discount, transfer fee and admin expenses once pricing of edited drafts is agreed on
			sale.BasePrice = base
			sale.FinalPrice = base
		}
		if req.SaleDate != nil {
			sale.SaleDate = *req.SaleDate
		}

		if err := resolve(ctx, tx, &sale); err != nil {
			return err
		}
		updated, err = loadSale(ctx, tx, sale.ID, false)
		return err
	})
	if err != nil {
		return model.Sale{}, service.fail("update sale", id, err)
	}

	service.zaplog.Info("sale updated",
		zap.Int64("sale", updated.ID),
		zap.String("final_price", updated.FinalPrice.String()))
	return updated, nil
}

func (service *service) RemoveSale(ctx context.Context, id int64) error {
	err := service.inTx(ctx, func(tx store.Tx) error {
		sale, err := loadSale(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if sale.Status != model.SaleStatusDraft {
			return conflict("sale %d is %s", sale.ID, sale.Status)
		}

		vehicle, err := tx.VehicleGet(ctx, sale.VehicleID, true)
		switch {
		case errors.Is(err, store.ErrNoRows):
		case err != nil:
			return err
		case vehicle.Status == model.VehicleStatusReserved:
			if err := setVehicleStatus(ctx, tx, vehicle.ID, model.VehicleStatusAvailable); err != nil {
				return err
			}
		}

		if err := tx.SaleDelete(ctx, sale.ID); err != nil {
			if errors.Is(err, store.ErrNoRows) {
				return notFound("sale %d", sale.ID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return service.fail("remove sale", id, err)
	}

	service.zaplog.Info("sale removed", zap.Int64("sale", id))
	return nil
}

func (service *service) ReserveSale(ctx context.Context, id int64) (model.Sale, error) {
	var reserved model.Sale
	err := service.inTx(ctx, func(tx store.Tx) error {
		sale, err := loadSale(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if sale.Status != model.SaleStatusDraft {
			return conflict("sale %d is %s", sale.ID, sale.Status)
		}

		if sale.Type == model.SaleTypeSale {
			if _, err := loadVehicle(ctx, tx, sale.VehicleID, true); err != nil {
				return err
			}
			if err := setVehicleStatus(ctx, tx, sale.VehicleID, model.VehicleStatusReserved); err != nil {
				return err
			}
		}
		now := service.now()
		sale.ReservedAt = &now
		// a draft already settled in full resolves to SOLD

		if err := resolve(ctx, tx, &sale); err != nil {
			return err
		}
		reserved, err = loadSale(ctx, tx, sale.ID, false)
		return err
	})
	if err != nil {
		return model.Sale{}, service.fail("reserve sale", id, err)
	}

	service.zaplog.Info("sale reserved", zap.Int64("sale", reserved.ID))
	return reserved, nil
}

// DeliverSale hands the vehicle over. The sale must be settled in full.
func (service *service) DeliverSale(ctx context.Context, id int64) (model.Sale, error) {
	var delivered model.Sale
	err := service.inTx(ctx, func(tx store.Tx) error {
		sale, err := loadSale(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if sale.Status == model.SaleStatusDelivered {
			return conflict("sale %d is already delivered", sale.ID)
		}
		if !balance.FullyPaid(sale) {
			return conflict("sale %d is not fully paid: settled %s of %s",
				sale.ID, balance.Settled(sale), sale.FinalPrice)
		}

		if _, err := loadVehicle(ctx, tx, sale.VehicleID, true); err != nil {
			return err
		}
		status := model.VehicleStatusSold
		if sale.Type == model.SaleTypePurchase {
			status = model.VehicleStatusAvailable
		}
		if err := setVehicleStatus(ctx, tx, sale.VehicleID, status); err != nil {
			return err
		}

		sale.Status = model.SaleStatusDelivered
		if err := tx.SaleUpdate(ctx, &sale); err != nil {
			return err
		}
		delivered, err = loadSale(ctx, tx, sale.ID, false)
		return err
	})
	if err != nil {
		return model.Sale{}, service.fail("deliver sale", id, err)
	}

	service.zaplog.Info("sale delivered",
		zap.Int64("sale", delivered.ID),
		zap.Int64("vehicle", delivered.VehicleID))
	return delivered, nil
}
