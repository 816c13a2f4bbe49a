package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iurnickita/dealership/internal/balance"
	"github.com/iurnickita/dealership/internal/model"
	"github.com/iurnickita/dealership/internal/store"
)

// Платежи

// AddPayment registers a pending payment. It must fit into the remaining balance.
func (service *service) AddPayment(ctx context.Context, saleID int64, req NewPayment) (PaymentResult, error) {
	var result PaymentResult
	err := service.inTx(ctx, func(tx store.Tx) error {
		sale, err := loadSale(ctx, tx, saleID, true)
		if err != nil {
			return err
		}
		if sale.Status == model.SaleStatusDelivered {
			return conflict("sale %d is delivered", sale.ID)
		}
		if !req.Amount.IsPositive() {
			return invalid("sale %d: payment amount must be greater than zero", sale.ID)
		}
		if !req.Method.Valid() {
			return invalid("sale %d: unknown payment method %q", sale.ID, req.Method)
		}
		reference, err := normalizeReference(sale.ID, req.Method, req.Reference)
		if err != nil {
			return err
		}
		if sale.TotalPaid.Add(req.Amount).GreaterThan(sale.FinalPrice) {
			return &OverpaymentError{SaleID: sale.ID, Remaining: balance.Remaining(sale), Kind: ErrInvalidInput}
		}

		payment := model.Payment{
			SaleID:    sale.ID,
			Amount:    req.Amount,
			Method:    req.Method,
			Status:    model.PaymentStatusPending,
			Notes:     strings.TrimSpace(req.Notes),
			Reference: reference,
		}
		if err := tx.PaymentInsert(ctx, &payment); err != nil {
			return err
		}

		if err := resolve(ctx, tx, &sale); err != nil {
			return err
		}
		result.Payment = payment
		result.Sale, err = loadSale(ctx, tx, sale.ID, false)
		return err
	})
	if err != nil {
		return PaymentResult{}, service.fail("add payment", saleID, err)
	}

	service.zaplog.Info("payment registered",
		zap.Int64("sale", saleID),
		zap.Int64("payment", result.Payment.ID),
		zap.String("amount", result.Payment.Amount.String()),
		zap.String("method", string(result.Payment.Method)))
	return result, nil
}

// ConfirmPayment moves a payment to CONFIRMED or REJECTED and keeps TotalPaid equal
// to the confirmed amounts plus credited trade-ins.
func (service *service) ConfirmPayment(ctx context.Context, paymentID int64, status model.PaymentStatus) (PaymentResult, error) {
	var (
		result PaymentResult
		saleID int64
	)
	err := service.inTx(ctx, func(tx store.Tx) error {
		payment, err := tx.PaymentGet(ctx, paymentID, false)
		if err != nil {
			if errors.Is(err, store.ErrNoRows) {
				return notFound("payment %d", paymentID)
			}
			return err
		}
		saleID = payment.SaleID
		if status != model.PaymentStatusConfirmed && status != model.PaymentStatusRejected {
			return invalid("payment %d: status %q cannot be set", payment.ID, status)
		}

		// sale first, then the payment
		sale, err := loadSale(ctx, tx, payment.SaleID, true)
		if err != nil {
			return err
		}
		payment, err = tx.PaymentGet(ctx, paymentID, true)
		if err != nil {
			if errors.Is(err, store.ErrNoRows) {
				return notFound("payment %d", paymentID)
			}
			return err
		}
		if sale.Status == model.SaleStatusDelivered {
			return conflict("sale %d is delivered", sale.ID)
		}

		previous := payment.Status
		switch {
		case status == previous:
		case status == model.PaymentStatusConfirmed:
			total := sale.TotalPaid.Add(payment.Amount)
			if total.GreaterThan(sale.FinalPrice) {
				return &OverpaymentError{SaleID: sale.ID, Remaining: balance.Remaining(sale), Kind: ErrConflict}
			}
			now := service.now()
			payment.PaidAt = &now
			sale.TotalPaid = total
		default:
			if previous == model.PaymentStatusConfirmed {
				sale.TotalPaid = sale.TotalPaid.Sub(payment.Amount)
			}
			payment.PaidAt = nil
		}
		payment.Status = status

		if status != previous {
			if err := tx.PaymentUpdate(ctx, &payment); err != nil {
				return err
			}
			if err := resolve(ctx, tx, &sale); err != nil {
				return err
			}
		}
		result.Payment = payment
		result.Sale, err = loadSale(ctx, tx, sale.ID, false)
		return err
	})
	if err != nil {
		return PaymentResult{}, service.fail("confirm payment", saleID, err)
	}

	service.zaplog.Info("payment status set",
		zap.Int64("sale", result.Sale.ID),
		zap.Int64("payment", result.Payment.ID),
		zap.String("status", string(result.Payment.Status)),
		zap.String("total_paid", result.Sale.TotalPaid.String()))
	return result, nil
}

// Зачет автомобиля клиента

// AddTradeIn takes a client vehicle as part of the price. Its value reduces the final
// price and may not exceed what is still owed.
func (service *service) AddTradeIn(ctx context.Context, saleID int64, req NewTradeIn) (TradeInResult, error) {
	var result TradeInResult
	err := service.inTx(ctx, func(tx store.Tx) error {
		sale, err := loadSale(ctx, tx, saleID, true)
		if err != nil {
			return err
		}
		if sale.Status == model.SaleStatusDelivered {
			return conflict("sale %d is delivered", sale.ID)
		}
		if req.TradeInValue.IsNegative() {
			return invalid("sale %d: trade-in value must not be negative", sale.ID)
		}
		if req.VehicleID == sale.VehicleID {
			return invalid("sale %d: vehicle %d is the subject of the sale", sale.ID, req.VehicleID)
		}

		vehicle, err := loadVehicle(ctx, tx, req.VehicleID, true)
		if err != nil {
			return err
		}
		if err := checkTradeIn(ctx, tx, sale.ID, vehicle); err != nil {
			return err
		}
		if req.TradeInValue.GreaterThan(sale.FinalPrice) {
			return invalid("sale %d: trade-in value %s exceeds final price %s", sale.ID, req.TradeInValue, sale.FinalPrice)
		}
		if rem := balance.Remaining(sale); req.TradeInValue.GreaterThan(rem) {
			return &OverpaymentError{SaleID: sale.ID, Remaining: rem, Kind: ErrInvalidInput}
		}

		tradeIn := model.TradeIn{
			SaleID:       sale.ID,
			VehicleID:    vehicle.ID,
			TradeInValue: req.TradeInValue,
		}
		if err := tx.TradeInInsert(ctx, &tradeIn); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return conflict("vehicle %d is already traded in on sale %d", vehicle.ID, sale.ID)
			}
			return err
		}
		if err := setVehicleStatus(ctx, tx, vehicle.ID, model.VehicleStatusInspection); err != nil {
			return err
		}

		sale.FinalPrice = decimal.Max(decimal.Zero, sale.FinalPrice.Sub(req.TradeInValue))
		if err := resolve(ctx, tx, &sale); err != nil {
			return err
		}
		result.TradeIn = tradeIn
		result.Sale, err = loadSale(ctx, tx, sale.ID, false)
		return err
	})
	if err != nil {
		return TradeInResult{}, service.fail("add trade-in", saleID, err)
	}

	service.zaplog.Info("trade-in registered",
		zap.Int64("sale", saleID),
		zap.Int64("vehicle", result.TradeIn.VehicleID),
		zap.String("value", result.TradeIn.TradeInValue.String()),
		zap.String("final_price", result.Sale.FinalPrice.String()))
	return result, nil
}
