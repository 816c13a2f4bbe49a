package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iurnickita/dealership/internal/auth"
	"github.com/iurnickita/dealership/internal/gzip"
	"github.com/iurnickita/dealership/internal/handler/config"
	"github.com/iurnickita/dealership/internal/logger"
	"github.com/iurnickita/dealership/internal/model"
	"github.com/iurnickita/dealership/internal/pricing"
	"github.com/iurnickita/dealership/internal/service"
)

// Serve runs the HTTP API until ctx is done, then shuts the server down.
func Serve(ctx context.Context, cfg config.Config, auth auth.Auth, service service.Service, zaplog *zap.Logger) error {
	h := newHandler(auth, service, zaplog)
	router := h.newRouter()

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		zaplog.Info("server started", zap.String("addr", cfg.ServerAddr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	zaplog.Info("server stopping")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type handler struct {
	auth    auth.Auth
	service service.Service
	zaplog  *zap.Logger
}

func newHandler(auth auth.Auth, service service.Service, zaplog *zap.Logger) *handler {
	return &handler{
		auth:    auth,
		service: service,
		zaplog:  zaplog,
	}
}

func (h *handler) wrap(fn http.HandlerFunc) http.HandlerFunc {
	return gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Middleware(fn), h.zaplog))
}

func (h *handler) newRouter() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sales", h.wrap(h.CreateSale))
	mux.HandleFunc("GET /api/sales", h.wrap(h.ListSales))
	mux.HandleFunc("GET /api/sales/{id}", h.wrap(h.GetSale))
	mux.HandleFunc("PATCH /api/sales/{id}", h.wrap(h.UpdateSale))
	mux.HandleFunc("DELETE /api/sales/{id}", h.wrap(h.RemoveSale))
	mux.HandleFunc("POST /api/sales/{id}/payments", h.wrap(h.AddPayment))
	mux.HandleFunc("POST /api/sales/{id}/trade-ins", h.wrap(h.AddTradeIn))
	mux.HandleFunc("POST /api/sales/{id}/reserve", h.wrap(h.ReserveSale))
	mux.HandleFunc("POST /api/sales/{id}/deliver", h.wrap(h.DeliverSale))
	mux.HandleFunc("PATCH /api/payments/{id}", h.wrap(h.ConfirmPayment))
	mux.HandleFunc("POST /api/pricing/preview", h.wrap(h.PreviewPrice))

	return mux
}

// Ответы

type ErrorJSONResponse struct {
	Error     string           `json:"error"`
	Remaining *decimal.Decimal `json:"remaining,omitempty"`
}

type ListSalesJSONResponse struct {
	Sales   []model.Sale       `json:"sales"`
	Summary model.SalesSummary `json:"summary"`
}

func (h *handler) writeJSON(w http.ResponseWriter, code int, v any) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(responseJSON)
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	var code int
	switch {
	case errors.Is(err, service.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(err, service.ErrConflict):
		code = http.StatusConflict
	default:
		code = http.StatusInternalServerError
	}

	resp := ErrorJSONResponse{Error: err.Error()}
	var over *service.OverpaymentError
	if errors.As(err, &over) {
		resp.Remaining = &over.Remaining
	}
	if code == http.StatusInternalServerError {
		resp.Error = http.StatusText(code)
	}
	h.writeJSON(w, code, resp)
}

func (h *handler) badRequest(w http.ResponseWriter, msg string) {
	h.writeJSON(w, http.StatusBadRequest, ErrorJSONResponse{Error: msg})
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.badRequest(w, "malformed request body: "+err.Error())
		return false
	}
	return true
}

func (h *handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(w, "invalid id "+strconv.Quote(r.PathValue("id")))
		return 0, false
	}
	return id, true
}

// Продажи

type CreateSaleJSONRequest struct {
	Type               model.SaleType      `json:"type"`
	ClientID           int64               `json:"client_id"`
	VehicleID          int64               `json:"vehicle_id"`
	UserID             int64               `json:"user_id"`
	QuoteID            *int64              `json:"quote_id"`
	BasePrice          decimal.NullDecimal `json:"base_price"`
	SaleDate           *time.Time          `json:"sale_date"`
	Discount           decimal.NullDecimal `json:"discount"`
	TransferPercentage decimal.NullDecimal `json:"transfer_percentage"`
	AdminExpenses      decimal.NullDecimal `json:"admin_expenses"`
	TradeInVehicleID   *int64              `json:"trade_in_vehicle_id"`
}

func (h *handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleJSONRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.UserID == 0 {
		req.UserID, _ = auth.UserID(r.Context())
	}
	if req.ClientID <= 0 || req.VehicleID <= 0 || req.UserID <= 0 {
		h.badRequest(w, "client_id, vehicle_id and user_id are required")
		return
	}

	sale, err := h.service.CreateSale(r.Context(), service.CreateSale{
		Type:               req.Type,
		ClientID:           req.ClientID,
		VehicleID:          req.VehicleID,
		UserID:             req.UserID,
		QuoteID:            req.QuoteID,
		BasePrice:          req.BasePrice,
		SaleDate:           req.SaleDate,
		Discount:           req.Discount,
		TransferPercentage: req.TransferPercentage,
		AdminExpenses:      req.AdminExpenses,
		TradeInVehicleID:   req.TradeInVehicleID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, sale)
}

func (h *handler) ListSales(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := model.SaleFilter{
		Status: model.SaleStatus(query.Get("status")),
		Type:   model.SaleType(query.Get("type")),
	}
	if s := query.Get("client_id"); s != "" {
		clientID, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			h.badRequest(w, "invalid client_id "+strconv.Quote(s))
			return
		}
		filter.ClientID = clientID
	}

	sales, summary, err := h.service.ListSales(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ListSalesJSONResponse{Sales: sales, Summary: summary})
}

func (h *handler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sale)
}

type UpdateSaleJSONRequest struct {
	BasePrice decimal.NullDecimal `json:"base_price"`
	SaleDate  *time.Time          `json:"sale_date"`
}

func (h *handler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req UpdateSaleJSONRequest
	if !h.decode(w, r, &req) {
		return
	}
	sale, err := h.service.UpdateSale(r.Context(), id, service.UpdateSale{
		BasePrice: req.BasePrice,
		SaleDate:  req.SaleDate,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sale)
}

func (h *handler) RemoveSale(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.RemoveSale(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) ReserveSale(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	sale, err := h.service.ReserveSale(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sale)
}

func (h *handler) DeliverSale(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	sale, err := h.service.DeliverSale(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sale)
}

// Платежи и зачеты

type AddPaymentJSONRequest struct {
	Amount    decimal.Decimal     `json:"amount"`
	Method    model.PaymentMethod `json:"method"`
	Notes     string              `json:"notes"`
	Reference string              `json:"reference"`
}

func (h *handler) AddPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req AddPaymentJSONRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.AddPayment(r.Context(), id, service.NewPayment{
		Amount:    req.Amount,
		Method:    req.Method,
		Notes:     req.Notes,
		Reference: req.Reference,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, result)
}

type ConfirmPaymentJSONRequest struct {
	Status model.PaymentStatus `json:"status"`
}

func (h *handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req ConfirmPaymentJSONRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.ConfirmPayment(r.Context(), id, req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

type AddTradeInJSONRequest struct {
	VehicleID    int64           `json:"vehicle_id"`
	TradeInValue decimal.Decimal `json:"trade_in_value"`
}

func (h *handler) AddTradeIn(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req AddTradeInJSONRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.AddTradeIn(r.Context(), id, service.NewTradeIn{
		VehicleID:    req.VehicleID,
		TradeInValue: req.TradeInValue,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, result)
}

func (h *handler) PreviewPrice(w http.ResponseWriter, r *http.Request) {
	var in pricing.Input
	if !h.decode(w, r, &in) {
		return
	}
	breakdown, err := h.service.PreviewPrice(in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, breakdown)
}
