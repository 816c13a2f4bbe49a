package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iurnickita/dealership/internal/model"
)

// MemStore keeps the ledger in process memory. Units of work are serialised and
// run against a copy of the state that replaces it only on success.
type MemStore struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	lastSale    int64
	lastPayment int64
	lastTradeIn int64

	sales    map[int64]model.Sale
	payments map[int64]model.Payment
	tradeIns map[int64]model.TradeIn
	vehicles map[int64]model.Vehicle

	clients map[int64]struct{}
	users   map[int64]struct{}
	quotes  map[int64]struct{}
}

func newMemState() *memState {
	return &memState{
		sales:    make(map[int64]model.Sale),
		payments: make(map[int64]model.Payment),
		tradeIns: make(map[int64]model.TradeIn),
		vehicles: make(map[int64]model.Vehicle),
		clients:  make(map[int64]struct{}),
		users:    make(map[int64]struct{}),
		quotes:   make(map[int64]struct{}),
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (st *memState) clone() *memState {
	return &memState{
		lastSale:    st.lastSale,
		lastPayment: st.lastPayment,
		lastTradeIn: st.lastTradeIn,
		sales:       copyMap(st.sales),
		payments:    copyMap(st.payments),
		tradeIns:    copyMap(st.tradeIns),
		vehicles:    copyMap(st.vehicles),
		clients:     copyMap(st.clients),
		users:       copyMap(st.users),
		quotes:      copyMap(st.quotes),
	}
}

func NewMemStore() *MemStore {
	return &MemStore{state: newMemState()}
}

func (store *MemStore) Close() error {
	return nil
}

func (store *MemStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := store.state.clone()
	if err := fn(&memTx{state: work}); err != nil {
		return err
	}
	// a unit of work that outlived its context is not committed
	if err := ctx.Err(); err != nil {
		return err
	}
	store.state = work
	return nil
}

// Наполнение справочников (данные внешних CRUD-сервисов)

func (store *MemStore) PutVehicle(vehicle model.Vehicle) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.state.vehicles[vehicle.ID] = vehicle
}

func (store *MemStore) PutClient(id int64) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.state.clients[id] = struct{}{}
}

func (store *MemStore) PutUser(id int64) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.state.users[id] = struct{}{}
}

func (store *MemStore) PutQuote(id int64) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.state.quotes[id] = struct{}{}
}

type memTx struct {
	state *memState
}

// stripped keeps relations out of the stored row.
func stripped(sale model.Sale) model.Sale {
	sale.Vehicle = nil
	sale.Payments = nil
	sale.TradeIns = nil
	return sale
}

func (t *memTx) SaleGet(_ context.Context, id int64, _ bool) (model.Sale, error) {
	sale, ok := t.state.sales[id]
	if !ok {
		return model.Sale{}, ErrNoRows
	}
	return sale, nil
}

func (t *memTx) SaleList(_ context.Context, filter model.SaleFilter) ([]model.Sale, error) {
	var sales []model.Sale
	for _, sale := range t.state.sales {
		if filter.Match(sale) {
			sales = append(sales, sale)
		}
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].ID > sales[j].ID })
	return sales, nil
}

func (t *memTx) SaleInsert(_ context.Context, sale *model.Sale) error {
	if _, ok := t.state.vehicles[sale.VehicleID]; !ok {
		return ErrReference
	}

	t.state.lastSale++
	now := time.Now()
	sale.ID = t.state.lastSale
	sale.CreatedAt = now
	sale.UpdatedAt = now
	t.state.sales[sale.ID] = stripped(*sale)
	return nil
}

func (t *memTx) SaleUpdate(_ context.Context, sale *model.Sale) error {
	stored, ok := t.state.sales[sale.ID]
	if !ok {
		return ErrNoRows
	}
	sale.UpdatedAt = time.Now()

	// type, parties and creation time are immutable
	updated := stripped(*sale)
	updated.Type = stored.Type
	updated.ClientID = stored.ClientID
	updated.VehicleID = stored.VehicleID
	updated.UserID = stored.UserID
	updated.QuoteID = stored.QuoteID
	updated.CreatedAt = stored.CreatedAt
	t.state.sales[sale.ID] = updated
	return nil
}

func (t *memTx) SaleDelete(_ context.Context, id int64) error {
	if _, ok := t.state.sales[id]; !ok {
		return ErrNoRows
	}
	delete(t.state.sales, id)
	for pid, p := range t.state.payments {
		if p.SaleID == id {
			delete(t.state.payments, pid)
		}
	}
	for tid, ti := range t.state.tradeIns {
		if ti.SaleID == id {
			delete(t.state.tradeIns, tid)
		}
	}
	return nil
}

func (t *memTx) SaleActiveByVehicle(_ context.Context, vehicleID int64) ([]int64, error) {
	var ids []int64
	for _, sale := range t.state.sales {
		if sale.VehicleID == vehicleID && sale.Status != model.SaleStatusDelivered {
			ids = append(ids, sale.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (t *memTx) PaymentGet(_ context.Context, id int64, _ bool) (model.Payment, error) {
	payment, ok := t.state.payments[id]
	if !ok {
		return model.Payment{}, ErrNoRows
	}
	return payment, nil
}

func (t *memTx) PaymentList(_ context.Context, saleID int64) ([]model.Payment, error) {
	payments := []model.Payment{}
	for _, p := range t.state.payments {
		if p.SaleID == saleID {
			payments = append(payments, p)
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })
	return payments, nil
}

func (t *memTx) PaymentInsert(_ context.Context, payment *model.Payment) error {
	if _, ok := t.state.sales[payment.SaleID]; !ok {
		return ErrReference
	}
	t.state.lastPayment++
	now := time.Now()
	payment.ID = t.state.lastPayment
	payment.CreatedAt = now
	payment.UpdatedAt = now
	t.state.payments[payment.ID] = *payment
	return nil
}

func (t *memTx) PaymentUpdate(_ context.Context, payment *model.Payment) error {
	stored, ok := t.state.payments[payment.ID]
	if !ok {
		return ErrNoRows
	}
	payment.UpdatedAt = time.Now()
	stored.Status = payment.Status
	stored.PaidAt = payment.PaidAt
	stored.UpdatedAt = payment.UpdatedAt
	t.state.payments[payment.ID] = stored
	return nil
}

func (t *memTx) TradeInList(_ context.Context, saleID int64) ([]model.TradeIn, error) {
	tradeIns := []model.TradeIn{}
	for _, ti := range t.state.tradeIns {
		if ti.SaleID == saleID {
			tradeIns = append(tradeIns, ti)
		}
	}
	sort.Slice(tradeIns, func(i, j int) bool { return tradeIns[i].ID < tradeIns[j].ID })
	return tradeIns, nil
}

func (t *memTx) TradeInInsert(_ context.Context, tradeIn *model.TradeIn) error {
	if _, ok := t.state.sales[tradeIn.SaleID]; !ok {
		return ErrReference
	}
	if _, ok := t.state.vehicles[tradeIn.VehicleID]; !ok {
		return ErrReference
	}
	for _, ti := range t.state.tradeIns {
		if ti.SaleID == tradeIn.SaleID && ti.VehicleID == tradeIn.VehicleID {
			return ErrAlreadyExists
		}
	}
	t.state.lastTradeIn++
	tradeIn.ID = t.state.lastTradeIn
	tradeIn.CreatedAt = time.Now()
	t.state.tradeIns[tradeIn.ID] = *tradeIn
	return nil
}

func (t *memTx) TradeInActiveSales(_ context.Context, vehicleID int64) ([]int64, error) {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, ti := range t.state.tradeIns {
		if ti.VehicleID != vehicleID {
			continue
		}
		sale, ok := t.state.sales[ti.SaleID]
		if !ok || sale.Status == model.SaleStatusDelivered {
			continue
		}
		if _, dup := seen[sale.ID]; dup {
			continue
		}
		seen[sale.ID] = struct{}{}
		ids = append(ids, sale.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (t *memTx) VehicleGet(_ context.Context, id int64, _ bool) (model.Vehicle, error) {
	vehicle, ok := t.state.vehicles[id]
	if !ok {
		return model.Vehicle{}, ErrNoRows
	}
	return vehicle, nil
}

func (t *memTx) VehicleSetStatus(_ context.Context, id int64, status model.VehicleStatus) error {
	vehicle, ok := t.state.vehicles[id]
	if !ok {
		return ErrNoRows
	}
	vehicle.Status = status
	t.state.vehicles[id] = vehicle
	return nil
}

func (t *memTx) ClientExists(_ context.Context, id int64) (bool, error) {
	_, ok := t.state.clients[id]
	return ok, nil
}

func (t *memTx) UserExists(_ context.Context, id int64) (bool, error) {
	_, ok := t.state.users[id]
	return ok, nil
}

func (t *memTx) QuoteExists(_ context.Context, id int64) (bool, error) {
	_, ok := t.state.quotes[id]
	return ok, nil
}
