package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/iurnickita/dealership/internal/model"
	"github.com/iurnickita/dealership/internal/store/config"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type pgStore struct {
	database *sql.DB
}

func NewPgStore(cfg config.Config) (Store, error) {
	if cfg.Migrate {
		if err := Migrate(cfg.DBDsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("pgx", cfg.DBDsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(30)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &pgStore{database: db}, nil
}

func (store *pgStore) Close() error {
	return store.database.Close()
}

func (store *pgStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := store.database.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	// no-op after Commit
	defer sqlTx.Rollback()

	if err := fn(&pgTx{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// Операции внутри транзакции

type pgTx struct {
	tx *sql.Tx
}

type scanner interface {
	Scan(dest ...any) error
}

func lockClause(lock bool) string {
	if lock {
		return " FOR UPDATE"
	}
	return ""
}

func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrAlreadyExists
		case pgForeignKeyViolation:
			return ErrReference
		}
	}
	return err
}

const saleColumns = "id, type, status, client_id, vehicle_id, user_id, quote_id," +
	" base_price, discount, transfer_percentage, transfer_amount, admin_expenses," +
	" final_price, total_paid, sale_date, reserved_at, created_at, updated_at"

func scanSale(row scanner) (model.Sale, error) {
	var sale model.Sale
	var quoteID sql.NullInt64
	var reservedAt sql.NullTime
	err := row.Scan(&sale.ID,
		&sale.Type,
		&sale.Status,
		&sale.ClientID,
		&sale.VehicleID,
		&sale.UserID,
		&quoteID,
		&sale.BasePrice,
		&sale.Discount,
		&sale.TransferPercentage,
		&sale.TransferAmount,
		&sale.AdminExpenses,
		&sale.FinalPrice,
		&sale.TotalPaid,
		&sale.SaleDate,
		&reservedAt,
		&sale.CreatedAt,
		&sale.UpdatedAt)
	if err != nil {
		return model.Sale{}, err
	}
	if quoteID.Valid {
		sale.QuoteID = &quoteID.Int64
	}
	if reservedAt.Valid {
		sale.ReservedAt = &reservedAt.Time
	}
	return sale, nil
}

func (t *pgTx) SaleGet(ctx context.Context, id int64, lock bool) (model.Sale, error) {
	row := t.tx.QueryRowContext(ctx,
		"SELECT "+saleColumns+
			" FROM sales"+
			" WHERE id = $1"+lockClause(lock),
		id)
	sale, err := scanSale(row)
	if err != nil {
		return model.Sale{}, translate(err)
	}
	return sale, nil
}

func (t *pgTx) SaleList(ctx context.Context, filter model.SaleFilter) ([]model.Sale, error) {
	rows, err := t.tx.QueryContext(ctx,
		"SELECT "+saleColumns+
			" FROM sales"+
			" WHERE ($1 = '' OR status = $1)"+
			"   AND ($2 = '' OR type = $2)"+
			"   AND ($3 = 0 OR client_id = $3)"+
			" ORDER BY id DESC",
		string(filter.Status),
		string(filter.Type),
		filter.ClientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []model.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func nullableQuote(quoteID *int64) sql.NullInt64 {
	if quoteID == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *quoteID, Valid: true}
}

func nullableTime(ts *time.Time) sql.NullTime {
	if ts == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *ts, Valid: true}
}

func (t *pgTx) SaleInsert(ctx context.Context, sale *model.Sale) error {
	row := t.tx.QueryRowContext(ctx,
		"INSERT INTO sales (type, status, client_id, vehicle_id, user_id, quote_id,"+
			" base_price, discount, transfer_percentage, transfer_amount, admin_expenses,"+
			" final_price, total_paid, sale_date, reserved_at)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)"+
			" RETURNING id, created_at, updated_at",
		sale.Type,
		sale.Status,
		sale.ClientID,
		sale.VehicleID,
		sale.UserID,
		nullableQuote(sale.QuoteID),
		sale.BasePrice,
		sale.Discount,
		sale.TransferPercentage,
		sale.TransferAmount,
		sale.AdminExpenses,
		sale.FinalPrice,
		sale.TotalPaid,
		sale.SaleDate,
		nullableTime(sale.ReservedAt))
	err := row.Scan(&sale.ID, &sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	return nil
}

func (t *pgTx) SaleUpdate(ctx context.Context, sale *model.Sale) error {
	row := t.tx.QueryRowContext(ctx,
		"UPDATE sales"+
			" SET status = $2, base_price = $3, discount = $4, transfer_percentage = $5,"+
			"     transfer_amount = $6, admin_expenses = $7, final_price = $8, total_paid = $9,"+
			"     sale_date = $10, reserved_at = $11, updated_at = now()"+
			" WHERE id = $1"+
			" RETURNING updated_at",
		sale.ID,
		sale.Status,
		sale.BasePrice,
		sale.Discount,
		sale.TransferPercentage,
		sale.TransferAmount,
		sale.AdminExpenses,
		sale.FinalPrice,
		sale.TotalPaid,
		sale.SaleDate,
		nullableTime(sale.ReservedAt))
	err := row.Scan(&sale.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	return nil
}

func (t *pgTx) SaleDelete(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx,
		"DELETE FROM sales WHERE id = $1",
		id)
	if err != nil {
		return translate(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoRows
	}
	return nil
}

func (t *pgTx) SaleActiveByVehicle(ctx context.Context, vehicleID int64) ([]int64, error) {
	rows, err := t.tx.QueryContext(ctx,
		"SELECT id FROM sales"+
			" WHERE vehicle_id = $1"+
			"   AND status <> $2"+
			" ORDER BY id",
		vehicleID,
		model.SaleStatusDelivered)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Платежи

const paymentColumns = "id, sale_id, amount, method, status, paid_at, notes, reference, created_at, updated_at"

func scanPayment(row scanner) (model.Payment, error) {
	var payment model.Payment
	var paidAt sql.NullTime
	err := row.Scan(&payment.ID,
		&payment.SaleID,
		&payment.Amount,
		&payment.Method,
		&payment.Status,
		&paidAt,
		&payment.Notes,
		&payment.Reference,
		&payment.CreatedAt,
		&payment.UpdatedAt)
	if err != nil {
		return model.Payment{}, err
	}
	if paidAt.Valid {
		payment.PaidAt = &paidAt.Time
	}
	return payment, nil
}

func (t *pgTx) PaymentGet(ctx context.Context, id int64, lock bool) (model.Payment, error) {
	row := t.tx.QueryRowContext(ctx,
		"SELECT "+paymentColumns+
			" FROM payments"+
			" WHERE id = $1"+lockClause(lock),
		id)
	payment, err := scanPayment(row)
	if err != nil {
		return model.Payment{}, translate(err)
	}
	return payment, nil
}

func (t *pgTx) PaymentList(ctx context.Context, saleID int64) ([]model.Payment, error) {
	rows, err := t.tx.QueryContext(ctx,
		"SELECT "+paymentColumns+
			" FROM payments"+
			" WHERE sale_id = $1"+
			" ORDER BY id",
		saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []model.Payment{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func (t *pgTx) PaymentInsert(ctx context.Context, payment *model.Payment) error {
	row := t.tx.QueryRowContext(ctx,
		"INSERT INTO payments (sale_id, amount, method, status, paid_at, notes, reference)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7)"+
			" RETURNING id, created_at, updated_at",
		payment.SaleID,
		payment.Amount,
		payment.Method,
		payment.Status,
		nullableTime(payment.PaidAt),
		payment.Notes,
		payment.Reference)
	err := row.Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	return nil
}

func (t *pgTx) PaymentUpdate(ctx context.Context, payment *model.Payment) error {
	row := t.tx.QueryRowContext(ctx,
		"UPDATE payments"+
			" SET status = $2, paid_at = $3, updated_at = now()"+
			" WHERE id = $1"+
			" RETURNING updated_at",
		payment.ID,
		payment.Status,
		nullableTime(payment.PaidAt))
	err := row.Scan(&payment.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	return nil
}

// Автомобили в зачет

func (t *pgTx) TradeInList(ctx context.Context, saleID int64) ([]model.TradeIn, error) {
	rows, err := t.tx.QueryContext(ctx,
		"SELECT id, sale_id, vehicle_id, trade_in_value, credited, created_at"+
			" FROM trade_ins"+
			" WHERE sale_id = $1"+
			" ORDER BY id",
		saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tradeIns := []model.TradeIn{}
	for rows.Next() {
		var tradeIn model.TradeIn
		err := rows.Scan(&tradeIn.ID,
			&tradeIn.SaleID,
			&tradeIn.VehicleID,
			&tradeIn.TradeInValue,
			&tradeIn.Credited,
			&tradeIn.CreatedAt)
		if err != nil {
			return nil, err
		}
		tradeIns = append(tradeIns, tradeIn)
	}
	return tradeIns, rows.Err()
}

func (t *pgTx) TradeInInsert(ctx context.Context, tradeIn *model.TradeIn) error {
	row := t.tx.QueryRowContext(ctx,
		"INSERT INTO trade_ins (sale_id, vehicle_id, trade_in_value, credited)"+
			" VALUES ($1, $2, $3, $4)"+
			" RETURNING id, created_at",
		tradeIn.SaleID,
		tradeIn.VehicleID,
		tradeIn.TradeInValue,
		tradeIn.Credited)
	err := row.Scan(&tradeIn.ID, &tradeIn.CreatedAt)
	if err != nil {
		return translate(err)
	}
	return nil
}

func (t *pgTx) TradeInActiveSales(ctx context.Context, vehicleID int64) ([]int64, error) {
	rows, err := t.tx.QueryContext(ctx,
		"SELECT DISTINCT s.id"+
			" FROM trade_ins AS ti"+
			" JOIN sales AS s ON s.id = ti.sale_id"+
			" WHERE ti.vehicle_id = $1"+
			"   AND s.status <> $2",
		vehicleID,
		model.SaleStatusDelivered)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Склад

func (t *pgTx) VehicleGet(ctx context.Context, id int64, lock bool) (model.Vehicle, error) {
	var vehicle model.Vehicle
	var plate sql.NullString
	row := t.tx.QueryRowContext(ctx,
		"SELECT id, vehicle_plate, price, status"+
			" FROM vehicles"+
			" WHERE id = $1"+lockClause(lock),
		id)
	err := row.Scan(&vehicle.ID, &plate, &vehicle.Price, &vehicle.Status)
	if err != nil {
		return model.Vehicle{}, translate(err)
	}
	vehicle.Plate = plate.String
	return vehicle, nil
}

func (t *pgTx) VehicleSetStatus(ctx context.Context, id int64, status model.VehicleStatus) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE vehicles SET status = $2 WHERE id = $1",
		id,
		status)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoRows
	}
	return nil
}

// Справочники

func (t *pgTx) exists(ctx context.Context, query string, id int64) (bool, error) {
	var found bool
	err := t.tx.QueryRowContext(ctx, query, id).Scan(&found)
	if err != nil {
		return false, err
	}
	return found, nil
}

func (t *pgTx) ClientExists(ctx context.Context, id int64) (bool, error) {
	return t.exists(ctx, "SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)", id)
}

func (t *pgTx) UserExists(ctx context.Context, id int64) (bool, error) {
	return t.exists(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", id)
}

func (t *pgTx) QuoteExists(ctx context.Context, id int64) (bool, error) {
	return t.exists(ctx, "SELECT EXISTS (SELECT 1 FROM quotes WHERE id = $1)", id)
}
