// README: Order store backed by PostgreSQL; CAS-guarded status writes.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bazaar/internal/types"
)

type Store struct {
	db       *pgxpool.Pool
	currency string
}

func NewStore(db *pgxpool.Pool, currency string) *Store {
	return &Store{db: db, currency: currency}
}

const orderColumns = `
	id, order_number, customer_id, customer_name, customer_phone,
	address, city, area, locality, status, status_version,
	subtotal, delivery_fee, tax_amount, total, currency,
	payment_method, payment_status, delivery_agent_id, delivery_instructions,
	parcel_otp, estimated_delivery_time, actual_delivery_time,
	created_at, updated_at`

// CreateOrder inserts the order, its items, and its seller orders in one
// transaction. The order number is computed from the row's own sequence value
// in a single INSERT, so no placeholder-then-update pass is needed.
func (s *Store) CreateOrder(ctx context.Context, o *Order, items []OrderItem, sellers []SellerOrder) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		WITH seq AS (SELECT nextval('orders_id_seq') AS id)
		INSERT INTO orders (
			id, order_number, customer_id, customer_name, customer_phone,
			address, city, area, locality, status, status_version,
			subtotal, delivery_fee, tax_amount, total, currency,
			payment_method, payment_status, delivery_instructions,
			estimated_delivery_time, created_at, updated_at
		)
		SELECT seq.id, seq.id::text, $1, $2, $3,
			$4, $5, $6, $7, $8, 0,
			$9, $10, $11, $12, $13,
			$14, $15, $16,
			$17, $18, $18
		FROM seq
		RETURNING id, order_number`,
		o.CustomerID, o.CustomerName, o.CustomerPhone,
		o.Address, o.City, o.Area, o.Locality, string(o.Status),
		o.Subtotal.Amount, o.DeliveryFee.Amount, o.TaxAmount.Amount, o.Total.Amount, o.Subtotal.Currency,
		o.PaymentMethod, o.PaymentStatus, o.DeliveryInstructions,
		o.EstimatedDeliveryTime, o.CreatedAt,
	)
	if err := row.Scan(&o.ID, &o.OrderNumber); err != nil {
		return err
	}

	for i := range items {
		items[i].OrderID = o.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, seller_id, name, image_url, category, unit_price, quantity, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			o.ID, items[i].ProductID, items[i].SellerID, items[i].Name, items[i].ImageURL,
			items[i].Category, items[i].UnitPrice.Amount, items[i].Quantity, items[i].LineTotal.Amount,
		).Scan(&items[i].ID)
		if err != nil {
			return err
		}
	}

	for i := range sellers {
		sellers[i].OrderID = o.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO seller_orders (order_id, seller_id, status, subtotal, commission, net_payable, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
			RETURNING id`,
			o.ID, sellers[i].SellerID, string(sellers[i].Status),
			sellers[i].Subtotal.Amount, sellers[i].Commission.Amount, sellers[i].NetPayable.Amount, o.CreatedAt,
		).Scan(&sellers[i].ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*Order, error) {
	row := s.db.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1`, id)
	return s.scanOrder(row)
}

func (s *Store) ListOrdersByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	rows, err := s.db.Query(ctx, `SELECT`+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := s.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (s *Store) OrderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, product_id, seller_id, name, image_url, category, unit_price, quantity, line_total
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.SellerID, &it.Name,
			&it.ImageURL, &it.Category, &it.UnitPrice.Amount, &it.Quantity, &it.LineTotal.Amount); err != nil {
			return nil, err
		}
		it.UnitPrice.Currency = s.currency
		it.LineTotal.Currency = s.currency
		out = append(out, it)
	}
	return out, rows.Err()
}

// AppendTracking inserts a timeline entry and, when next is non-nil, updates
// the order status in the same transaction. The status write is a CAS on
// status_version: false means a concurrent transition won and nothing was
// written, including the entry itself.
func (s *Store) AppendTracking(ctx context.Context, e *TrackingEntry, next *Status, version int) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if next != nil {
		tag, err := tx.Exec(ctx, `
			UPDATE orders
			SET status = $1, status_version = status_version + 1, updated_at = $2
			WHERE id = $3 AND status_version = $4`,
			string(*next), e.CreatedAt, e.OrderID, version,
		)
		if err != nil {
			return false, err
		}
		if tag.RowsAffected() != 1 {
			return false, nil
		}
	}

	if err := s.insertTracking(ctx, tx, e); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (s *Store) ListTracking(ctx context.Context, orderID int64, desc bool, limit int) ([]TrackingEntry, error) {
	q := `SELECT id, order_id, status, description, COALESCE(location, ''), created_at
		FROM order_tracking WHERE order_id = $1 ORDER BY created_at, id`
	if desc {
		q = `SELECT id, order_id, status, description, COALESCE(location, ''), created_at
		FROM order_tracking WHERE order_id = $1 ORDER BY created_at DESC, id DESC`
	}
	args := []any{orderID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrackingEntry
	for rows.Next() {
		var e TrackingEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Description, &e.Location, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetOTP persists the delivery OTP only if none exists yet. false means a
// code was already present.
func (s *Store) SetOTP(ctx context.Context, orderID int64, otp string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders SET parcel_otp = $1, updated_at = NOW()
		WHERE id = $2 AND parcel_otp IS NULL`,
		otp, orderID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// BindAgent sets the delivery agent with a CAS on the unassigned state, so
// two concurrent assignments cannot both win.
func (s *Store) BindAgent(ctx context.Context, orderID, agentID int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders SET delivery_agent_id = $1, updated_at = NOW()
		WHERE id = $2 AND delivery_agent_id IS NULL`,
		agentID, orderID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkDelivered performs the OTP-gated terminal transition: status flip,
// actual delivery time, and the DELIVERED timeline entry commit together.
func (s *Store) MarkDelivered(ctx context.Context, orderID int64, version int, deliveredAt time.Time, e *TrackingEntry) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $1, status_version = status_version + 1, actual_delivery_time = $2, updated_at = $2
		WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(StatusDelivered), deliveredAt, orderID, string(StatusOutForDelivery), version,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	if err := s.insertTracking(ctx, tx, e); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (s *Store) SetEstimatedDelivery(ctx context.Context, orderID int64, eta time.Time) error {
	_, err := s.db.Exec(ctx, `UPDATE orders SET estimated_delivery_time = $1, updated_at = NOW() WHERE id = $2`, eta, orderID)
	return err
}

// SetStatus is the seller back-propagation write; it shares the same
// version CAS as tracking-driven transitions.
func (s *Store) SetStatus(ctx context.Context, orderID int64, status Status, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders SET status = $1, status_version = status_version + 1, updated_at = NOW()
		WHERE id = $2 AND status_version = $3`,
		string(status), orderID, version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) SellerOrders(ctx context.Context, orderID int64) ([]SellerOrder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, seller_id, status, subtotal, commission, net_payable, created_at, updated_at
		FROM seller_orders WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SellerOrder
	for rows.Next() {
		so, err := s.scanSellerOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *so)
	}
	return out, rows.Err()
}

func (s *Store) GetSellerOrder(ctx context.Context, id int64) (*SellerOrder, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, order_id, seller_id, status, subtotal, commission, net_payable, created_at, updated_at
		FROM seller_orders WHERE id = $1`, id)
	return s.scanSellerOrder(row)
}

func (s *Store) SetSellerOrderStatus(ctx context.Context, id int64, status Status) error {
	tag, err := s.db.Exec(ctx, `UPDATE seller_orders SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) insertTracking(ctx context.Context, tx pgx.Tx, e *TrackingEntry) error {
	var loc *string
	if e.Location != "" {
		loc = &e.Location
	}
	return tx.QueryRow(ctx, `
		INSERT INTO order_tracking (order_id, status, description, location, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		e.OrderID, string(e.Status), e.Description, loc, e.CreatedAt,
	).Scan(&e.ID)
}

type scannable interface {
	Scan(dest ...any) error
}

func (s *Store) scanOrder(row scannable) (*Order, error) {
	var o Order
	var currency string
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerName, &o.CustomerPhone,
		&o.Address, &o.City, &o.Area, &o.Locality, &o.Status, &o.StatusVersion,
		&o.Subtotal.Amount, &o.DeliveryFee.Amount, &o.TaxAmount.Amount, &o.Total.Amount, &currency,
		&o.PaymentMethod, &o.PaymentStatus, &o.DeliveryAgentID, &o.DeliveryInstructions,
		&o.ParcelOTP, &o.EstimatedDeliveryTime, &o.ActualDeliveryTime,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	for _, m := range []*types.Money{&o.Subtotal, &o.DeliveryFee, &o.TaxAmount, &o.Total} {
		m.Currency = currency
	}
	return &o, nil
}

func (s *Store) scanSellerOrder(row scannable) (*SellerOrder, error) {
	var so SellerOrder
	err := row.Scan(&so.ID, &so.OrderID, &so.SellerID, &so.Status,
		&so.Subtotal.Amount, &so.Commission.Amount, &so.NetPayable.Amount, &so.CreatedAt, &so.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	for _, m := range []*types.Money{&so.Subtotal, &so.Commission, &so.NetPayable} {
		m.Currency = s.currency
	}
	return &so, nil
}
