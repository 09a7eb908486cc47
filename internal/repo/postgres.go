package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/minhngo-dev/storefront-checkout/internal/entities"
	"github.com/minhngo-dev/storefront-checkout/pkg/trm"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type orderRepo struct {
	db *sqlx.DB
	qb sq.StatementBuilderType
}

func NewOrderRepo(db *sqlx.DB) *orderRepo {
	return &orderRepo{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// SaveOrder inserts the order row, its item snapshot and the creation event.
// Callers wrap it in the transaction manager so the three inserts commit
// together.
func (r *orderRepo) SaveOrder(ctx context.Context, o entities.Order) error {
	query, args := r.qb.Insert("orders").
		Columns(
			"order_id", "customer_ref", "full_name", "phone",
			"province_id", "district_id", "ward_code", "address_line",
			"subtotal", "shipping_fee", "total", "status", "created_at",
		).
		Values(
			o.ID, o.CustomerRef, o.FullName, o.Phone,
			o.Address.ProvinceID, o.Address.DistrictID, o.Address.WardCode, nullString(o.Address.Line),
			o.Subtotal, o.ShippingFee, o.Total, string(o.Status), o.CreatedAt,
		).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}

	if err := r.saveItems(ctx, o.ID, o.Items); err != nil {
		return err
	}

	created := entities.StatusChange{
		To:    o.Status,
		Actor: o.CustomerRef,
		At:    o.CreatedAt,
	}
	if err := r.SaveEvent(ctx, o.ID, created); err != nil {
		return err
	}

	return nil
}

func (r *orderRepo) saveItems(ctx context.Context, orderID string, items []entities.CartItem) error {
	if len(items) == 0 {
		return nil
	}

	q := r.qb.Insert("order_items").
		Columns("order_id", "product_ref", "name", "unit_price", "quantity",
			"image_ref", "weight", "length", "width", "height")

	for _, it := range items {
		q = q.Values(
			orderID,
			it.ProductRef,
			it.Name,
			it.UnitPrice,
			it.Quantity,
			nullString(it.ImageRef),
			it.Weight,
			it.Length,
			it.Width,
			it.Height,
		)
	}

	query, args := q.MustSql()
	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save order items: %w", err)
	}
	return nil
}

func (r *orderRepo) GetOrderByID(ctx context.Context, orderID string) (entities.Order, error) {
	query, args := r.qb.Select(
		"order_id", "customer_ref", "full_name", "phone",
		"province_id", "district_id", "ward_code", "address_line",
		"subtotal", "shipping_fee", "total", "status", "created_at").
		From("orders").
		Where(sq.Eq{"order_id": orderID}).
		MustSql()

	var order Order
	err := r.getContext(ctx, &order, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	query, args = r.qb.Select(
		"order_id", "product_ref", "name", "unit_price", "quantity",
		"image_ref", "weight", "length", "width", "height").
		From("order_items").
		Where(sq.Eq{"order_id": orderID}).
		MustSql()

	var items []Item
	if err := r.selectContext(ctx, &items, query, args...); err != nil {
		return entities.Order{}, fmt.Errorf("failed to get order items: %w", err)
	}

	query, args = r.qb.Select(
		"order_id", "amount", "transaction_no", "pay_date",
		"order_info", "response_code", "failure_reason").
		From("payments").
		Where(sq.Eq{"order_id": orderID}).
		MustSql()

	var payment *Payment
	var p Payment
	err = r.getContext(ctx, &p, query, args...)
	if err == nil {
		payment = &p
	} else if !errors.Is(err, sql.ErrNoRows) {
		return entities.Order{}, fmt.Errorf("failed to get payment: %w", err)
	}

	query, args = r.qb.Select(
		"order_id", "from_status", "to_status", "actor", "reason", "created_at").
		From("order_events").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("created_at ASC").
		MustSql()

	var events []Event
	if err := r.selectContext(ctx, &events, query, args...); err != nil {
		return entities.Order{}, fmt.Errorf("failed to get order events: %w", err)
	}

	return OrderToEntity(order, items, payment, events), nil
}

func (r *orderRepo) ListByCustomer(ctx context.Context, customerRef string, limit int) ([]entities.Order, error) {
	query, args := r.qb.Select(
		"order_id", "customer_ref", "full_name", "phone",
		"province_id", "district_id", "ward_code", "address_line",
		"subtotal", "shipping_fee", "total", "status", "created_at").
		From("orders").
		Where(sq.Eq{"customer_ref": customerRef}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		MustSql()

	var orders []Order
	if err := r.selectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select orders: %w", err)
	}

	if len(orders) == 0 {
		return []entities.Order{}, nil
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	query, args = r.qb.Select(
		"order_id", "product_ref", "name", "unit_price", "quantity",
		"image_ref", "weight", "length", "width", "height").
		From("order_items").
		Where(sq.Eq{"order_id": ids}).
		MustSql()

	var items []Item
	if err := r.selectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select order items: %w", err)
	}
	itemsMap := make(map[string][]Item, len(ids))
	for _, it := range items {
		itemsMap[it.OrderID] = append(itemsMap[it.OrderID], it)
	}

	result := make([]entities.Order, 0, len(orders))
	for _, o := range orders {
		result = append(result, OrderToEntity(o, itemsMap[o.ID], nil, nil))
	}
	return result, nil
}

// UpdateStatus applies one transition. The update is guarded by the expected
// current status, a concurrent writer losing the race gets
// ErrInvalidTransition instead of silently overwriting.
func (r *orderRepo) UpdateStatus(ctx context.Context, orderID string, change entities.StatusChange) error {
	query, args := r.qb.Update("orders").
		Set("status", string(change.To)).
		Where(sq.Eq{"order_id": orderID, "status": string(change.From)}).
		MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return entities.ErrInvalidTransition
	}

	return r.SaveEvent(ctx, orderID, change)
}

func (r *orderRepo) SaveEvent(ctx context.Context, orderID string, change entities.StatusChange) error {
	query, args := r.qb.Insert("order_events").
		Columns("order_id", "from_status", "to_status", "actor", "reason", "created_at").
		Values(
			orderID,
			nullString(string(change.From)),
			string(change.To),
			change.Actor,
			nullString(change.Reason),
			change.At,
		).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save order event: %w", err)
	}
	return nil
}

// SaveFulfillmentException flags an order whose stock decrement failed after
// the order was already committed. The inventory ledger may be short until
// someone resolves it manually.
func (r *orderRepo) SaveFulfillmentException(ctx context.Context, orderID, productRef, reason string, at time.Time) error {
	query, args := r.qb.Insert("fulfillment_exceptions").
		Columns("order_id", "product_ref", "reason", "created_at").
		Values(orderID, productRef, reason, at).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save fulfillment exception: %w", err)
	}
	return nil
}

// SavePayment upserts, a replayed gateway callback rewrites the same row.
func (r *orderRepo) SavePayment(ctx context.Context, orderID string, p entities.PaymentDetails) error {
	query, args := r.qb.Insert("payments").
		Columns("order_id", "amount", "transaction_no", "pay_date",
			"order_info", "response_code", "failure_reason").
		Values(
			orderID,
			p.Amount,
			nullString(p.TransactionNo),
			nullTime(p.PayDate),
			nullString(p.OrderInfo),
			p.ResponseCode,
			nullString(p.FailureReason),
		).
		Suffix(`ON CONFLICT (order_id) DO UPDATE SET
			amount = EXCLUDED.amount,
			transaction_no = EXCLUDED.transaction_no,
			pay_date = EXCLUDED.pay_date,
			order_info = EXCLUDED.order_info,
			response_code = EXCLUDED.response_code,
			failure_reason = EXCLUDED.failure_reason`).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func (r *orderRepo) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	tx := trm.ExtractTx(ctx)
	if tx != nil {
		return tx.ExecContext(ctx, query, args...)
	}
	return r.db.ExecContext(ctx, query, args...)
}

func (r *orderRepo) getContext(ctx context.Context, dest any, query string, args ...any) error {
	tx := trm.ExtractTx(ctx)
	if tx != nil {
		return tx.GetContext(ctx, dest, query, args...)
	}
	return r.db.GetContext(ctx, dest, query, args...)
}

func (r *orderRepo) selectContext(ctx context.Context, dest any, query string, args ...any) error {
	tx := trm.ExtractTx(ctx)
	if tx != nil {
		return tx.SelectContext(ctx, dest, query, args...)
	}
	return r.db.SelectContext(ctx, dest, query, args...)
}
