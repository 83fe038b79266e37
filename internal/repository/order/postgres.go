package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"vsbridge/internal/domain"
	"vsbridge/internal/logging"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Entry
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Entry) Repository {
	if logger == nil {
		logger = logging.Discard()
	}
	return &postgresRepo{pool: pool, logger: logger.WithField("component", "order-repo")}
}

func (r *postgresRepo) NextReference(ctx context.Context) (int64, error) {
	var seq int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('order_reference_seq')`).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *postgresRepo) Place(ctx context.Context, order *domain.Order) error {
	items, err := json.Marshal(toLines(order.Items))
	if err != nil {
		return err
	}
	totals, err := json.Marshal(order.Totals)
	if err != nil {
		return err
	}
	shipping, err := marshalAddress(order.ShippingAddress)
	if err != nil {
		return err
	}
	billing, err := marshalAddress(order.BillingAddress)
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var state string
	err = tx.QueryRow(ctx, `SELECT state FROM carts WHERE id = $1 FOR UPDATE`, order.CartID).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrCartNotFound
		}
		return err
	}
	if state == domain.CartStateConverted {
		return domain.ErrCartConverted
	}

	for _, it := range order.Items {
		if it.ProductID == "" {
			continue
		}
		cmd, err := tx.Exec(ctx, `
UPDATE products
SET stock_qty = CASE WHEN manage_stock THEN stock_qty - $2 ELSE stock_qty END,
    in_stock = CASE WHEN manage_stock AND stock_qty - $2 <= 0 THEN FALSE ELSE in_stock END
WHERE id = $1 AND in_stock AND (NOT manage_stock OR stock_qty >= $2)
`, it.ProductID, it.Qty)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			r.logger.WithFields(log.Fields{"sku": it.SKU, "qty": it.Qty, "order_ref": order.IncrementID}).Warn("insufficient stock")
			return domain.ErrOutOfStock
		}
	}

	err = tx.QueryRow(ctx, `
INSERT INTO orders (increment_id, cart_id, store_id, customer_id, is_guest, customer_email, customer_firstname,
                    customer_lastname, status, items, shipping_address, billing_address, shipping_method,
                    payment_method, payment_additional_data, payment_reference, totals)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING id::text, created_at
`,
		order.IncrementID,
		order.CartID,
		order.StoreID,
		order.CustomerID,
		order.IsGuest,
		order.CustomerEmail,
		order.CustomerFirstname,
		order.CustomerLastname,
		order.Status,
		items,
		shipping,
		billing,
		order.ShippingMethod,
		order.PaymentMethod,
		rawJSON(order.PaymentAdditionalData),
		order.PaymentReference,
		totals,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "orders_cart_id_key" {
				return domain.ErrCartConverted
			}
			return domain.ErrAlreadyExists
		}
		r.logger.WithError(err).WithField("order_ref", order.IncrementID).Error("insert order failed")
		return err
	}

	if _, err := tx.Exec(ctx, `
UPDATE carts SET state = 'converted', version = version + 1, updated_at = NOW() WHERE id = $1
`, order.CartID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const orderSelect = `
SELECT id::text, increment_id, cart_id::text, store_id::text, customer_id::text, is_guest, customer_email,
       customer_firstname, customer_lastname, status, items, shipping_address, billing_address, shipping_method,
       payment_method, payment_additional_data, payment_reference, totals, created_at
FROM orders
`

func (r *postgresRepo) GetByCartID(ctx context.Context, cartID string) (*domain.Order, error) {
	return scanOrder(r.pool.QueryRow(ctx, orderSelect+`WHERE cart_id = $1`, cartID))
}

func (r *postgresRepo) ListByCustomer(ctx context.Context, customerID string, page, pageSize int) ([]domain.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE customer_id = $1`, customerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, orderSelect+`
WHERE customer_id = $1
ORDER BY created_at DESC, increment_id DESC
LIMIT $2 OFFSET $3`, customerID, pageSize, (page-1)*pageSize)
	if err != nil {
		r.logger.WithError(err).WithField("customer_id", customerID).Error("list orders failed")
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                                       domain.Order
		items, shipping, billing, extra, totals []byte
	)
	err := row.Scan(
		&o.ID,
		&o.IncrementID,
		&o.CartID,
		&o.StoreID,
		&o.CustomerID,
		&o.IsGuest,
		&o.CustomerEmail,
		&o.CustomerFirstname,
		&o.CustomerLastname,
		&o.Status,
		&items,
		&shipping,
		&billing,
		&o.ShippingMethod,
		&o.PaymentMethod,
		&extra,
		&o.PaymentReference,
		&totals,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var lines []line
	if err := json.Unmarshal(items, &lines); err != nil {
		return nil, fmt.Errorf("decode items of order %s: %w", o.IncrementID, err)
	}
	o.Items = fromLines(lines, o.CartID)
	if err := json.Unmarshal(totals, &o.Totals); err != nil {
		return nil, fmt.Errorf("decode totals of order %s: %w", o.IncrementID, err)
	}
	if o.ShippingAddress, err = unmarshalAddress(shipping); err != nil {
		return nil, err
	}
	if o.BillingAddress, err = unmarshalAddress(billing); err != nil {
		return nil, err
	}
	if len(extra) > 0 {
		o.PaymentAdditionalData = json.RawMessage(extra)
	}
	return &o, nil
}

func marshalAddress(a *domain.Address) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

func unmarshalAddress(data []byte) (*domain.Address, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var a domain.Address
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func rawJSON(m json.RawMessage) []byte {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}
