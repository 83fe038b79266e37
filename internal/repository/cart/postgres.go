package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
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
	return &postgresRepo{pool: pool, logger: logger.WithField("component", "cart-repo")}
}

const cartSelect = `
SELECT c.id::text, c.store_id::text, c.customer_id::text, c.is_guest, c.state, c.version,
       c.customer_email, c.customer_firstname, c.customer_lastname, c.coupon_code,
       c.shipping_method, c.payment_method, c.payment_additional_data, c.reserved_order_id,
       c.totals, c.created_at, c.updated_at,
       sa.id::text, sa.data, ba.id::text, ba.data
FROM carts c
LEFT JOIN cart_addresses sa ON sa.id = c.shipping_address_id
LEFT JOIN cart_addresses ba ON ba.id = c.billing_address_id
`

func (r *postgresRepo) Create(ctx context.Context, in CreateCartInput) (*domain.Cart, error) {
	const q = `
INSERT INTO carts (store_id, customer_id, is_guest)
VALUES ($1, $2, $3)
ON CONFLICT (store_id, customer_id) WHERE customer_id IS NOT NULL AND state <> 'converted' DO NOTHING
RETURNING id::text
`
	var id string
	err := r.pool.QueryRow(ctx, q, in.StoreID, in.CustomerID, in.CustomerID == nil).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) && in.CustomerID != nil {
		// lost the race or the customer already has a cart
		return r.GetActiveByCustomer(ctx, in.StoreID, *in.CustomerID)
	}
	if err != nil {
		r.logger.WithError(err).WithField("store_id", in.StoreID).Error("create cart failed")
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Cart, error) {
	return r.fetchCart(ctx, cartSelect+`WHERE c.id = $1`, id)
}

func (r *postgresRepo) GetActiveByCustomer(ctx context.Context, storeID, customerID string) (*domain.Cart, error) {
	return r.fetchCart(ctx, cartSelect+`
WHERE c.store_id = $1 AND c.customer_id = $2 AND c.state <> 'converted'
ORDER BY c.created_at DESC
LIMIT 1`, storeID, customerID)
}

func (r *postgresRepo) SaveAddress(ctx context.Context, cartID string, addr domain.Address) (*domain.Address, error) {
	if addr.Type != domain.AddressTypeShipping && addr.Type != domain.AddressTypeBilling {
		return nil, fmt.Errorf("cart repo: unknown address type %q", addr.Type)
	}
	stored := addr.Clone()
	stored.ID = ""
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}

	var id string
	if addr.ID != "" {
		err = r.pool.QueryRow(ctx, `
UPDATE cart_addresses
SET address_type = $3, data = $4, updated_at = NOW()
WHERE id = $1 AND cart_id = $2
RETURNING id::text
`, addr.ID, cartID, addr.Type, data).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAddressNotFound
		}
	} else {
		err = r.pool.QueryRow(ctx, `
INSERT INTO cart_addresses (cart_id, address_type, data)
VALUES ($1, $2, $3)
RETURNING id::text
`, cartID, addr.Type, data).Scan(&id)
	}
	if err != nil {
		r.logger.WithError(err).WithField("cart_id", cartID).Error("save cart address failed")
		return nil, err
	}
	out := addr.Clone()
	out.ID = id
	return &out, nil
}

func (r *postgresRepo) Save(ctx context.Context, cart *domain.Cart) error {
	totals, err := json.Marshal(cart.Totals)
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var state string
	err = tx.QueryRow(ctx, `SELECT state FROM carts WHERE id = $1 FOR UPDATE`, cart.ID).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrCartNotFound
		}
		return err
	}
	if state == domain.CartStateConverted {
		return domain.ErrCartConverted
	}

	err = tx.QueryRow(ctx, `
UPDATE carts
SET customer_id = $2,
    is_guest = $3,
    state = $4,
    customer_email = $5,
    customer_firstname = $6,
    customer_lastname = $7,
    coupon_code = $8,
    shipping_address_id = $9,
    billing_address_id = $10,
    shipping_method = $11,
    payment_method = $12,
    payment_additional_data = $13,
    reserved_order_id = $14,
    totals = $15,
    version = version + 1,
    updated_at = NOW()
WHERE id = $1
RETURNING version, updated_at
`,
		cart.ID,
		cart.CustomerID,
		cart.IsGuest,
		cart.State,
		cart.CustomerEmail,
		cart.CustomerFirstname,
		cart.CustomerLastname,
		cart.CouponCode,
		addressID(cart.ShippingAddress),
		addressID(cart.BillingAddress),
		cart.ShippingMethod,
		cart.Payment.Method,
		rawJSON(cart.Payment.AdditionalData),
		cart.ReservedOrderID,
		totals,
	).Scan(&cart.Version, &cart.UpdatedAt)
	if err != nil {
		r.logger.WithError(err).WithField("cart_id", cart.ID).Error("update cart failed")
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cart.ID); err != nil {
		return err
	}
	if len(cart.Items) > 0 {
		batch := &pgx.Batch{}
		for i, it := range cart.Items {
			var options []byte
			if len(it.Options) > 0 {
				if options, err = json.Marshal(it.Options); err != nil {
					return err
				}
			}
			batch.Queue(`
INSERT INTO cart_lines (id, cart_id, position, product_id, sku, name, product_type, qty, price_cents,
                        parent_item_id, parent_sku, is_virtual, is_recurring, options, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, COALESCE($15, NOW()))
`,
				it.ID, cart.ID, i, nullable(it.ProductID), it.SKU, it.Name, it.ProductType, it.Qty, it.PriceCents,
				it.ParentItemID, it.ParentSKU, it.IsVirtual, it.IsRecurring, options, nullableTime(it),
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			r.logger.WithError(err).WithField("cart_id", cart.ID).Error("write cart lines failed")
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *postgresRepo) fetchCart(ctx context.Context, query string, args ...any) (*domain.Cart, error) {
	var (
		cart               domain.Cart
		additional, totals []byte
		shipID, billID     *string
		shipData, billData []byte
	)
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&cart.ID,
		&cart.StoreID,
		&cart.CustomerID,
		&cart.IsGuest,
		&cart.State,
		&cart.Version,
		&cart.CustomerEmail,
		&cart.CustomerFirstname,
		&cart.CustomerLastname,
		&cart.CouponCode,
		&cart.ShippingMethod,
		&cart.Payment.Method,
		&additional,
		&cart.ReservedOrderID,
		&totals,
		&cart.CreatedAt,
		&cart.UpdatedAt,
		&shipID,
		&shipData,
		&billID,
		&billData,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(additional) > 0 {
		cart.Payment.AdditionalData = json.RawMessage(additional)
	}
	if len(totals) > 0 {
		if err := json.Unmarshal(totals, &cart.Totals); err != nil {
			return nil, fmt.Errorf("decode totals of cart %s: %w", cart.ID, err)
		}
	}
	if cart.ShippingAddress, err = decodeAddress(shipID, shipData); err != nil {
		return nil, err
	}
	if cart.BillingAddress, err = decodeAddress(billID, billData); err != nil {
		return nil, err
	}

	const linesQuery = `
SELECT id::text, cart_id::text, COALESCE(product_id::text, ''), sku, name, product_type, qty, price_cents,
       parent_item_id::text, parent_sku, is_virtual, is_recurring, options, created_at
FROM cart_lines
WHERE cart_id = $1
ORDER BY position ASC
`
	rows, err := r.pool.Query(ctx, linesQuery, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.CartItem
		var options []byte
		if err := rows.Scan(
			&it.ID,
			&it.CartID,
			&it.ProductID,
			&it.SKU,
			&it.Name,
			&it.ProductType,
			&it.Qty,
			&it.PriceCents,
			&it.ParentItemID,
			&it.ParentSKU,
			&it.IsVirtual,
			&it.IsRecurring,
			&options,
			&it.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(options) > 0 {
			if err := json.Unmarshal(options, &it.Options); err != nil {
				return nil, err
			}
		}
		cart.Items = append(cart.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &cart, nil
}

func decodeAddress(id *string, data []byte) (*domain.Address, error) {
	if id == nil || len(data) == 0 {
		return nil, nil
	}
	var addr domain.Address
	if err := json.Unmarshal(data, &addr); err != nil {
		return nil, fmt.Errorf("decode cart address %s: %w", *id, err)
	}
	addr.ID = *id
	return &addr, nil
}

func addressID(a *domain.Address) *string {
	if a == nil || a.ID == "" {
		return nil
	}
	return &a.ID
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableTime(it domain.CartItem) any {
	if it.CreatedAt.IsZero() {
		return nil
	}
	return it.CreatedAt
}

func rawJSON(m json.RawMessage) []byte {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}
