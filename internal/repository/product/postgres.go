package product

import (
	"context"
	"encoding/json"
	"errors"

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
	return &postgresRepo{pool: pool, logger: logger.WithField("component", "product-repo")}
}

const productColumns = `id::text, sku, name, type, price_cents, parent_sku, is_recurring, manage_stock, stock_qty, in_stock, attributes, created_at`

func (r *postgresRepo) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE sku = $1`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, sku))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.WithError(err).WithField("sku", sku).Error("get product failed")
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	var attrs []byte
	if len(product.Attributes) > 0 {
		var err error
		if attrs, err = json.Marshal(product.Attributes); err != nil {
			return nil, err
		}
	}
	q := `
INSERT INTO products (sku, name, type, price_cents, parent_sku, is_recurring, manage_stock, stock_qty, in_stock, attributes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10::jsonb, '{}'::jsonb))
ON CONFLICT (sku) DO UPDATE SET
    name = EXCLUDED.name,
    type = EXCLUDED.type,
    price_cents = EXCLUDED.price_cents,
    parent_sku = EXCLUDED.parent_sku,
    is_recurring = EXCLUDED.is_recurring,
    manage_stock = EXCLUDED.manage_stock,
    stock_qty = EXCLUDED.stock_qty,
    in_stock = EXCLUDED.in_stock,
    attributes = EXCLUDED.attributes
RETURNING ` + productColumns
	res, err := scanProduct(r.pool.QueryRow(ctx, q,
		product.SKU,
		product.Name,
		product.Type,
		product.PriceCents,
		product.ParentSKU,
		product.IsRecurring,
		product.ManageStock,
		product.StockQty,
		product.InStock,
		attrs,
	))
	if err != nil {
		r.logger.WithError(err).WithField("sku", product.SKU).Error("upsert product failed")
		return nil, err
	}
	r.logger.WithFields(log.Fields{"sku": res.SKU, "id": res.ID}).Debug("product upserted")
	return res, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	var attrs []byte
	err := row.Scan(
		&p.ID,
		&p.SKU,
		&p.Name,
		&p.Type,
		&p.PriceCents,
		&p.ParentSKU,
		&p.IsRecurring,
		&p.ManageStock,
		&p.StockQty,
		&p.InStock,
		&attrs,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &p.Attributes); err != nil {
			return nil, err
		}
	}
	return &p, nil
}
