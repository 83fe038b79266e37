package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vsbridge/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) GetByCode(ctx context.Context, code string) (*domain.Store, error) {
	const q = `
SELECT id::text, code, name, base_currency, created_at
FROM stores
WHERE code = $1
`
	var s domain.Store
	err := r.pool.QueryRow(ctx, q, code).Scan(&s.ID, &s.Code, &s.Name, &s.BaseCurrency, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresRepo) Ensure(ctx context.Context, store domain.Store) (*domain.Store, error) {
	const q = `
INSERT INTO stores (code, name, base_currency)
VALUES ($1, $2, $3)
ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, base_currency = EXCLUDED.base_currency
RETURNING id::text, code, name, base_currency, created_at
`
	var out domain.Store
	err := r.pool.QueryRow(ctx, q, store.Code, store.Name, store.BaseCurrency).Scan(
		&out.ID,
		&out.Code,
		&out.Name,
		&out.BaseCurrency,
		&out.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
