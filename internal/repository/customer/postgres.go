package customer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

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

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *log.Entry) Repository {
	if logger == nil {
		logger = logging.Discard()
	}
	return &postgresRepo{pool: pool, logger: logger.WithField("component", "customer-repo")}
}

const customerColumns = `id::text, store_id::text, email, password_hash, firstname, lastname, addresses, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	addrJSON, err := marshalAddresses(c.Addresses)
	if err != nil {
		return nil, err
	}
	q := `
INSERT INTO customers (store_id, email, password_hash, firstname, lastname, addresses)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + customerColumns
	return r.scanCustomer(r.pool.QueryRow(ctx, q,
		c.StoreID,
		strings.ToLower(c.Email),
		c.PasswordHash,
		c.Firstname,
		c.Lastname,
		addrJSON,
	))
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	q := `SELECT ` + customerColumns + ` FROM customers WHERE lower(email) = lower($1) LIMIT 1`
	return r.scanCustomer(r.pool.QueryRow(ctx, q, email))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	q := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 LIMIT 1`
	return r.scanCustomer(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) Update(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	addrJSON, err := marshalAddresses(c.Addresses)
	if err != nil {
		return nil, err
	}
	q := `
UPDATE customers
SET email = $2, firstname = $3, lastname = $4, addresses = $5, updated_at = NOW()
WHERE id = $1
RETURNING ` + customerColumns
	return r.scanCustomer(r.pool.QueryRow(ctx, q, c.ID, strings.ToLower(c.Email), c.Firstname, c.Lastname, addrJSON))
}

func (r *postgresRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE customers SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	if err != nil {
		r.logger.WithError(err).WithField("customer_id", id).Error("update password failed")
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	var addrJSON []byte
	err := row.Scan(
		&c.ID,
		&c.StoreID,
		&c.Email,
		&c.PasswordHash,
		&c.Firstname,
		&c.Lastname,
		&addrJSON,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.WithError(err).Error("scan customer failed")
		return nil, err
	}
	if len(addrJSON) > 0 {
		if err := json.Unmarshal(addrJSON, &c.Addresses); err != nil {
			r.logger.WithError(err).WithField("customer_id", c.ID).Error("decode addresses failed")
			return nil, err
		}
	}
	return &c, nil
}

func marshalAddresses(addrs []domain.Address) ([]byte, error) {
	if addrs == nil {
		addrs = []domain.Address{}
	}
	return json.Marshal(addrs)
}
