package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/affiliateops/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ OperatorStore = (*Repository)(nil)

// Create inserts an operator. A duplicate email yields ErrDuplicateEmail.
func (r *Repository) Create(ctx context.Context, o *models.Operator) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO operators (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, o.ID, o.Email, o.PasswordHash).Scan(&o.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateEmail
	}
	return err
}

// GetByEmail returns nil, nil when no operator has the email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Operator, error) {
	var o models.Operator
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at FROM operators WHERE email = $1
	`, email).Scan(&o.ID, &o.Email, &o.PasswordHash, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}
