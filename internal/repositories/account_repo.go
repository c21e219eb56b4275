package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/authcore/internal/models"
)

const accountColumns = `id, username, email, password_hash, full_name, profile_bio,
	created_at, last_login, is_active, is_verified`

// querier is the part of *pgxpool.Pool the repository needs.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresAccountRepository struct {
	db querier
}

func NewPostgresAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: pool}
}

func (r *PostgresAccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `INSERT INTO accounts (username, email, password_hash, full_name, profile_bio, created_at, is_active, is_verified)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`

	var id uuid.UUID
	err := r.db.QueryRow(ctx, query,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.FullName,
		account.ProfileBio,
		account.CreatedAt,
		account.IsActive,
		account.IsVerified,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	account.ID = id.String()
	return nil
}

func (r *PostgresAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.getOne(ctx, query, accountID)
}

func (r *PostgresAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1 ORDER BY created_at LIMIT 1`
	return r.getOne(ctx, query, email)
}

func (r *PostgresAccountRepository) GetByUsernameOrEmail(ctx context.Context, identifier string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
	          WHERE username = $1 OR email = $1
	          ORDER BY created_at LIMIT 1`
	return r.getOne(ctx, query, identifier)
}

func (r *PostgresAccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}

	query := `UPDATE accounts SET last_login = GREATEST(COALESCE(last_login, $2), $2) WHERE id = $1`

	result, err := r.db.Exec(ctx, query, accountID, at)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresAccountRepository) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	// A nil field keeps the stored value.
	query := `UPDATE accounts
	          SET full_name = COALESCE($2, full_name),
	              profile_bio = COALESCE($3, profile_bio)
	          WHERE id = $1
	          RETURNING ` + accountColumns

	return r.getOne(ctx, query, accountID, update.FullName, update.ProfileBio)
}

func (r *PostgresAccountRepository) getOne(ctx context.Context, query string, args ...any) (*models.Account, error) {
	var (
		account models.Account
		id      uuid.UUID
	)
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&id,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.FullName,
		&account.ProfileBio,
		&account.CreatedAt,
		&account.LastLogin,
		&account.IsActive,
		&account.IsVerified,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	account.ID = id.String()
	return &account, nil
}
