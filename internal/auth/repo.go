package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturapro/facturapro/internal/platform/httpx"
	"github.com/facturapro/facturapro/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	CreateUser(ctx context.Context, email, passwordHash string, profile Profile) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, profile Profile) error
	CreateSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db dbtx
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

const userColumns = `id, email, password_hash, company_name, rtn, phone, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var (
		u     User
		rtn   pgtype.Text
		phone pgtype.Text
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CompanyName, &rtn, &phone, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	u.RTN, u.Phone = rtn.String, phone.String
	return &u, nil
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// CreateUser inserts an account. A taken email yields httpx.ErrDuplicate.
func (r *PGRepository) CreateUser(ctx context.Context, email, passwordHash string, profile Profile) (*User, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, company_name, rtn, phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		email, passwordHash, profile.CompanyName,
		pgtype.Text{String: profile.RTN, Valid: profile.RTN != ""},
		pgtype.Text{String: profile.Phone, Valid: profile.Phone != ""},
	)
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: email already registered", httpx.ErrDuplicate)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// UpdateProfile replaces the company details of an account.
func (r *PGRepository) UpdateProfile(ctx context.Context, id uuid.UUID, profile Profile) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET company_name = $2, rtn = $3, phone = $4, updated_at = now()
		WHERE id = $1`,
		id, profile.CompanyName,
		pgtype.Text{String: profile.RTN, Valid: profile.RTN != ""},
		pgtype.Text{String: profile.Phone, Valid: profile.Phone != ""},
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_sessions (id, user_id, created_at, expires_at, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, userID, time.Now().UTC(), expiresAt.UTC(),
		pgtype.Text{String: ip, Valid: ip != ""},
		pgtype.Text{String: ua, Valid: ua != ""},
	)
	return err
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM user_sessions WHERE id = $1`, id)
	return err
}

var _ Repository = (*PGRepository)(nil)
