package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturapro/facturapro/internal/platform/db"
	"github.com/facturapro/facturapro/internal/platform/httpx"
)

// ListFilter narrows an owner's invoice list.
type ListFilter struct {
	// Search matches the company name (case-insensitive) or an id prefix.
	Search string
	Limit  int
	Offset int
}

// Repository is the persistence collaborator of the invoice service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, rec Record) (uuid.UUID, time.Time, error)
	Get(ctx context.Context, id uuid.UUID) (Record, error)
	ListByOwner(ctx context.Context, ownerID string, filter ListFilter) ([]Record, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository returns a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likeEscape makes s match literally inside a LIKE pattern.
func likeEscape(s string) string {
	return likeEscaper.Replace(s)
}

const selectColumns = `
	SELECT id, user_id, template_id, color, currency, company_name,
	       client_info, items, totals, notes, created_at
	FROM invoices`

func (r *repository) Create(ctx context.Context, rec Record) (uuid.UUID, time.Time, error) {
	clientInfo, items, totals, err := encodeJSONColumns(rec)
	if err != nil {
		return uuid.Nil, time.Time{}, err
	}

	var id uuid.UUID
	var createdAt time.Time
	err = r.db.QueryRow(ctx, `
		INSERT INTO invoices (user_id, template_id, color, currency, company_name,
		                      client_info, items, totals, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		rec.OwnerID, rec.TemplateID, rec.Color, rec.Currency, rec.CompanyName,
		clientInfo, items, totals, pgtype.Text{String: rec.Notes, Valid: rec.Notes != ""},
	).Scan(&id, &createdAt)
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("insert invoice: %w", err)
	}
	return id, createdAt, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	row := r.db.QueryRow(ctx, selectColumns+` WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, httpx.ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID string, filter ListFilter) ([]Record, error) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{ownerID}

	if q := strings.TrimSpace(filter.Search); q != "" {
		q = likeEscape(q)
		args = append(args, "%"+q+"%", strings.ToLower(q)+"%")
		conditions = append(conditions, fmt.Sprintf(`(company_name ILIKE $%d ESCAPE '\' OR id::text LIKE $%d ESCAPE '\')`, len(args)-1, len(args)))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, max(filter.Offset, 0))

	query := fmt.Sprintf(`%s
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		selectColumns, strings.Join(conditions, " AND "), len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var clientInfo, items, totals []byte
	var notes pgtype.Text
	err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.TemplateID, &rec.Color, &rec.Currency, &rec.CompanyName,
		&clientInfo, &items, &totals, &notes, &rec.CreatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	if notes.Valid {
		rec.Notes = notes.String
	}
	if len(clientInfo) > 0 {
		if err := json.Unmarshal(clientInfo, &rec.ClientInfo); err != nil {
			return Record{}, fmt.Errorf("decode client_info: %w", err)
		}
	}
	if err := json.Unmarshal(items, &rec.Items); err != nil {
		return Record{}, fmt.Errorf("decode items: %w", err)
	}
	if len(totals) > 0 {
		if err := json.Unmarshal(totals, &rec.Totals); err != nil {
			return Record{}, fmt.Errorf("decode totals: %w", err)
		}
	}
	return rec, nil
}

func encodeJSONColumns(rec Record) (clientInfo, items, totals []byte, err error) {
	if clientInfo, err = json.Marshal(rec.ClientInfo); err != nil {
		return nil, nil, nil, fmt.Errorf("encode client_info: %w", err)
	}
	lineItems := rec.Items
	if lineItems == nil {
		lineItems = []LineItem{}
	}
	if items, err = json.Marshal(lineItems); err != nil {
		return nil, nil, nil, fmt.Errorf("encode items: %w", err)
	}
	if totals, err = json.Marshal(rec.Totals); err != nil {
		return nil, nil, nil, fmt.Errorf("encode totals: %w", err)
	}
	return clientInfo, items, totals, nil
}
