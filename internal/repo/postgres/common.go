package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/prodline-labs/prodline-go/internal/domain"
	pg "github.com/prodline-labs/prodline-go/internal/platform/postgres"
	"github.com/prodline-labs/prodline-go/internal/repo"
)

// DB is the query surface shared by *sql.DB, *sql.Conn and *sql.Tx.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Store implements repo.Store against a pool or a transaction.
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

func (s *Store) ready() error {
	if s == nil || s.db == nil {
		return errors.New("postgres store not initialized")
	}
	return nil
}

// Transactor runs repo.Store work inside a transaction on one pooled
// connection.
type Transactor struct {
	pool pg.Conner
}

func NewTransactor(pool pg.Conner) *Transactor {
	return &Transactor{pool: pool}
}

func (t *Transactor) InTx(ctx context.Context, opts repo.TxOptions, fn func(ctx context.Context, s repo.Store) error) error {
	if t == nil || t.pool == nil {
		return errors.New("postgres transactor not initialized")
	}
	return pg.WithTx(ctx, t.pool, &sql.TxOptions{ReadOnly: opts.ReadOnly}, func(tx *sql.Tx) error {
		return fn(ctx, NewStore(tx))
	})
}

func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// mapError translates driver errors into repo sentinels.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return repo.ErrNotFound
	case pg.IsUniqueViolation(err):
		return fmt.Errorf("%w: %s: %w", repo.ErrDuplicate, pg.ConstraintName(err), err)
	case pg.IsForeignKeyViolation(err):
		ref := &repo.ReferenceError{Err: err}
		if fk, ok := foreignKeys[pg.ConstraintName(err)]; ok {
			ref.Table, ref.Column = fk[0], fk[1]
		}
		return ref
	default:
		return err
	}
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p           domain.Product
		serial      sql.NullString
		status      string
		completedAt sql.NullTime
	)
	if err := row.Scan(&p.ID, &serial, &p.LineID, &status, &p.CreatedAt, &completedAt); err != nil {
		return domain.Product{}, err
	}
	p.Serial = nullString(serial)
	p.Status = domain.ProductStatus(status)
	p.CreatedAt = p.CreatedAt.UTC()
	p.CompletedAt = nullTime(completedAt)
	return p, nil
}

func scanHistory(row rowScanner) (domain.StageHistory, error) {
	var (
		h          domain.StageHistory
		startedAt  sql.NullTime
		finishedAt sql.NullTime
	)
	if err := row.Scan(&h.ID, &h.ProductID, &h.StageID, &startedAt, &finishedAt); err != nil {
		return domain.StageHistory{}, err
	}
	h.StartedAt = nullTime(startedAt)
	h.FinishedAt = nullTime(finishedAt)
	return h, nil
}

func scanAlert(row rowScanner) (domain.Alert, error) {
	var (
		a        domain.Alert
		stageID  sql.NullInt64
		closedAt sql.NullTime
		status   string
	)
	if err := row.Scan(&a.ID, &a.LineID, &stageID, &a.Description, &a.OpenedAt, &closedAt, &status); err != nil {
		return domain.Alert{}, err
	}
	a.StageID = nullInt64(stageID)
	a.OpenedAt = a.OpenedAt.UTC()
	a.ClosedAt = nullTime(closedAt)
	a.Status = domain.AlertStatus(status)
	return a, nil
}

func collect[T any](rows *sql.Rows, scan func(rowScanner) (T, error)) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
