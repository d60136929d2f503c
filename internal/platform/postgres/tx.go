package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Conner hands out a dedicated pool connection. *sql.DB satisfies it.
type Conner interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// WithTx acquires one connection from the pool, runs fn inside a transaction
// on it and releases the connection on every exit path. fn's error (or a
// panic) rolls the transaction back; otherwise it is committed.
func WithTx(ctx context.Context, pool Conner, opts *sql.TxOptions, fn func(tx *sql.Tx) error) (err error) {
	if pool == nil {
		return errors.New("postgres: pool is required")
	}
	conn, err := pool.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer func() { _ = conn.Close() }()

	tx, err := conn.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && err != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}
