package database

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultMaxAttempts bounds how many times a serializable transaction is
// re-run after a serialization conflict before giving up.
const DefaultMaxAttempts = 20

// defaultRetryDelay caps the jittered sleep between attempts.
const defaultRetryDelay = 10 * time.Millisecond

// ErrTxAborted is returned when a transaction still conflicts after the
// maximum number of attempts.
var ErrTxAborted = errors.New("transaction aborted: too many serialization conflicts")

// SQLSTATE codes Postgres uses to report that concurrent serializable
// transactions cannot all be honored.
const (
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

type txBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// TxRunner executes units of work inside SERIALIZABLE transactions,
// retrying the whole unit from scratch when the database reports a
// serialization conflict. Any other error — including business-rule errors
// returned by the unit of work — rolls back once and is returned unchanged.
type TxRunner struct {
	db          txBeginner
	maxAttempts int
	retryDelay  time.Duration
}

// NewTxRunner creates a TxRunner with the default attempt bound.
func NewTxRunner(db txBeginner) *TxRunner {
	return &TxRunner{
		db:          db,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
	}
}

// InTx runs fn inside a serializable transaction. fn receives a Store bound
// to the transaction; all reads and writes it performs commit or roll back
// atomically. On a serialization conflict the transaction is rolled back
// and fn is re-run from scratch, so fn must repeat its reads rather than
// reuse results from a previous attempt. After maxAttempts conflicts,
// ErrTxAborted is returned.
func (r *TxRunner) InTx(ctx context.Context, fn func(store Store) error) error {
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt < r.maxAttempts {
			if err := r.backoff(ctx); err != nil {
				return err
			}
		}
	}
	return ErrTxAborted
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(store Store) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback is a no-op once the transaction has committed, so every
	// early return below still releases the transaction.
	defer tx.Rollback(ctx)

	if err := fn(New(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *TxRunner) backoff(ctx context.Context) error {
	delay := time.Duration(rand.Int63n(int64(r.retryDelay))) + r.retryDelay/2
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// retryable reports whether err is a serialization conflict. Everything
// else — business failures, connection loss, bad SQL — is not retried.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == serializationFailure || pgErr.Code == deadlockDetected
}
