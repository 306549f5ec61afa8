package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jirevwe/tilequeue/queue"
	"github.com/jmoiron/sqlx"
)

// batch inserts jobs inside one transaction. A failed Insert leaves the
// transaction open; the caller decides whether to go on or roll back.
type batch struct {
	store *Sqlite
	tx    *sqlx.Tx

	mu   sync.Mutex
	done bool
}

func (b *batch) Insert(ctx context.Context, preset string, x, y, z int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return queue.ErrBatchDone
	}

	return b.store.insert(ctx, b.tx, preset, x, y, z)
}

func (b *batch) Commit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return queue.ErrBatchDone
	}
	b.done = true

	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("cannot commit tx: %w", err)
	}
	return nil
}

func (b *batch) Rollback() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return queue.ErrBatchDone
	}
	b.done = true

	// a cancelled context has already rolled the transaction back
	if err := b.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("cannot roll back tx: %w", err)
	}
	return nil
}
