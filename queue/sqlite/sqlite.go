package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/jirevwe/tilequeue/queue"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

const (
	driverName = "sqlite3_tilequeue"

	fileParams = "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate"
)

var (
	createQueue = `create table if not exists queue (
			id INTEGER not null primary key autoincrement,
			x INTEGER not null,
			y INTEGER not null,
			z INTEGER not null,
			preset TEXT not null check (preset <> ''),
			ts INTEGER not null
		) strict;`

	// uniq is the dedup key, only violations of it are swallowed on insert
	createUniqueIndex = `create unique index if not exists uniq on queue (z, x, y, preset);`

	insertItem = `insert into queue (x, y, z, preset, ts) values ($1, $2, $3, $4, $5)`

	selectRange = `select id, x, y, z, preset, ts from queue
		where z = $1 and (x between $2 and $3) and (y between $4 and $5) limit $6`

	// no order by: take hands out whichever row the engine finds first
	selectAnyId = `select id from queue limit 1`

	deleteById = `delete from queue where id = $1 returning id, x, y, z, preset, ts`

	countItems = `select count(*) from queue`

	deleteAll = `delete from queue`
)

// pragmas run on every new connection, PRAGMA only applies to the connection it ran on
var pragmas = []string{
	"PRAGMA journal_size_limit = 67108864;",
	"PRAGMA cache_size = 2000;",
}

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			for _, pragma := range pragmas {
				if _, err := conn.Exec(pragma, nil); err != nil {
					return fmt.Errorf("apply pragma %q: %w", pragma, err)
				}
			}
			return nil
		},
	})
}

// Sqlite is a queue.Queue stored in a single SQLite file or in memory
type Sqlite struct {
	logger *slog.Logger
	db     *sqlx.DB
	clock  queue.Clock
	closed atomic.Bool

	// anchor holds an in-memory database open while the pool swaps its connection
	anchor *sql.Conn
}

var _ queue.Queue = (*Sqlite)(nil)

type Option func(*Sqlite)

// WithClock overrides the clock used to stamp enqueued jobs
func WithClock(c queue.Clock) Option {
	return func(s *Sqlite) {
		s.clock = c
	}
}

// NewSqlite opens the store at location, creating the queue table on a fresh
// location. Pass queue.Memory for an ephemeral store.
func NewSqlite(location string, logger *slog.Logger, opts ...Option) (*Sqlite, error) {
	if location == "" {
		return nil, queue.ErrNoLocation
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}

	exists := locationExists(location)

	db, err := sqlx.Open(driverName, dsn(location))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	s := &Sqlite{db: db, logger: logger, clock: queue.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()
	if location == queue.Memory {
		// one working connection; the anchor keeps the shared memory database
		// alive if database/sql discards that connection
		db.SetMaxOpenConns(2)
		s.anchor, err = db.Conn(ctx)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("open sqlite db: %w", err)
		}
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, createQueue); err != nil {
			return fmt.Errorf("create queue table: %w", err)
		}

		if _, err := tx.ExecContext(ctx, createUniqueIndex); err != nil {
			return fmt.Errorf("create unique index: %w", err)
		}

		return nil
	})
	if err != nil {
		_ = s.closeDB()
		return nil, err
	}

	if exists {
		logger.Info("opened queue store", "location", location)
	} else {
		logger.Info("created queue store", "location", location)
	}

	return s, nil
}

func dsn(location string) string {
	if location == queue.Memory {
		// a private name per store, so two memory stores never share jobs
		return fmt.Sprintf("file:tilequeue_%s?mode=memory&cache=shared&_txlock=immediate", ulid.Make())
	}

	// the location may already be a file: URI carrying its own query
	sep := "?"
	if strings.Contains(location, "?") {
		sep = "&"
	}
	return location + sep + fileParams
}

func locationExists(location string) bool {
	if location == queue.Memory {
		return false
	}
	_, err := os.Stat(filePath(location))
	return err == nil
}

// filePath strips the file: scheme and query off a location
func filePath(location string) string {
	path, _, _ := strings.Cut(strings.TrimPrefix(location, "file:"), "?")
	return path
}

// Close releases the database handle, it is safe to call more than once
func (s *Sqlite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	return s.closeDB()
}

func (s *Sqlite) closeDB() error {
	if s.anchor != nil {
		_ = s.anchor.Close()
	}
	return s.db.Close()
}

func (s *Sqlite) ready() error {
	if s == nil || s.db == nil || s.closed.Load() {
		return queue.ErrNotReady
	}
	return nil
}

// Insert puts a job on the queue, a job that is already pending is left untouched
func (s *Sqlite) Insert(ctx context.Context, preset string, x, y, z int) error {
	if err := s.ready(); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		return s.insert(ctx, tx, preset, x, y, z)
	})
}

func (s *Sqlite) insert(ctx context.Context, ex sqlx.ExecerContext, preset string, x, y, z int) error {
	_, err := ex.ExecContext(ctx, insertItem, x, y, z, preset, s.clock.Now().UnixMilli())
	if err != nil {
		if isDuplicateJob(err) {
			s.logger.Debug("job is already queued", "preset", preset, "x", x, "y", y, "z", z)
			return nil
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// isDuplicateJob reports whether err is a violation of the dedup index
func isDuplicateJob(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// Batch opens a transaction, the returned handle owns it until Commit or Rollback.
// If ctx is cancelled before then the transaction is rolled back.
func (s *Sqlite) Batch(ctx context.Context) (queue.Batch, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot start tx: %w", err)
	}

	return &batch{store: s, tx: tx}, nil
}

// Select reads the pending jobs at zoom z whose x and y fall inside xr and yr.
// Rows come back in no particular order.
func (s *Sqlite) Select(ctx context.Context, z int, xr, yr queue.Range, opts *queue.SelectOptions) ([]queue.QueueItem, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	items := []queue.QueueItem{}
	err := s.db.SelectContext(ctx, &items, selectRange, z, xr.Min, xr.Max, yr.Min, yr.Max, opts.LimitOrDefault())
	if err != nil {
		return nil, fmt.Errorf("select jobs: %w", err)
	}

	return items, nil
}

// Take removes one pending job and returns it. The job is not the oldest one,
// it is whichever row the engine reads first. An empty queue returns nil, nil.
func (s *Sqlite) Take(ctx context.Context) (item *queue.QueueItem, err error) {
	if err = s.ready(); err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		var rowId int64
		if getErr := tx.GetContext(ctx, &rowId, selectAnyId); getErr != nil {
			if errors.Is(getErr, sql.ErrNoRows) {
				// nothing to take
				return nil
			}
			return getErr
		}

		var taken queue.QueueItem
		if scanErr := tx.QueryRowxContext(ctx, deleteById, rowId).StructScan(&taken); scanErr != nil {
			return scanErr
		}

		item = &taken
		return nil
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// Length counts the pending jobs. It is a snapshot, concurrent writers may change it right away.
func (s *Sqlite) Length(ctx context.Context) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.GetContext(ctx, &count, countItems); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}

	return count, nil
}

// Reset deletes every pending job
func (s *Sqlite) Reset(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, deleteAll)
		return err
	})
}

func (s *Sqlite) inTx(ctx context.Context, cb func(*sqlx.Tx) error) (err error) {
	tx, beginErr := s.db.BeginTxx(ctx, nil)
	if beginErr != nil {
		return fmt.Errorf("cannot start tx: %w", beginErr)
	}

	defer func() {
		if rec := recover(); rec != nil {
			_ = rollback(tx, nil)
			panic(rec)
		}
	}()

	if err = cb(tx); err != nil {
		return rollback(tx, err)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("cannot commit tx: %w", commitErr)
	}

	return nil
}

func rollback(tx *sqlx.Tx, err error) error {
	if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
		return fmt.Errorf("cannot roll back tx after error (tx error: %v), original error: %w", rollbackErr, err)
	}
	return err
}
