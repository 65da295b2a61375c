package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/GriffinCanCode/homescreen/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/homescreen/internal/shared/id"
	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

var (
	ErrClosed      = errors.New("store is closed")
	ErrCircuitOpen = resilience.ErrCircuitOpen
	ErrProbing     = resilience.ErrTooManyRequests
)

// DefaultCommitIdle is the quiet period after the last write before the held
// transaction is committed.
const DefaultCommitIdle = 2 * time.Second

const createTable = `
CREATE TABLE IF NOT EXISTS items (
	id INTEGER PRIMARY KEY,
	type INTEGER NOT NULL,
	app_id TEXT NOT NULL DEFAULT '',
	first_child_id INTEGER NOT NULL DEFAULT -1,
	next_sibling_id INTEGER NOT NULL DEFAULT -1,
	x INTEGER NOT NULL DEFAULT 0,
	y INTEGER NOT NULL DEFAULT 0,
	w INTEGER NOT NULL DEFAULT 0,
	h INTEGER NOT NULL DEFAULT 0,
	content TEXT
)`

const upsertRow = `
INSERT INTO items (id, type, app_id, first_child_id, next_sibling_id, x, y, w, h, content)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	type = excluded.type,
	app_id = excluded.app_id,
	first_child_id = excluded.first_child_id,
	next_sibling_id = excluded.next_sibling_id,
	x = excluded.x, y = excluded.y, w = excluded.w, h = excluded.h,
	content = excluded.content`

const selectRows = `
SELECT id, type, app_id, first_child_id, next_sibling_id, x, y, w, h, content
FROM items ORDER BY id`

// Row is the flat, persisted form of one tree node.
type Row struct {
	ID          id.NodeID
	Type        types.ItemType
	AppID       string
	FirstChild  id.NodeID
	NextSibling id.NodeID
	X, Y, W, H  int
	Content     *string
}

// RootRow is the row seeded by CreateSchema.
func RootRow() Row {
	return Row{ID: id.RootID, Type: types.ItemRoot, FirstChild: id.None, NextSibling: id.None}
}

// Observer receives write and commit outcomes, typically for metrics.
type Observer interface {
	ObserveWrite(op string, err error)
	ObserveCommit(held time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveWrite(string, error)          {}
func (nopObserver) ObserveCommit(time.Duration, error) {}

// Options configures a Store.
type Options struct {
	Path       string
	CommitIdle time.Duration
	Scheduler  Scheduler
	Breaker    *resilience.Breaker
	Observer   Observer
	Logger     *zap.Logger
}

// Store is the write-through table behind the launcher tree. It keeps a
// single connection with one transaction held open across writes; the
// transaction is committed and the connection closed once no write has
// arrived for CommitIdle. Exactly one writer is assumed.
type Store struct {
	path      string
	idle      time.Duration
	scheduler Scheduler
	breaker   *resilience.Breaker
	observer  Observer
	logger    *zap.Logger

	mu      sync.Mutex
	db      *sql.DB
	tx      *sql.Tx
	txStart time.Time
	timer   Timer
	closed  bool
}

// Open prepares the database file and table. The connection it uses is
// closed again before returning.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("store path is empty")
	}
	if opts.CommitIdle <= 0 {
		opts.CommitIdle = DefaultCommitIdle
	}
	if opts.Scheduler == nil {
		opts.Scheduler = WallClock
	}
	if opts.Breaker == nil {
		opts.Breaker = resilience.New("store", resilience.Settings{})
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	s := &Store{
		path:      opts.Path,
		idle:      opts.CommitIdle,
		scheduler: opts.Scheduler,
		breaker:   opts.Breaker,
		observer:  opts.Observer,
		logger:    opts.Logger.Named("store"),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.conn(ctx); err != nil {
		return nil, err
	}
	s.closeConn()
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CreateSchema empties the table and seeds the root row.
func (s *Store) CreateSchema(ctx context.Context) error {
	return s.write(ctx, "create_schema", func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM items"); err != nil {
			return err
		}
		return upsert(ctx, tx, RootRow())
	})
}

// Upsert writes one row.
func (s *Store) Upsert(ctx context.Context, row Row) error {
	return s.write(ctx, "upsert", func(ctx context.Context, tx *sql.Tx) error {
		return upsert(ctx, tx, row)
	})
}

// Delete removes one row. Deleting a missing row is not an error.
func (s *Store) Delete(ctx context.Context, nid id.NodeID) error {
	return s.write(ctx, "delete", func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM items WHERE id = ?", int64(nid))
		return err
	})
}

// ReplaceAll rewrites the whole table from rows. If any row fails the table
// keeps its previous content.
func (s *Store) ReplaceAll(ctx context.Context, rows []Row) error {
	return s.write(ctx, "replace_all", func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM items"); err != nil {
			return err
		}
		for _, r := range rows {
			if err := upsert(ctx, tx, r); err != nil {
				return fmt.Errorf("row %s: %w", r.ID, err)
			}
		}
		return nil
	})
}

// LoadAll returns every row ordered by id, including writes not yet
// committed.
func (s *Store) LoadAll(ctx context.Context) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	var q interface {
		QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	}
	if s.tx != nil {
		q = s.tx
	} else {
		db, err := s.conn(ctx)
		if err != nil {
			return nil, err
		}
		defer s.closeConn()
		q = db
	}

	rows, err := q.QueryContext(ctx, selectRows)
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r                      Row
			nid, first, next, kind int64
			content                sql.NullString
		)
		if err := rows.Scan(&nid, &kind, &r.AppID, &first, &next, &r.X, &r.Y, &r.W, &r.H, &content); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.ID, r.FirstChild, r.NextSibling = id.NodeID(nid), id.NodeID(first), id.NodeID(next)
		r.Type = types.ItemType(kind)
		if content.Valid {
			c := content.String
			r.Content = &c
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Health reports the state of the write breaker.
func (s *Store) Health() resilience.Stats {
	return s.breaker.Stats()
}

// Pending reports whether a transaction is being held open.
func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx != nil
}

// Flush commits the held transaction now and closes the connection.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimer()
	return s.commit()
}

// Close cancels the idle timer, commits pending writes and refuses further
// use of the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.stopTimer()
	return s.commit()
}

func (s *Store) write(ctx context.Context, op string, fn func(ctx context.Context, tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	err := s.breaker.Do(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Once started, a write runs to completion: an interrupted statement
		// would take the whole held transaction down with it.
		ctx := context.WithoutCancel(ctx)
		tx, err := s.begin(ctx)
		if err != nil {
			return err
		}
		return s.savepoint(ctx, tx, func() error { return fn(ctx, tx) })
	})
	s.observer.ObserveWrite(op, err)

	if s.tx != nil {
		s.resetTimer()
	}
	if err != nil {
		s.logger.Warn("store write failed",
			zap.String("op", op),
			zap.String("breaker", s.breaker.State().String()),
			zap.Error(err))
		return fmt.Errorf("store %s: %w", op, err)
	}
	return nil
}

// savepoint runs fn so that a failure undoes its statements and nothing
// else in the held transaction. If the rollback itself fails the held
// transaction is abandoned rather than committed half-applied.
func (s *Store) savepoint(ctx context.Context, tx *sql.Tx, fn func() error) error {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT store_write"); err != nil {
		s.abort(err)
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := fn(); err != nil {
		if _, rerr := tx.ExecContext(ctx, "ROLLBACK TO store_write"); rerr != nil {
			s.abort(rerr)
			return errors.Join(err, fmt.Errorf("rollback: %w", rerr))
		}
		if _, rerr := tx.ExecContext(ctx, "RELEASE store_write"); rerr != nil {
			s.abort(rerr)
			return errors.Join(err, fmt.Errorf("release: %w", rerr))
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, "RELEASE store_write"); err != nil {
		s.abort(err)
		return fmt.Errorf("release: %w", err)
	}
	return nil
}

// abort rolls back the held transaction, dropping every write since the
// last commit, and closes the connection.
func (s *Store) abort(cause error) {
	if s.tx == nil {
		return
	}
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.logger.Warn("rollback failed", zap.Error(err))
	}
	s.logger.Error("held transaction abandoned",
		zap.Duration("held", time.Since(s.txStart)),
		zap.Error(cause))
	s.tx = nil
	s.closeConn()
}

func (s *Store) conn(ctx context.Context) (*sql.DB, error) {
	if s.db != nil {
		return s.db, nil
	}

	dsn := "file:" + s.path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	s.db = db
	return db, nil
}

func (s *Store) begin(ctx context.Context) (*sql.Tx, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	// The transaction outlives the request that opened it.
	tx, err := db.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	s.tx = tx
	s.txStart = time.Now()
	s.logger.Debug("transaction opened")
	return tx, nil
}

func (s *Store) resetTimer() {
	s.stopTimer()
	s.timer = s.scheduler.AfterFunc(s.idle, s.onIdle)
}

func (s *Store) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Store) onIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timer = nil
	if err := s.commit(); err != nil {
		s.logger.Warn("idle commit failed", zap.Error(err))
	}
}

func (s *Store) commit() error {
	var err error
	if s.tx != nil {
		err = s.tx.Commit()
		held := time.Since(s.txStart)
		s.observer.ObserveCommit(held, err)
		s.logger.Debug("transaction committed", zap.Duration("held", held), zap.Error(err))
		s.tx = nil
	}
	s.closeConn()
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) closeConn() {
	if s.db == nil {
		return
	}
	if err := s.db.Close(); err != nil {
		s.logger.Warn("close database", zap.Error(err))
	}
	s.db = nil
}

func upsert(ctx context.Context, tx *sql.Tx, r Row) error {
	var content any
	if r.Content != nil {
		content = *r.Content
	}
	_, err := tx.ExecContext(ctx, upsertRow,
		int64(r.ID), int(r.Type), r.AppID, int64(r.FirstChild), int64(r.NextSibling),
		r.X, r.Y, r.W, r.H, content)
	return err
}
