// Package postgres implements a Postgres-backed capture store.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/vshulcz/netstats/internal/domain"
	"github.com/vshulcz/netstats/internal/misc"
	"github.com/vshulcz/netstats/internal/ports"
)

// Store persists captures in Postgres with retryable operations.
type Store struct {
	db *sql.DB
}

var (
	_ ports.CaptureStore    = (*Store)(nil)
	_ ports.CaptureReplayer = (*Store)(nil)
)

var retryablePGCodes = map[string]struct{}{
	pgerrcode.ConnectionException:                           {},
	pgerrcode.ConnectionDoesNotExist:                        {},
	pgerrcode.ConnectionFailure:                             {},
	pgerrcode.SQLClientUnableToEstablishSQLConnection:       {},
	pgerrcode.SQLServerRejectedEstablishmentOfSQLConnection: {},
	pgerrcode.TransactionResolutionUnknown:                  {},
	pgerrcode.ProtocolViolation:                             {},
	pgerrcode.SerializationFailure:                          {},
	pgerrcode.DeadlockDetected:                              {},
	pgerrcode.LockNotAvailable:                              {},
	pgerrcode.TooManyConnections:                            {},
	pgerrcode.AdminShutdown:                                 {},
	pgerrcode.CrashShutdown:                                 {},
	pgerrcode.CannotConnectNow:                              {},
	pgerrcode.QueryCanceled:                                 {},
}

const (
	qInsert = `
INSERT INTO captures (received_at, session_id, connection_id, metric_count, size, frame)
VALUES ($1, $2, $3, $4, $5, $6);`
	qRecent = `
SELECT received_at, session_id, connection_id, metric_count, size, frame
FROM captures ORDER BY id DESC LIMIT $1;`
	qAll = `
SELECT received_at, session_id, connection_id, metric_count, size, frame
FROM captures ORDER BY id;`
)

// New returns a Postgres-backed capture store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Save inserts one capture row.
func (s *Store) Save(ctx context.Context, c domain.Capture) error {
	op := func() error {
		_, err := s.db.ExecContext(ctx, qInsert,
			c.ReceivedAt.UTC(), c.SessionID, int64(c.ConnectionID), c.MetricCount, len(c.Frame), c.Frame)
		return err
	}
	return misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op)
}

// Recent returns up to limit of the newest captures, oldest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.Capture, error) {
	if limit <= 0 {
		return s.all(ctx)
	}
	out, err := misc.RetryValue(ctx, misc.DefaultBackoff, isRetryablePG, func() ([]domain.Capture, error) {
		return s.query(ctx, qRecent, limit)
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

// Replay streams every stored capture in insertion order.
func (s *Store) Replay(ctx context.Context, fn func(domain.Capture) error) error {
	all, err := s.all(ctx)
	if err != nil {
		return err
	}
	for _, c := range all {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) all(ctx context.Context) ([]domain.Capture, error) {
	return misc.RetryValue(ctx, misc.DefaultBackoff, isRetryablePG, func() ([]domain.Capture, error) {
		return s.query(ctx, qAll)
	})
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]domain.Capture, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanCaptures(rows)
}

func scanCaptures(rows *sql.Rows) ([]domain.Capture, error) {
	defer func() {
		_ = rows.Close()
	}()
	var out []domain.Capture
	for rows.Next() {
		var (
			c    domain.Capture
			conn int64
		)
		if err := rows.Scan(&c.ReceivedAt, &c.SessionID, &conn, &c.MetricCount, &c.Size, &c.Frame); err != nil {
			return nil, err
		}
		c.ConnectionID = uint64(conn)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Ping verifies the database connection using a short-lived context.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return domain.ErrStoreNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	op := func() error {
		return s.db.PingContext(ctx)
	}
	return misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op)
}

// IsRetryable reports whether the error should trigger a retry according to Postgres semantics.
func IsRetryable(err error) bool {
	return isRetryablePG(err)
}

func isRetryablePG(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var pqe *pq.Error
	if errors.As(err, &pqe) {
		return isRetryablePGCode(string(pqe.Code))
	}
	return false
}

func isRetryablePGCode(code string) bool {
	if _, ok := retryablePGCodes[code]; ok {
		return true
	}
	return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "40")
}
