package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/alumnirel/eventlock/internal/model"
)

// LockRepo is the MySQL implementation of LockStore backed by the
// event_locks table.  All timestamps are written and compared in UTC.
type LockRepo struct {
	db *sql.DB
}

// NewLockRepo returns a LockRepo bound to the provided database.
func NewLockRepo(db *sql.DB) *LockRepo { return &LockRepo{db: db} }

const lockColumns = `id, token, event_id, created_by, expires_at, is_revoked,
	usage_count, max_usage, last_accessed_at, created_at, updated_at`

// Create inserts rec.  A zero CreatedAt is set to the current time;
// UpdatedAt starts equal to it.
func (r *LockRepo) Create(ctx context.Context, rec *model.LockRecord) error {
	var maxUsage sql.NullInt64
	if rec.MaxUsage != nil {
		maxUsage = sql.NullInt64{Int64: int64(*rec.MaxUsage), Valid: true}
	}
	created := rec.CreatedAt.UTC()
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_locks (id, token, event_id, created_by, expires_at, max_usage, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Token, rec.EventID, rec.CreatedBy, rec.ExpiresAt.UTC(), maxUsage, created, created)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrDuplicateToken
		}
		return err
	}
	rec.CreatedAt, rec.UpdatedAt = created, created
	return nil
}

// GetByToken fetches a record by its bearer token.
func (r *LockRepo) GetByToken(ctx context.Context, token string) (*model.LockRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+lockColumns+" FROM event_locks WHERE token = ? LIMIT 1", token)
	rec, err := scanLock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLockNotFound
	}
	return rec, err
}

// ConsumeIfValid performs the check-and-increment as one conditional
// UPDATE so two concurrent verifications can never both take the last
// unit under the cap.  LAST_INSERT_ID(expr) hands the new count back on
// the same statement.
func (r *LockRepo) ConsumeIfValid(ctx context.Context, token string, now time.Time) (int, bool, error) {
	now = now.UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE event_locks
		    SET usage_count = LAST_INSERT_ID(usage_count + 1), last_accessed_at = ?, updated_at = ?
		  WHERE token = ?
		    AND is_revoked = 0
		    AND expires_at > ?
		    AND (max_usage IS NULL OR usage_count < max_usage)`,
		now, now, token, now)
	if err != nil {
		return 0, false, err
	}
	n, err := res.RowsAffected()
	if err != nil || n != 1 {
		return 0, false, err
	}
	usage, err := res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	return int(usage), true, nil
}

// Revoke sets is_revoked.  RowsAffected cannot distinguish "already
// revoked" from "missing" when the flag does not change, so a miss is
// confirmed with a lookup.
func (r *LockRepo) Revoke(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE event_locks SET is_revoked = 1, updated_at = UTC_TIMESTAMP() WHERE id = ? AND is_revoked = 0", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 1 {
		return nil
	}
	var exists int
	err = r.db.QueryRowContext(ctx, "SELECT 1 FROM event_locks WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrLockNotFound
	}
	return err
}

// ListActive returns all non-revoked records ordered newest first.
func (r *LockRepo) ListActive(ctx context.Context) ([]*model.LockRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+lockColumns+" FROM event_locks WHERE is_revoked = 0 ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.LockRecord
	for rows.Next() {
		rec, err := scanLock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLock(s rowScanner) (*model.LockRecord, error) {
	var (
		rec          model.LockRecord
		maxUsage     sql.NullInt64
		lastAccessed sql.NullTime
	)
	if err := s.Scan(&rec.ID, &rec.Token, &rec.EventID, &rec.CreatedBy, &rec.ExpiresAt,
		&rec.IsRevoked, &rec.UsageCount, &maxUsage, &lastAccessed, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if maxUsage.Valid {
		n := int(maxUsage.Int64)
		rec.MaxUsage = &n
	}
	if lastAccessed.Valid {
		t := lastAccessed.Time
		rec.LastAccessedAt = &t
	}
	return &rec, nil
}
