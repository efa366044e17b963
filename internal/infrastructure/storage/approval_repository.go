package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"OpportunityScanner/internal/domain"
	"OpportunityScanner/internal/ports"
)

const priorityOrderExpr = `CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END DESC`

// ApprovalRepository persists approval items in Postgres. Every transition
// is a conditional UPDATE on status='pending' checked via affected rows, so
// exactly one terminal transition per item ever succeeds.
type ApprovalRepository struct {
	db *sql.DB
}

var _ ports.ApprovalRepository = (*ApprovalRepository)(nil)

// NewApprovalRepository wires a sql.DB implementation.
func NewApprovalRepository(db *sql.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// Create inserts a pending item; a live natural key yields ErrDuplicate.
func (r *ApprovalRepository) Create(ctx context.Context, item domain.ApprovalItem) error {
	query := `INSERT INTO approval_items (
	              id, external_id, detecting_context, draft_text, status, priority,
	              created_at, expires_at, resolution_note, remote_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, '', '')
	          ON CONFLICT (external_id, detecting_context) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		item.ID.String(),
		item.Key.ExternalID,
		item.Key.Context,
		item.DraftText,
		string(item.Status),
		string(item.Priority),
		item.CreatedAt,
		item.ExpiresAt,
	)
	if err != nil {
		return &domain.StorageError{Op: "insert approval item", Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return &domain.StorageError{Op: "insert approval item", Err: err}
	}
	if affected == 0 {
		return domain.ErrDuplicate
	}
	return nil
}

// Get loads a single item by id.
func (r *ApprovalRepository) Get(ctx context.Context, id string) (domain.ApprovalItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, external_id, detecting_context, draft_text, status,
	       priority, created_at, expires_at, resolved_at, resolution_note, remote_id
	  FROM approval_items WHERE id = $1`, id)

	item, err := scanItem(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ApprovalItem{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ApprovalItem{}, &domain.StorageError{Op: "load approval item", Err: err}
	}
	return item, nil
}

// List returns items ordered by (priority desc, created_at desc), optionally
// filtered by status, detecting context, and priority.
func (r *ApprovalRepository) List(ctx context.Context, filter ports.ApprovalFilter) ([]domain.ApprovalItem, error) {
	builder := psql.Select("id", "external_id", "detecting_context", "draft_text", "status",
		"priority", "created_at", "expires_at", "resolved_at", "resolution_note", "remote_id").
		From("approval_items").
		OrderBy(priorityOrderExpr, "created_at DESC")

	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.Context != "" {
		builder = builder.Where(sq.Eq{"detecting_context": filter.Context})
	}
	if filter.Priority != "" {
		builder = builder.Where(sq.Eq{"priority": string(filter.Priority)})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, &domain.StorageError{Op: "build approval list query", Err: err}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "list approval items", Err: err}
	}
	defer rows.Close()

	var items []domain.ApprovalItem
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, &domain.StorageError{Op: "scan approval item", Err: err}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list approval items", Err: err}
	}
	return items, nil
}

// UpdateDraftIfPending replaces the draft text while the item is pending.
func (r *ApprovalRepository) UpdateDraftIfPending(ctx context.Context, id, text string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE approval_items SET draft_text = $2 WHERE id = $1 AND status = 'pending'`, id, text)
	if err != nil {
		return &domain.StorageError{Op: "update draft", Err: err}
	}
	return r.checkTransition(ctx, id, res)
}

// ResolveIfPending applies a terminal transition conditionally. A zero
// affected-row count means another resolution won; the caller gets the
// winning status wrapped in AlreadyResolvedError.
func (r *ApprovalRepository) ResolveIfPending(ctx context.Context, id string, to domain.ApprovalStatus, note, remoteID string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE approval_items
		    SET status = $2, resolved_at = $3, resolution_note = $4, remote_id = $5
		  WHERE id = $1 AND status = 'pending'`,
		id, string(to), now, note, remoteID)
	if err != nil {
		return &domain.StorageError{Op: "resolve approval item", Err: err}
	}
	return r.checkTransition(ctx, id, res)
}

func (r *ApprovalRepository) checkTransition(ctx context.Context, id string, res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return &domain.StorageError{Op: "check transition", Err: err}
	}
	if affected > 0 {
		return nil
	}

	var status string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM approval_items WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return &domain.StorageError{Op: "check transition", Err: err}
	}
	return &domain.AlreadyResolvedError{Status: domain.ApprovalStatus(status)}
}

// SweepExpired bulk-expires timed-out pending items.
func (r *ApprovalRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE approval_items
		    SET status = 'expired', resolved_at = $1, resolution_note = 'ttl elapsed'
		  WHERE status = 'pending' AND expires_at <= $1`, now)
	if err != nil {
		return 0, &domain.StorageError{Op: "sweep approval items", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, &domain.StorageError{Op: "sweep approval items", Err: err}
	}
	return affected, nil
}

// StatusCounts summarizes the queue by status.
func (r *ApprovalRepository) StatusCounts(ctx context.Context) (map[domain.ApprovalStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM approval_items GROUP BY status`)
	if err != nil {
		return nil, &domain.StorageError{Op: "count approval items", Err: err}
	}
	defer rows.Close()

	counts := map[domain.ApprovalStatus]int64{}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, &domain.StorageError{Op: "count approval items", Err: err}
		}
		counts[domain.ApprovalStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "count approval items", Err: err}
	}
	return counts, nil
}

func scanItem(scan func(dest ...any) error) (domain.ApprovalItem, error) {
	var (
		item       domain.ApprovalItem
		rawID      string
		status     string
		priority   string
		resolvedAt sql.NullTime
	)

	err := scan(&rawID, &item.Key.ExternalID, &item.Key.Context, &item.DraftText, &status,
		&priority, &item.CreatedAt, &item.ExpiresAt, &resolvedAt, &item.ResolutionNote, &item.RemoteID)
	if err != nil {
		return domain.ApprovalItem{}, err
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return domain.ApprovalItem{}, err
	}

	item.ID = id
	item.Status = domain.ApprovalStatus(status)
	item.Priority = domain.Priority(priority)
	if resolvedAt.Valid {
		item.ResolvedAt = &resolvedAt.Time
	}
	return item, nil
}
