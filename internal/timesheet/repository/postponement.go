package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/worktrack/timesheet-backend/pkg/database"
)

// PostponementRecord is one row of the append-only postponement ledger.
// Rows are never updated or deleted; the task's effective due date lives in
// the PMS, which the resolution recorder updates as a side effect.
type PostponementRecord struct {
	ID              string    `db:"id" json:"id"`
	TaskID          string    `db:"task_id" json:"taskId"`
	PreviousDueDate *string   `db:"previous_due_date" json:"previousDueDate,omitempty"`
	NewDueDate      string    `db:"new_due_date" json:"newDueDate"`
	Reason          string    `db:"reason" json:"reason"`
	PostponedBy     *string   `db:"postponed_by" json:"postponedBy,omitempty"`
	PostponedAt     time.Time `db:"postponed_at" json:"postponedAt"`
	PostponeCount   int       `db:"postpone_count" json:"postponeCount"`
}

// AcknowledgmentRecord is one row of the append-only acknowledgment ledger.
// Acknowledging never changes the task's due date; it is an audit trail of
// the decision to leave the lateness unresolved.
type AcknowledgmentRecord struct {
	ID             string    `db:"id" json:"id"`
	TaskID         string    `db:"task_id" json:"taskId"`
	AcknowledgedBy string    `db:"acknowledged_by" json:"acknowledgedBy"`
	AcknowledgedAt time.Time `db:"acknowledged_at" json:"acknowledgedAt"`
	ProjectCode    *string   `db:"project_code" json:"projectCode,omitempty"`
}

// PostponementRepository handles the resolution ledgers
type PostponementRepository struct {
	db *database.DB
}

// NewPostponementRepository creates a new postponement repository
func NewPostponementRepository(db *database.DB) *PostponementRepository {
	return &PostponementRepository{db: db}
}

// CreatePostponement appends a ledger row. The postpone count is computed
// from the existing rows inside the same transaction as the insert, so two
// concurrent postponements of one task cannot both claim the same count.
func (r *PostponementRepository) CreatePostponement(ctx context.Context, rec *PostponementRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var priorCount int
		countQuery := `SELECT COUNT(*) FROM task_postponements WHERE task_id = $1`
		if err := tx.GetContext(ctx, &priorCount, countQuery, rec.TaskID); err != nil {
			return err
		}
		rec.PostponeCount = priorCount + 1

		insertQuery := `
			INSERT INTO task_postponements (
				id, task_id, previous_due_date, new_due_date, reason,
				postponed_by, postpone_count
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING postponed_at
		`
		return tx.QueryRowxContext(ctx, insertQuery,
			rec.ID, rec.TaskID, rec.PreviousDueDate, rec.NewDueDate,
			rec.Reason, rec.PostponedBy, rec.PostponeCount,
		).Scan(&rec.PostponedAt)
	})
}

// ListByTask returns a task's postponement ledger, newest first.
func (r *PostponementRepository) ListByTask(ctx context.Context, taskID string) ([]*PostponementRecord, error) {
	var records []*PostponementRecord
	query := `
		SELECT id, task_id, previous_due_date, new_due_date, reason,
		       postponed_by, postponed_at, postpone_count
		FROM task_postponements
		WHERE task_id = $1
		ORDER BY postponed_at DESC
	`
	if err := r.db.SelectContext(ctx, &records, query, taskID); err != nil {
		return nil, err
	}
	return records, nil
}

// CountByTask returns how many times a task has been postponed.
func (r *PostponementRepository) CountByTask(ctx context.Context, taskID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM task_postponements WHERE task_id = $1`
	if err := r.db.GetContext(ctx, &count, query, taskID); err != nil {
		return 0, err
	}
	return count, nil
}

// CreateAcknowledgment appends an acknowledgment ledger row.
func (r *PostponementRepository) CreateAcknowledgment(ctx context.Context, rec *AcknowledgmentRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	query := `
		INSERT INTO task_acknowledgements (id, task_id, acknowledged_by, project_code)
		VALUES ($1, $2, $3, $4)
		RETURNING acknowledged_at
	`
	return r.db.QueryRowxContext(ctx, query,
		rec.ID, rec.TaskID, rec.AcknowledgedBy, rec.ProjectCode,
	).Scan(&rec.AcknowledgedAt)
}

// ListAcknowledgmentsByTask returns a task's acknowledgment ledger, newest first.
func (r *PostponementRepository) ListAcknowledgmentsByTask(ctx context.Context, taskID string) ([]*AcknowledgmentRecord, error) {
	var records []*AcknowledgmentRecord
	query := `
		SELECT id, task_id, acknowledged_by, acknowledged_at, project_code
		FROM task_acknowledgements
		WHERE task_id = $1
		ORDER BY acknowledged_at DESC
	`
	if err := r.db.SelectContext(ctx, &records, query, taskID); err != nil {
		return nil, err
	}
	return records, nil
}
