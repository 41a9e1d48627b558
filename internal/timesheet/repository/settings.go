package repository

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/worktrack/timesheet-backend/pkg/database"
)

// DefaultBlockUnassignedProjectTasks is the policy value assumed when the
// settings row is absent or unreadable. Reads fail open so a storage outage
// never locks employees out of submission.
const DefaultBlockUnassignedProjectTasks = false

const blockUnassignedKey = "block_unassigned_project_tasks"

// Policy holds the submission blocking policy flags.
type Policy struct {
	BlockUnassignedProjectTasks bool `json:"blockUnassignedProjectTasks"`
}

// SettingsRepository persists the policy flags. There is no caching layer:
// the gate reads the stored value on every evaluation so an admin change
// takes effect immediately.
type SettingsRepository struct {
	db *database.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetPolicy reads the current policy. A missing row yields the default
// without error; a storage error is returned alongside the default so
// callers can log it and continue.
func (r *SettingsRepository) GetPolicy(ctx context.Context) (Policy, error) {
	var raw string
	query := `SELECT value FROM app_settings WHERE key = $1`

	err := r.db.GetContext(ctx, &raw, query, blockUnassignedKey)
	if err == sql.ErrNoRows {
		return Policy{BlockUnassignedProjectTasks: DefaultBlockUnassignedProjectTasks}, nil
	}
	if err != nil {
		return Policy{BlockUnassignedProjectTasks: DefaultBlockUnassignedProjectTasks}, err
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return Policy{BlockUnassignedProjectTasks: DefaultBlockUnassignedProjectTasks}, err
	}

	return Policy{BlockUnassignedProjectTasks: value}, nil
}

// SetPolicy durably writes the policy flag and returns the stored value.
func (r *SettingsRepository) SetPolicy(ctx context.Context, block bool) (Policy, error) {
	query := `
		INSERT INTO app_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, blockUnassignedKey, strconv.FormatBool(block)); err != nil {
		return Policy{}, err
	}

	return Policy{BlockUnassignedProjectTasks: block}, nil
}
