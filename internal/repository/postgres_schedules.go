package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stanercelik/PolySleep-sub003/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresScheduleStore schedules / sleep_blocks / adaptation_states on PostgreSQL
type PostgresScheduleStore struct {
	db *sql.DB
}

func NewPostgresScheduleStore(db *sql.DB) *PostgresScheduleStore {
	return &PostgresScheduleStore{db: db}
}

var _ ScheduleStore = (*PostgresScheduleStore)(nil)

// schemaStatements one active schedule per user is also enforced by a partial unique index.
// Ids are TEXT: generated ids are UUIDs but callers may supply their own.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS schedules (
		schedule_id       TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL,
		name              TEXT NOT NULL,
		schedule_type     VARCHAR(32) NOT NULL DEFAULT 'custom',
		descriptions      JSONB NOT NULL DEFAULT '{}'::jsonb,
		duration_class    INTEGER NOT NULL DEFAULT 21,
		total_sleep_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
		is_active         BOOLEAN NOT NULL DEFAULT FALSE,
		is_deleted        BOOLEAN NOT NULL DEFAULT FALSE,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_schedules_user ON schedules (user_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_schedules_one_active
		ON schedules (user_id) WHERE is_active AND NOT is_deleted`,
	`CREATE TABLE IF NOT EXISTS sleep_blocks (
		block_id         TEXT PRIMARY KEY,
		schedule_id      TEXT NOT NULL REFERENCES schedules (schedule_id) ON DELETE CASCADE,
		start_minute     INTEGER NOT NULL,
		duration_minutes INTEGER NOT NULL,
		is_core          BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sleep_blocks_schedule ON sleep_blocks (schedule_id)`,
	`CREATE TABLE IF NOT EXISTS adaptation_states (
		schedule_id           TEXT PRIMARY KEY REFERENCES schedules (schedule_id) ON DELETE CASCADE,
		user_id               TEXT NOT NULL,
		adaptation_phase      INTEGER NOT NULL DEFAULT 0,
		adaptation_start_date TIMESTAMPTZ NOT NULL,
		total_sleep_hours     DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Migrate creates the tables if they do not exist
func (r *PostgresScheduleStore) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schedule schema: %w", err)
		}
	}
	return nil
}

func (r *PostgresScheduleStore) WithTx(ctx context.Context, fn func(tx ScheduleTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&postgresTx{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PostgresScheduleStore) GetSchedule(ctx context.Context, scheduleID string) (*domain.Schedule, error) {
	return getSchedule(ctx, r.db, scheduleID)
}

func (r *PostgresScheduleStore) FindSchedules(ctx context.Context, filter ScheduleFilter) ([]*domain.Schedule, error) {
	return findSchedules(ctx, r.db, filter)
}

func (r *PostgresScheduleStore) GetAdaptationState(ctx context.Context, scheduleID string) (*domain.AdaptationState, error) {
	return getAdaptationState(ctx, r.db, scheduleID)
}

func (r *PostgresScheduleStore) ListActiveSchedules(ctx context.Context) ([]*domain.Schedule, error) {
	query := scheduleSelect + `
		WHERE is_active AND NOT is_deleted
		ORDER BY created_at, schedule_id
	`
	return querySchedules(ctx, r.db, query)
}

// ============================================
// shared by *sql.DB and *sql.Tx
// ============================================

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const scheduleSelect = `
		SELECT
			schedule_id::text,
			user_id,
			name,
			schedule_type,
			descriptions,
			duration_class,
			total_sleep_hours,
			is_active,
			is_deleted,
			created_at,
			updated_at
		FROM schedules`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var s domain.Schedule
	var scheduleType string
	var descriptions []byte
	var durationClass int

	if err := row.Scan(
		&s.ScheduleID,
		&s.UserID,
		&s.Name,
		&scheduleType,
		&descriptions,
		&durationClass,
		&s.TotalSleepHours,
		&s.IsActive,
		&s.IsDeleted,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}

	s.ScheduleType = domain.ScheduleType(scheduleType)
	s.DurationClass = domain.DurationClass(durationClass)
	if len(descriptions) > 0 {
		if err := json.Unmarshal(descriptions, &s.Descriptions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal descriptions: %w", err)
		}
	}
	return &s, nil
}

func getSchedule(ctx context.Context, q queryer, scheduleID string) (*domain.Schedule, error) {
	if scheduleID == "" {
		return nil, fmt.Errorf("schedule_id is required: %w", ErrNotFound)
	}

	s, err := scanSchedule(q.QueryRowContext(ctx, scheduleSelect+` WHERE schedule_id = $1`, scheduleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("schedule %s: %w", scheduleID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}

	blocks, err := loadBlocks(ctx, q, []string{scheduleID})
	if err != nil {
		return nil, err
	}
	s.Blocks = blocks[scheduleID]
	return s, nil
}

func findSchedules(ctx context.Context, q queryer, f ScheduleFilter) ([]*domain.Schedule, error) {
	where := []string{}
	args := []any{}
	argN := 1

	if f.UserID != "" {
		where = append(where, fmt.Sprintf("user_id = $%d", argN))
		args = append(args, f.UserID)
		argN++
	}
	if f.ScheduleID != "" {
		where = append(where, fmt.Sprintf("schedule_id = $%d", argN))
		args = append(args, f.ScheduleID)
		argN++
	}
	if f.ActiveOnly {
		where = append(where, "is_active")
	}
	if !f.IncludeDeleted {
		where = append(where, "NOT is_deleted")
	}
	if len(where) == 0 {
		return nil, fmt.Errorf("schedule filter needs user_id or schedule_id")
	}

	query := scheduleSelect + `
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at, schedule_id
	`
	return querySchedules(ctx, q, query, args...)
}

func querySchedules(ctx context.Context, q queryer, query string, args ...any) ([]*domain.Schedule, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	schedules := []*domain.Schedule{}
	ids := []string{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, s)
		ids = append(ids, s.ScheduleID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedules: %w", err)
	}
	if len(ids) == 0 {
		return schedules, nil
	}

	blocks, err := loadBlocks(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for _, s := range schedules {
		s.Blocks = blocks[s.ScheduleID]
	}
	return schedules, nil
}

func loadBlocks(ctx context.Context, q queryer, scheduleIDs []string) (map[string][]domain.SleepBlock, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT
			block_id::text,
			schedule_id::text,
			start_minute,
			duration_minutes,
			is_core
		FROM sleep_blocks
		WHERE schedule_id::text = ANY($1)
		ORDER BY schedule_id, start_minute
	`, pq.Array(scheduleIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query sleep blocks: %w", err)
	}
	defer rows.Close()

	out := map[string][]domain.SleepBlock{}
	for rows.Next() {
		var b domain.SleepBlock
		if err := rows.Scan(&b.BlockID, &b.ScheduleID, &b.StartMinute, &b.DurationMinutes, &b.IsCore); err != nil {
			return nil, fmt.Errorf("failed to scan sleep block: %w", err)
		}
		out[b.ScheduleID] = append(out[b.ScheduleID], b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sleep blocks: %w", err)
	}
	return out, nil
}

func getAdaptationState(ctx context.Context, q queryer, scheduleID string) (*domain.AdaptationState, error) {
	var st domain.AdaptationState
	err := q.QueryRowContext(ctx, `
		SELECT
			schedule_id::text,
			user_id,
			adaptation_phase,
			adaptation_start_date,
			total_sleep_hours,
			updated_at
		FROM adaptation_states
		WHERE schedule_id = $1
	`, scheduleID).Scan(
		&st.ScheduleID,
		&st.UserID,
		&st.AdaptationPhase,
		&st.AdaptationStartDate,
		&st.TotalSleepHours,
		&st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("adaptation state %s: %w", scheduleID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get adaptation state: %w", err)
	}
	return &st, nil
}

// ============================================
// tx
// ============================================

type postgresTx struct {
	q queryer
}

func (t *postgresTx) FindSchedules(ctx context.Context, filter ScheduleFilter) ([]*domain.Schedule, error) {
	return findSchedules(ctx, t.q, filter)
}

func (t *postgresTx) GetSchedule(ctx context.Context, scheduleID string) (*domain.Schedule, error) {
	return getSchedule(ctx, t.q, scheduleID)
}

func (t *postgresTx) InsertSchedule(ctx context.Context, s *domain.Schedule) error {
	descriptions, err := marshalDescriptions(s.Descriptions)
	if err != nil {
		return err
	}

	_, err = t.q.ExecContext(ctx, `
		INSERT INTO schedules (
			schedule_id,
			user_id,
			name,
			schedule_type,
			descriptions,
			duration_class,
			total_sleep_hours,
			is_active,
			is_deleted,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		s.ScheduleID,
		s.UserID,
		s.Name,
		string(s.ScheduleType),
		descriptions,
		int(s.DurationClass),
		s.TotalSleepHours,
		s.IsActive,
		s.IsDeleted,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert schedule: %w", err)
	}
	return nil
}

func (t *postgresTx) UpdateSchedule(ctx context.Context, s *domain.Schedule) error {
	descriptions, err := marshalDescriptions(s.Descriptions)
	if err != nil {
		return err
	}

	res, err := t.q.ExecContext(ctx, `
		UPDATE schedules SET
			user_id = $2,
			name = $3,
			schedule_type = $4,
			descriptions = $5,
			duration_class = $6,
			total_sleep_hours = $7,
			is_active = $8,
			is_deleted = $9,
			updated_at = $10
		WHERE schedule_id = $1
	`,
		s.ScheduleID,
		s.UserID,
		s.Name,
		string(s.ScheduleType),
		descriptions,
		int(s.DurationClass),
		s.TotalSleepHours,
		s.IsActive,
		s.IsDeleted,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("schedule %s: %w", s.ScheduleID, ErrNotFound)
	}
	return nil
}

func (t *postgresTx) DeleteSleepBlocks(ctx context.Context, scheduleID string) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM sleep_blocks WHERE schedule_id = $1`, scheduleID); err != nil {
		return fmt.Errorf("failed to delete sleep blocks: %w", err)
	}
	return nil
}

func (t *postgresTx) InsertSleepBlocks(ctx context.Context, scheduleID string, blocks []domain.SleepBlock) error {
	for _, b := range blocks {
		if b.BlockID == "" {
			b.BlockID = uuid.NewString()
		}
		_, err := t.q.ExecContext(ctx, `
			INSERT INTO sleep_blocks (block_id, schedule_id, start_minute, duration_minutes, is_core)
			VALUES ($1, $2, $3, $4, $5)
		`, b.BlockID, scheduleID, b.StartMinute, b.DurationMinutes, b.IsCore)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("schedule %s: %w", scheduleID, ErrNotFound)
			}
			return fmt.Errorf("failed to insert sleep block: %w", err)
		}
	}
	return nil
}

func (t *postgresTx) GetAdaptationState(ctx context.Context, scheduleID string) (*domain.AdaptationState, error) {
	return getAdaptationState(ctx, t.q, scheduleID)
}

func (t *postgresTx) UpsertAdaptationState(ctx context.Context, st *domain.AdaptationState) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO adaptation_states (
			schedule_id,
			user_id,
			adaptation_phase,
			adaptation_start_date,
			total_sleep_hours,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (schedule_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			adaptation_phase = EXCLUDED.adaptation_phase,
			adaptation_start_date = EXCLUDED.adaptation_start_date,
			total_sleep_hours = EXCLUDED.total_sleep_hours,
			updated_at = EXCLUDED.updated_at
	`,
		st.ScheduleID,
		st.UserID,
		st.AdaptationPhase,
		st.AdaptationStartDate,
		st.TotalSleepHours,
		st.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("schedule %s: %w", st.ScheduleID, ErrNotFound)
		}
		return fmt.Errorf("failed to upsert adaptation state: %w", err)
	}
	return nil
}

func marshalDescriptions(d map[string]string) ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal descriptions: %w", err)
	}
	return b, nil
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
