package repository

import (
	"context"
	"fmt"
	"time"

	"gymclass/internal/model"
	"gymclass/internal/repository/base"
)

type OccurrenceRepository struct {
	db base.Querier
}

func NewOccurrenceRepository(db base.Querier) *OccurrenceRepository {
	return &OccurrenceRepository{db: db}
}

const occurrenceWithTemplateColumns = `
	o.id, o.template_id, o.trainer_id, o.group_id, o.weekdays, o.start_time, o.end_time, o.is_active, o.created_at, o.updated_at,
	t.id, t.name, t.description, t.category, t.duration_minutes, t.capacity, t.created_at, t.updated_at
`

// Create persists one occurrence.
func (r *OccurrenceRepository) Create(ctx context.Context, occ *model.ClassOccurrence) error {
	query := `
		INSERT INTO class_occurrences (template_id, trainer_id, group_id, weekdays, start_time, end_time, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		occ.TemplateID,
		occ.TrainerID,
		occ.GroupID,
		int16(occ.Weekdays),
		occ.StartTime,
		occ.EndTime,
		occ.IsActive,
	).Scan(&occ.ID, &occ.CreatedAt, &occ.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create occurrence: %w", err)
	}

	return nil
}

// GetByID returns the occurrence with its template joined, or nil when the
// id is unknown.
func (r *OccurrenceRepository) GetByID(ctx context.Context, id int64) (*model.ClassOccurrence, error) {
	query := `
		SELECT ` + occurrenceWithTemplateColumns + `
		FROM class_occurrences o
		JOIN class_templates t ON t.id = o.template_id
		WHERE o.id = $1
	`

	occ, err := scanJoinedOccurrence(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get occurrence by id: %w", err)
	}

	return occ, nil
}

// GetByIDForUpdate reads the occurrence while taking a row lock. Must run
// inside a transaction; the lock is what serializes concurrent bookings for
// one occurrence until commit.
func (r *OccurrenceRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.ClassOccurrence, error) {
	query := `
		SELECT id, template_id, trainer_id, group_id, weekdays, start_time, end_time, is_active, created_at, updated_at
		FROM class_occurrences
		WHERE id = $1
		FOR UPDATE
	`

	var (
		occ      model.ClassOccurrence
		weekdays int16
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&occ.ID,
		&occ.TemplateID,
		&occ.TrainerID,
		&occ.GroupID,
		&weekdays,
		&occ.StartTime,
		&occ.EndTime,
		&occ.IsActive,
		&occ.CreatedAt,
		&occ.UpdatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get occurrence for update: %w", err)
	}

	occ.Weekdays = model.WeekdaySet(weekdays)
	return &occ, nil
}

// ListActiveByTemplate returns the active occurrences of one template,
// locked for the rest of the transaction. Used when a template edit has to
// rewrite every derived interval.
func (r *OccurrenceRepository) ListActiveByTemplate(ctx context.Context, templateID int64) ([]*model.ClassOccurrence, error) {
	query := `
		SELECT id, template_id, trainer_id, group_id, weekdays, start_time, end_time, is_active, created_at, updated_at
		FROM class_occurrences
		WHERE template_id = $1 AND is_active
		ORDER BY start_time
		FOR UPDATE
	`

	rows, err := r.db.Query(ctx, query, templateID)
	if err != nil {
		return nil, fmt.Errorf("list occurrences by template: %w", err)
	}
	defer rows.Close()

	var occurrences []*model.ClassOccurrence
	for rows.Next() {
		var (
			occ      model.ClassOccurrence
			weekdays int16
		)
		err := rows.Scan(
			&occ.ID,
			&occ.TemplateID,
			&occ.TrainerID,
			&occ.GroupID,
			&weekdays,
			&occ.StartTime,
			&occ.EndTime,
			&occ.IsActive,
			&occ.CreatedAt,
			&occ.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		occ.Weekdays = model.WeekdaySet(weekdays)
		occurrences = append(occurrences, &occ)
	}

	return occurrences, rows.Err()
}

// Update rewrites the schedulable fields of one occurrence.
func (r *OccurrenceRepository) Update(ctx context.Context, occ *model.ClassOccurrence) error {
	query := `
		UPDATE class_occurrences
		SET trainer_id = $1, weekdays = $2, start_time = $3, end_time = $4, is_active = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		occ.TrainerID,
		int16(occ.Weekdays),
		occ.StartTime,
		occ.EndTime,
		occ.IsActive,
		occ.ID,
	).Scan(&occ.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return &model.NotFoundError{Resource: "occurrence", ID: occ.ID}
		}
		return fmt.Errorf("update occurrence: %w", err)
	}

	return nil
}

// SetActive flips the active flag. Deactivation removes the occurrence from
// conflict checks and listings but never touches its bookings.
func (r *OccurrenceRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `
		UPDATE class_occurrences
		SET is_active = $1, updated_at = now()
		WHERE id = $2
	`

	affected, err := r.db.Exec(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("set occurrence active: %w", err)
	}

	if affected.RowsAffected() == 0 {
		return &model.NotFoundError{Resource: "occurrence", ID: id}
	}

	return nil
}

// LockTrainerSchedule takes a transaction-scoped advisory lock keyed by the
// trainer. Concurrent creates and reschedules for one trainer queue behind
// it, so an overlap check cannot race an uncommitted insert.
func (r *OccurrenceRepository) LockTrainerSchedule(ctx context.Context, trainerID int64) error {
	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, trainerID); err != nil {
		return fmt.Errorf("lock trainer schedule: %w", err)
	}
	return nil
}

// HasTrainerOverlap reports whether any active occurrence of the trainer
// overlaps (start, end). Touching endpoints do not overlap. excludeID lets
// an update skip the occurrence being edited.
func (r *OccurrenceRepository) HasTrainerOverlap(ctx context.Context, trainerID int64, start, end time.Time, excludeID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM class_occurrences
			WHERE trainer_id = $1
			  AND is_active
			  AND start_time < $3
			  AND end_time > $2
			  AND ($4 = 0 OR id <> $4)
		)
	`

	var exists bool
	err := r.db.QueryRow(ctx, query, trainerID, start, end, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check trainer overlap: %w", err)
	}

	return exists, nil
}

// List returns active occurrences with templates joined, filtered and
// paginated, ordered by start time.
func (r *OccurrenceRepository) List(ctx context.Context, filter model.OccurrenceFilter) ([]*model.ClassOccurrence, error) {
	filter = filter.Normalize()

	query := `
		SELECT ` + occurrenceWithTemplateColumns + `
		FROM class_occurrences o
		JOIN class_templates t ON t.id = o.template_id
		WHERE o.is_active
		  AND ($1 = 0 OR o.trainer_id = $1)
		  AND ($2 = '' OR t.category = $2)
		  AND ($3::timestamptz IS NULL OR o.start_time >= $3)
		  AND ($4::timestamptz IS NULL OR o.start_time < $4)
		ORDER BY o.start_time
		LIMIT $5 OFFSET $6
	`

	rows, err := r.db.Query(ctx, query,
		filter.TrainerID,
		filter.Category,
		filter.From,
		filter.To,
		filter.PageSize,
		filter.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("list occurrences: %w", err)
	}
	defer rows.Close()

	var occurrences []*model.ClassOccurrence
	for rows.Next() {
		occ, err := scanJoinedOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		occurrences = append(occurrences, occ)
	}

	return occurrences, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJoinedOccurrence(row rowScanner) (*model.ClassOccurrence, error) {
	var (
		occ      model.ClassOccurrence
		tpl      model.ClassTemplate
		weekdays int16
	)

	err := row.Scan(
		&occ.ID,
		&occ.TemplateID,
		&occ.TrainerID,
		&occ.GroupID,
		&weekdays,
		&occ.StartTime,
		&occ.EndTime,
		&occ.IsActive,
		&occ.CreatedAt,
		&occ.UpdatedAt,
		&tpl.ID,
		&tpl.Name,
		&tpl.Description,
		&tpl.Category,
		&tpl.DurationMinutes,
		&tpl.Capacity,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	occ.Weekdays = model.WeekdaySet(weekdays)
	occ.Template = &tpl
	return &occ, nil
}
