package repository

import (
	"context"
	"fmt"

	"gymclass/internal/model"
	"gymclass/internal/repository/base"
)

type TemplateRepository struct {
	db base.Querier
}

func NewTemplateRepository(db base.Querier) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create persists a class template.
func (r *TemplateRepository) Create(ctx context.Context, tpl *model.ClassTemplate) error {
	query := `
		INSERT INTO class_templates (name, description, category, duration_minutes, capacity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		tpl.Name,
		tpl.Description,
		tpl.Category,
		tpl.DurationMinutes,
		tpl.Capacity,
	).Scan(&tpl.ID, &tpl.CreatedAt, &tpl.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create class template: %w", err)
	}

	return nil
}

// GetByID returns the template or nil when the id is unknown.
func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*model.ClassTemplate, error) {
	query := `
		SELECT id, name, description, category, duration_minutes, capacity, created_at, updated_at
		FROM class_templates
		WHERE id = $1
	`

	var tpl model.ClassTemplate
	err := r.db.QueryRow(ctx, query, id).Scan(
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
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get class template by id: %w", err)
	}

	return &tpl, nil
}

// Update rewrites the mutable template fields.
func (r *TemplateRepository) Update(ctx context.Context, tpl *model.ClassTemplate) error {
	query := `
		UPDATE class_templates
		SET name = $1, description = $2, category = $3, duration_minutes = $4, capacity = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		tpl.Name,
		tpl.Description,
		tpl.Category,
		tpl.DurationMinutes,
		tpl.Capacity,
		tpl.ID,
	).Scan(&tpl.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return &model.NotFoundError{Resource: "class template", ID: tpl.ID}
		}
		return fmt.Errorf("update class template: %w", err)
	}

	return nil
}
