package repository

import (
	"context"
	"fmt"
	"time"

	"gymclass/internal/model"
	"gymclass/internal/repository/base"
)

// UserRepository resolves trainers, members and staff. Account lifecycle
// belongs to the identity system; this engine only reads.
type UserRepository struct {
	db base.Querier
}

func NewUserRepository(db base.Querier) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID returns the user or nil when the id is unknown.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT id, name, role, telegram_chat_id, created_at
		FROM users
		WHERE id = $1
	`

	var user model.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Role,
		&user.TelegramChatID,
		&user.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &user, nil
}

// MembershipRepository backs the entitlement check with the memberships
// table. Billing writes these rows elsewhere.
type MembershipRepository struct {
	db base.Querier
}

func NewMembershipRepository(db base.Querier) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// CheckEntitlement passes when the member holds a membership covering the
// class start instant.
func (r *MembershipRepository) CheckEntitlement(ctx context.Context, memberID int64, classStart time.Time) error {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM memberships
			WHERE member_id = $1
			  AND valid_from <= $2
			  AND valid_until >= $2
		)
	`

	var covered bool
	if err := r.db.QueryRow(ctx, query, memberID, classStart).Scan(&covered); err != nil {
		return fmt.Errorf("check entitlement: %w", err)
	}

	if !covered {
		return model.ErrNotEntitled
	}

	return nil
}
