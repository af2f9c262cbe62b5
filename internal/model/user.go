package model

import "time"

type Role string

const (
	RoleMember  Role = "member"
	RoleTrainer Role = "trainer"
	RoleStaff   Role = "staff"
)

type User struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Role           Role      `json:"role"`
	TelegramChatID *int64    `json:"telegram_chat_id"` // nil = no chat linked, notifications skipped
	CreatedAt      time.Time `json:"created_at"`
}

// Principal identifies the caller of a service operation. It carries only
// what authorization decisions need; authentication happens upstream.
type Principal struct {
	ID   int64
	Role Role
}

// IsStaff reports whether the caller may act on behalf of other users.
func (p Principal) IsStaff() bool {
	return p.Role == RoleStaff
}

func (p Principal) IsTrainer() bool {
	return p.Role == RoleTrainer
}
