package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID         int       `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	AuthUserID string    `bun:",nullzero" json:"auth_user_id"`
	FullName   string    `json:"full_name"`
	Email      *string   `json:"email,omitempty"`
}
