package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	DisplayName  string    `gorm:"size:100;not null" json:"display_name"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	TotalPoints  int       `gorm:"not null;default:0" json:"total_points"`
	TotalTrees   int       `gorm:"not null;default:0" json:"total_trees"`
	// MaxTrees is the per-user contribution cap. Zero means no explicit
	// cap was set and the global default applies.
	MaxTrees  int       `gorm:"not null;default:0" json:"max_trees"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// CallerIdentity is the verified identity attached to every authenticated
// request. Entry points receive it explicitly; there is no ambient auth state.
type CallerIdentity struct {
	UID         uuid.UUID
	Email       string
	DisplayName string
}
