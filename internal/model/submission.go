package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubmissionStatus string

const (
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// Submission is the audit record of one upload attempt that reached the
// commit stage. Status and points are fixed at creation; the verdict is
// never re-evaluated.
type Submission struct {
	ID     uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID        `gorm:"type:uuid;index;not null;uniqueIndex:idx_user_receipt,priority:1" json:"user_id"`
	User   User             `gorm:"foreignKey:UserID" json:"-"`
	Status SubmissionStatus `gorm:"size:20;not null" json:"status"`
	Points int              `gorm:"not null" json:"points"`
	// Geolocation is a free-text city/country string, "N/A" when unknown.
	Geolocation       string `gorm:"size:120;not null;default:'N/A'" json:"geolocation"`
	ValidationDetails string `gorm:"type:text" json:"validation_details"`
	// ImageHash is the digest of the normalized image bytes. Globally
	// unique: the same bag photo can never be credited twice.
	ImageHash string `gorm:"size:64;uniqueIndex;not null" json:"image_hash"`
	// ReceiptContentHash digests (store, date, total) when all three were
	// extracted from an approved receipt. Unique per user, nullable:
	// unidentifiable receipts skip duplicate-content protection.
	ReceiptContentHash *string   `gorm:"size:64;uniqueIndex:idx_user_receipt,priority:2" json:"receipt_content_hash,omitempty"`
	PhotoURL           *string   `gorm:"type:text" json:"photo_url,omitempty"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
