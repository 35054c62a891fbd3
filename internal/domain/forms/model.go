package forms

import (
	"time"

	"formdesk/internal/domain/users"

	"gorm.io/datatypes"
)

// Form statuses
const (
	StatusDraft  = "draft"
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Field types understood by the submission flow. FieldTypeEmail is special:
// it marks the answer used for duplicate-registration checks.
const (
	FieldTypeText   = "text"
	FieldTypeEmail  = "email"
	FieldTypeNumber = "number"
	FieldTypeSelect = "select"
)

type Form struct {
	ID     uint       `gorm:"primaryKey"`
	Code   string     `gorm:"type:varchar(4);not null;uniqueIndex:idx_forms_code"`
	UserID uint       `gorm:"index"`
	User   users.User `gorm:"constraint:OnDelete:CASCADE"`

	Title       string `gorm:"not null"`
	Description string
	Status      string `gorm:"type:varchar(10);not null;default:'draft'"`

	CollectsPayments bool
	PaymentAmount    int64
	PaymentCurrency  string `gorm:"type:varchar(3);not null;default:'NGN'"`

	ClosesAt *time.Time

	Fields []FormField `gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type FormField struct {
	ID        uint   `gorm:"primaryKey"`
	FormID    uint   `gorm:"index"`
	Label     string `gorm:"not null"`
	Type      string `gorm:"type:varchar(10);not null;default:'text'"`
	Required  bool
	Options   datatypes.JSON
	SortIndex int

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Response struct {
	ID       uint   `gorm:"primaryKey"`
	PublicID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_responses_public_id"`
	FormID   uint   `gorm:"index"`
	Form     Form   `gorm:"constraint:OnDelete:CASCADE"`

	// Answers maps field ID (as a string) to the submitted value.
	Answers datatypes.JSON

	CheckedIn bool

	CreatedAt time.Time
}

// IsOpen reports whether the form currently accepts submissions.
func (f *Form) IsOpen(now time.Time) bool {
	if f.Status != StatusOpen {
		return false
	}
	if f.ClosesAt != nil && now.After(*f.ClosesAt) {
		return false
	}
	return true
}

// EmailFieldIDs returns the IDs of all email-typed fields, in sort order.
func (f *Form) EmailFieldIDs() []uint {
	var ids []uint
	for _, fld := range f.Fields {
		if fld.Type == FieldTypeEmail {
			ids = append(ids, fld.ID)
		}
	}
	return ids
}
