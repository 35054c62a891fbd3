package billing

import (
	"time"

	"formdesk/internal/domain/users"
)

// Transaction / PaymentIntent statuses. COMPLETED and FAILED are terminal;
// a row never leaves a terminal status.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Subscription statuses.
const (
	SubscriptionActive   = "ACTIVE"
	SubscriptionCanceled = "CANCELED"
)

// PaymentSettings holds an organizer's payout details. SubaccountCode is
// obtained from the gateway once and reused for every transaction on that
// organizer's forms.
type PaymentSettings struct {
	ID     uint       `gorm:"primaryKey"`
	UserID uint       `gorm:"not null;uniqueIndex:idx_payment_settings_user_id"`
	User   users.User `gorm:"constraint:OnDelete:CASCADE"`

	BankCode      string `gorm:"not null"`
	AccountNumber string `gorm:"not null"`
	AccountName   string

	SubaccountCode *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction records one payment attempt for one form response.
// Amount = NetAmount + Fee.
type Transaction struct {
	ID         uint   `gorm:"primaryKey"`
	ResponseID uint   `gorm:"index"`
	UserID     uint   `gorm:"index"`
	Reference  string `gorm:"not null;uniqueIndex:idx_transactions_reference"`

	Amount    int64
	Fee       int64
	NetAmount int64
	Currency  string `gorm:"type:varchar(3);not null;default:'NGN'"`

	Status string `gorm:"type:varchar(10);not null;default:'PENDING';index"`

	CustomerEmail string
	CustomerName  string

	PaymentDate   *time.Time
	FailureReason *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether the transaction reached a final status.
func (t *Transaction) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// PaymentIntent mirrors Transaction for subscription plan purchases.
type PaymentIntent struct {
	ID       uint   `gorm:"primaryKey"`
	UserID   uint   `gorm:"index"`
	PlanType string `gorm:"type:varchar(10);not null"`

	Amount    int64
	Currency  string `gorm:"type:varchar(3);not null;default:'NGN'"`
	Reference string `gorm:"not null;uniqueIndex:idx_payment_intents_reference"`
	Status    string `gorm:"type:varchar(10);not null;default:'PENDING';index"`

	PaymentDate   *time.Time
	FailureReason *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *PaymentIntent) Terminal() bool {
	return p.Status == StatusCompleted || p.Status == StatusFailed
}

// Subscription is the one-per-user plan record, mutated only on confirmed
// payment or an explicit cancel request.
type Subscription struct {
	ID     uint       `gorm:"primaryKey"`
	UserID uint       `gorm:"not null;uniqueIndex:idx_subscriptions_user_id"`
	User   users.User `gorm:"constraint:OnDelete:CASCADE"`

	PlanType string `gorm:"type:varchar(10);not null;default:'FREE'"`
	Status   string `gorm:"type:varchar(10);not null;default:'ACTIVE'"`

	StartDate         time.Time
	EndDate           *time.Time
	CancelAtPeriodEnd bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubscriptionPayment is an append-only history row for confirmed plan
// purchases.
type SubscriptionPayment struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index"`
	PlanType  string `gorm:"type:varchar(10);not null"`
	Amount    int64
	Currency  string `gorm:"type:varchar(3);not null;default:'NGN'"`
	Reference string `gorm:"index"`
	CreatedAt time.Time
}
