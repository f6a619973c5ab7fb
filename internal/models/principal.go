package models

import "time"

// Principal is the authenticated mailbox owner. Rows are provisioned by
// the account pipeline; the gateway only reads them during Basic auth.
type Principal struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	EmailAddress string    `gorm:"column:email_address;type:varchar(255);uniqueIndex;not null"`
	Secret       string    `gorm:"column:secret;type:varchar(255);not null"`
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt    time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (Principal) TableName() string {
	return "principals"
}
