package models

import (
	"time"
)

// Email is one stored mail item. The gateway only reads these rows (and
// flips the read flag); ingestion happens out of process.
type Email struct {
	ID           int64  `gorm:"column:id;primaryKey;autoIncrement"`
	PrincipalID  int64  `gorm:"column:principal_id;index:idx_emails_principal_collection;not null"`
	CollectionID string `gorm:"column:collection_id;type:varchar(64);index:idx_emails_principal_collection;not null"`
	MessageID    string `gorm:"column:message_id;type:varchar(255);index"`

	Subject     string `gorm:"column:subject;type:varchar(1000)"`
	FromAddress string `gorm:"column:from_address;type:varchar(255)"`
	ToAddress   string `gorm:"column:to_address;type:varchar(255)"`

	ReceivedAt time.Time `gorm:"column:received_at;type:timestamp;index"`
	IsRead     bool      `gorm:"column:is_read;default:false"`
	Importance int       `gorm:"column:importance;default:1"`

	BodyText string `gorm:"column:body_text;type:text"`
	BodyHTML string `gorm:"column:body_html;type:text"`
	RawMime  []byte `gorm:"column:raw_mime;type:bytea"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (Email) TableName() string {
	return "emails"
}

func (e *Email) HasHTML() bool {
	return e.BodyHTML != ""
}

func (e *Email) HasRawMime() bool {
	return len(e.RawMime) > 0
}
