package models

import "time"

type ProvisionState string

const (
	ProvisionStateNone        ProvisionState = "unprovisioned"
	ProvisionStatePending     ProvisionState = "pending"
	ProvisionStateProvisioned ProvisionState = "provisioned"
)

// Device represents one ActiveSync partnership: a (principal, device id)
// pair created on first contact.
type Device struct {
	ID          string         `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	PrincipalID int64          `gorm:"column:principal_id;uniqueIndex:idx_devices_principal_device;not null"`
	DeviceID    string         `gorm:"column:device_id;type:varchar(64);uniqueIndex:idx_devices_principal_device;not null"`
	DeviceType  string         `gorm:"column:device_type;type:varchar(64)"`
	UserAgent   string         `gorm:"column:user_agent;type:varchar(255)"`
	PolicyKey   string         `gorm:"column:policy_key;type:varchar(20);default:'0'"`
	Provision   ProvisionState `gorm:"column:provision_state;type:varchar(20);default:'unprovisioned'"`
	LastSeen    time.Time      `gorm:"column:last_seen;type:timestamp"`
	CreatedAt   time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (Device) TableName() string {
	return "devices"
}

func (d *Device) IsProvisioned() bool {
	return d.Provision == ProvisionStateProvisioned
}
