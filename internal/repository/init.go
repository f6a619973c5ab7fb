package repository

import (
	"gorm.io/gorm"

	"github.com/syncgate/syncgate/interfaces"
	"github.com/syncgate/syncgate/internal/models"
)

type Repositories struct {
	PrincipalRepository interfaces.PrincipalRepository
	DeviceRepository    interfaces.DeviceRepository
	SyncStateRepository interfaces.SyncStateRepository
	FolderRepository    interfaces.FolderRepository
	EmailRepository     interfaces.EmailRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		PrincipalRepository: NewPrincipalRepository(db),
		DeviceRepository:    NewDeviceRepository(db),
		SyncStateRepository: NewSyncStateRepository(db),
		FolderRepository:    NewFolderRepository(db),
		EmailRepository:     NewEmailRepository(db),
	}
}

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Principal{},
		&models.Device{},
		&models.SyncState{},
		&models.Folder{},
		&models.Email{},
	)
}
