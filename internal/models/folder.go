package models

import "time"

// ActiveSync folder types per MS-ASCMD.
const (
	FolderTypeUserGeneric = 1
	FolderTypeInbox       = 2
	FolderTypeDrafts      = 3
	FolderTypeDeleted     = 4
	FolderTypeSent        = 5
	FolderTypeOutbox      = 6
	FolderTypeTasks       = 7
	FolderTypeCalendar    = 8
	FolderTypeContacts    = 9
	FolderTypeNotes       = 10
)

// FolderRootID is the synthetic parent of every top-level folder.
const FolderRootID = "0"

// Folder is one entry of a principal's (flat) folder hierarchy.
type Folder struct {
	ID           string    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	PrincipalID  int64     `gorm:"column:principal_id;uniqueIndex:idx_folders_principal_collection;not null"`
	CollectionID string    `gorm:"column:collection_id;type:varchar(64);uniqueIndex:idx_folders_principal_collection;not null"`
	ParentID     string    `gorm:"column:parent_id;type:varchar(64);default:'0'"`
	DisplayName  string    `gorm:"column:display_name;type:varchar(255);not null"`
	Type         int       `gorm:"column:folder_type;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt    time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (Folder) TableName() string {
	return "folders"
}

// DefaultFolders is the hierarchy seeded for every principal on first
// contact. Collection ids are stable strings.
func DefaultFolders(principalID int64) []Folder {
	return []Folder{
		{PrincipalID: principalID, CollectionID: "1", ParentID: FolderRootID, DisplayName: "Inbox", Type: FolderTypeInbox},
		{PrincipalID: principalID, CollectionID: "2", ParentID: FolderRootID, DisplayName: "Drafts", Type: FolderTypeDrafts},
		{PrincipalID: principalID, CollectionID: "3", ParentID: FolderRootID, DisplayName: "Deleted Items", Type: FolderTypeDeleted},
		{PrincipalID: principalID, CollectionID: "4", ParentID: FolderRootID, DisplayName: "Sent Items", Type: FolderTypeSent},
		{PrincipalID: principalID, CollectionID: "5", ParentID: FolderRootID, DisplayName: "Outbox", Type: FolderTypeOutbox},
		{PrincipalID: principalID, CollectionID: "6", ParentID: FolderRootID, DisplayName: "Calendar", Type: FolderTypeCalendar},
		{PrincipalID: principalID, CollectionID: "7", ParentID: FolderRootID, DisplayName: "Contacts", Type: FolderTypeContacts},
	}
}
