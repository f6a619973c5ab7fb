package models

import (
	"time"

	"github.com/lib/pq"
)

// SyncState is the per-(principal, device, collection) synchronization
// record. The current_* fields describe the last state the client has
// confirmed; the pending_* fields describe an issued-but-unconfirmed batch
// (two-phase commit). At most one pending batch exists at a time.
type SyncState struct {
	ID           string `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	PrincipalID  int64  `gorm:"column:principal_id;uniqueIndex:idx_sync_states_key;not null"`
	DeviceID     string `gorm:"column:device_id;type:varchar(64);uniqueIndex:idx_sync_states_key;not null"`
	CollectionID string `gorm:"column:collection_id;type:varchar(64);uniqueIndex:idx_sync_states_key;not null"`

	CurrentSyncKey  string        `gorm:"column:current_sync_key;type:varchar(64);default:'0'"`
	LastAckedItemID int64         `gorm:"column:last_acked_item_id"`
	AckedItemIDs    pq.Int64Array `gorm:"column:acked_item_ids;type:bigint[]"`

	PendingSyncKey   *string       `gorm:"column:pending_sync_key;type:varchar(64)"`
	PendingItemIDs   pq.Int64Array `gorm:"column:pending_item_ids;type:bigint[]"`
	PendingMaxItemID *int64        `gorm:"column:pending_max_item_id"`
	// Exact bytes of the last issued response, replayed verbatim when the
	// client resends the pending key.
	PendingResponse []byte `gorm:"column:pending_response;type:bytea"`

	FolderSyncAttempts int       `gorm:"column:foldersync_attempts"`
	CreatedAt          time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt          time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (SyncState) TableName() string {
	return "sync_states"
}

func (s *SyncState) HasPending() bool {
	return s.PendingSyncKey != nil && *s.PendingSyncKey != ""
}

// IsAcked reports whether the item id was part of a confirmed batch.
func (s *SyncState) IsAcked(itemID int64) bool {
	for _, id := range s.AckedItemIDs {
		if id == itemID {
			return true
		}
	}
	return false
}

// StagePending replaces any prior pending batch with a new one.
func (s *SyncState) StagePending(syncKey string, itemIDs []int64, maxItemID int64, response []byte) {
	key := syncKey
	s.PendingSyncKey = &key
	s.PendingItemIDs = append(pq.Int64Array{}, itemIDs...)
	if maxItemID > 0 {
		max := maxItemID
		s.PendingMaxItemID = &max
	} else {
		s.PendingMaxItemID = nil
	}
	s.PendingResponse = response
}

// ConfirmPending moves the pending batch into the confirmed state: the
// pending key becomes current and pending item ids join the acked set.
func (s *SyncState) ConfirmPending() {
	if !s.HasPending() {
		return
	}
	s.CurrentSyncKey = *s.PendingSyncKey
	for _, id := range s.PendingItemIDs {
		if !s.IsAcked(id) {
			s.AckedItemIDs = append(s.AckedItemIDs, id)
		}
	}
	if s.PendingMaxItemID != nil && *s.PendingMaxItemID > s.LastAckedItemID {
		s.LastAckedItemID = *s.PendingMaxItemID
	}
	s.DiscardPending()
}

// DiscardPending drops an issued batch the client never acknowledged.
func (s *SyncState) DiscardPending() {
	s.PendingSyncKey = nil
	s.PendingItemIDs = nil
	s.PendingMaxItemID = nil
	s.PendingResponse = nil
}

// Reset wipes the record back to the initial "0" state.
func (s *SyncState) Reset() {
	s.CurrentSyncKey = "0"
	s.LastAckedItemID = 0
	s.AckedItemIDs = nil
	s.FolderSyncAttempts = 0
	s.DiscardPending()
}
