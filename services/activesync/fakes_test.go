package activesync

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/syncgate/syncgate/interfaces"
	easerrors "github.com/syncgate/syncgate/internal/errors"
	"github.com/syncgate/syncgate/internal/logger"
	"github.com/syncgate/syncgate/internal/models"
	"github.com/syncgate/syncgate/internal/repository"
)

func newTestLogger() logger.Logger {
	l := logger.NewAppLogger(&logger.Config{LogLevel: "error"})
	l.InitLogger()
	return l
}

// fakeStore is an in-memory interfaces.MailStore.
type fakeStore struct {
	mu      sync.Mutex
	items   []*models.Email
	emptied []string

	// subscribeFn overrides the default SubscribeChanges timeout behavior.
	subscribeFn func(ctx context.Context, principalID int64, collectionIDs []string, timeout time.Duration) ([]string, error)
}

func (f *fakeStore) ListItems(_ context.Context, principalID int64, collectionID string, minIDExclusive int64, excludeIDs []int64, limit int) ([]models.Email, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	excluded := make(map[int64]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}
	var out []models.Email
	for _, it := range f.items {
		if it.PrincipalID != principalID || it.CollectionID != collectionID {
			continue
		}
		if it.ID <= minIDExclusive {
			continue
		}
		if _, skip := excluded[it.ID]; skip {
			continue
		}
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) CountNew(ctx context.Context, principalID int64, collectionID string, minIDExclusive int64, excludeIDs []int64) (int64, error) {
	items, err := f.ListItems(ctx, principalID, collectionID, minIDExclusive, excludeIDs, 1<<30)
	return int64(len(items)), err
}

func (f *fakeStore) GetItem(_ context.Context, principalID int64, itemID int64) (*models.Email, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.PrincipalID == principalID && it.ID == itemID {
			copied := *it
			return &copied, nil
		}
	}
	return nil, easerrors.ErrItemNotFound
}

func (f *fakeStore) ListFolders(_ context.Context, principalID int64) ([]models.Folder, error) {
	return models.DefaultFolders(principalID), nil
}

func (f *fakeStore) MarkRead(_ context.Context, principalID int64, itemID int64, read bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.PrincipalID == principalID && it.ID == itemID {
			it.IsRead = read
			return nil
		}
	}
	return easerrors.ErrItemNotFound
}

func (f *fakeStore) EmptyFolder(_ context.Context, principalID int64, collectionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.items[:0]
	for _, it := range f.items {
		if it.PrincipalID == principalID && it.CollectionID == collectionID {
			continue
		}
		kept = append(kept, it)
	}
	f.items = kept
	f.emptied = append(f.emptied, collectionID)
	return nil
}

func (f *fakeStore) BuildOrFetchMime(_ context.Context, item *models.Email) ([]byte, error) {
	if item.HasRawMime() {
		return item.RawMime, nil
	}
	return []byte("From: " + item.FromAddress + "\r\nSubject: " + item.Subject + "\r\n\r\n" + item.BodyText + "\r\n"), nil
}

func (f *fakeStore) SubscribeChanges(ctx context.Context, principalID int64, collectionIDs []string, timeout time.Duration) ([]string, error) {
	if f.subscribeFn != nil {
		return f.subscribeFn(ctx, principalID, collectionIDs, timeout)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, nil
	}
}

// fakeStateRepo keeps SyncState rows in a map, returning copies so only
// Save publishes mutations, like the real repository.
type fakeStateRepo struct {
	mu     sync.Mutex
	states map[string]*models.SyncState
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{states: make(map[string]*models.SyncState)}
}

func (f *fakeStateRepo) Load(_ context.Context, principalID int64, deviceID, collectionID string) (*models.SyncState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := stateKey(principalID, deviceID, collectionID)
	if s, ok := f.states[key]; ok {
		copied := *s
		return &copied, nil
	}
	s := &models.SyncState{
		PrincipalID:    principalID,
		DeviceID:       deviceID,
		CollectionID:   collectionID,
		CurrentSyncKey: "0",
	}
	f.states[key] = s
	copied := *s
	return &copied, nil
}

func (f *fakeStateRepo) Save(_ context.Context, state *models.SyncState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *state
	f.states[stateKey(state.PrincipalID, state.DeviceID, state.CollectionID)] = &copied
	return nil
}

func (f *fakeStateRepo) Delete(_ context.Context, principalID int64, deviceID, collectionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, stateKey(principalID, deviceID, collectionID))
	return nil
}

func (f *fakeStateRepo) ClearStalePending(context.Context, int) (int64, error) {
	return 0, nil
}

type fakeDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]*models.Device
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{devices: make(map[string]*models.Device)}
}

func (f *fakeDeviceRepo) GetOrCreate(_ context.Context, principalID int64, deviceID, deviceType, userAgent string) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := DeviceKey(principalID, deviceID)
	if d, ok := f.devices[key]; ok {
		copied := *d
		return &copied, nil
	}
	d := &models.Device{
		PrincipalID: principalID,
		DeviceID:    deviceID,
		DeviceType:  deviceType,
		UserAgent:   userAgent,
		PolicyKey:   "0",
		Provision:   models.ProvisionStateNone,
	}
	f.devices[key] = d
	copied := *d
	return &copied, nil
}

func (f *fakeDeviceRepo) Save(_ context.Context, device *models.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *device
	f.devices[DeviceKey(device.PrincipalID, device.DeviceID)] = &copied
	return nil
}

func (f *fakeDeviceRepo) ListIdleSince(context.Context, int) ([]models.Device, error) {
	return nil, nil
}

type fakeFolderRepo struct{}

func (fakeFolderRepo) ListByPrincipal(_ context.Context, principalID int64) ([]models.Folder, error) {
	return models.DefaultFolders(principalID), nil
}

func (fakeFolderRepo) GetByCollectionID(_ context.Context, principalID int64, collectionID string) (*models.Folder, error) {
	for _, f := range models.DefaultFolders(principalID) {
		if f.CollectionID == collectionID {
			return &f, nil
		}
	}
	return nil, nil
}

type fakePrincipalRepo struct{}

func (fakePrincipalRepo) GetByEmail(_ context.Context, email string) (*models.Principal, error) {
	if email == "alice@example.com" {
		return &models.Principal{ID: 1, EmailAddress: email, Secret: "s3cret"}, nil
	}
	return nil, nil
}

// testEnv wires the service against the fakes.
type testEnv struct {
	svc    interfaces.ActiveSyncService
	store  *fakeStore
	states *fakeStateRepo
	device *fakeDeviceRepo
}

func newTestEnv() *testEnv {
	store := &fakeStore{}
	states := newFakeStateRepo()
	devices := newFakeDeviceRepo()
	repos := &repository.Repositories{
		PrincipalRepository: fakePrincipalRepo{},
		DeviceRepository:    devices,
		SyncStateRepository: states,
		FolderRepository:    fakeFolderRepo{},
		EmailRepository:     nil, // handlers go through the store facade
	}
	return &testEnv{
		svc:    NewActiveSyncService(newTestLogger(), repos, store),
		store:  store,
		states: states,
		device: devices,
	}
}

func seedInbox(store *fakeStore, principalID int64, n int) {
	for i := 1; i <= n; i++ {
		store.items = append(store.items, &models.Email{
			ID:           int64(i),
			PrincipalID:  principalID,
			CollectionID: "1",
			Subject:      "message",
			FromAddress:  "alice@example.com",
			ToAddress:    "bob@example.com",
			ReceivedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
			BodyText:     "body text",
			BodyHTML:     "<p>body <b>text</b></p>",
		})
	}
}
