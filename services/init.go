package services

import (
	"github.com/syncgate/syncgate/interfaces"
	"github.com/syncgate/syncgate/internal/logger"
	"github.com/syncgate/syncgate/internal/repository"
	"github.com/syncgate/syncgate/services/activesync"
	"github.com/syncgate/syncgate/services/events"
	"github.com/syncgate/syncgate/services/mailstore"
	"github.com/syncgate/syncgate/services/mime"
)

type Services struct {
	MimeBuilder     interfaces.MimeBuilder
	MailStore       interfaces.MailStore
	ChangePublisher interfaces.ChangePublisher
	ActiveSync      interfaces.ActiveSyncService
	EventsListener  *events.Listener
}

func InitServices(rabbitmqURL, mimeHostname string, log logger.Logger, repos *repository.Repositories) *Services {
	mimeBuilder := mime.NewBuilder(mimeHostname)
	store, publisher := mailstore.NewMailStoreService(log, repos, mimeBuilder)

	return &Services{
		MimeBuilder:     mimeBuilder,
		MailStore:       store,
		ChangePublisher: publisher,
		ActiveSync:      activesync.NewActiveSyncService(log, repos, store),
		EventsListener:  events.NewListener(rabbitmqURL, log, publisher),
	}
}
