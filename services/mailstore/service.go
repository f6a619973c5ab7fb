// Package mailstore is the read-only facade the ActiveSync core consumes:
// item listing and counting with exclude-set pagination, folder hierarchy,
// MIME retrieval and change notification for long-poll Ping.
package mailstore

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/syncgate/syncgate/interfaces"
	easerrors "github.com/syncgate/syncgate/internal/errors"
	"github.com/syncgate/syncgate/internal/logger"
	"github.com/syncgate/syncgate/internal/models"
	"github.com/syncgate/syncgate/internal/repository"
	"github.com/syncgate/syncgate/internal/tracing"
)

type mailStoreService struct {
	log   logger.Logger
	repos *repository.Repositories
	mime  interfaces.MimeBuilder
	hub   *changeHub
}

// NewMailStoreService returns the store facade. The second return value is
// the publish side handed to the events listener.
func NewMailStoreService(log logger.Logger, repos *repository.Repositories, mime interfaces.MimeBuilder) (interfaces.MailStore, interfaces.ChangePublisher) {
	s := &mailStoreService{
		log:   log,
		repos: repos,
		mime:  mime,
		hub:   newChangeHub(),
	}
	return s, s.hub
}

func (s *mailStoreService) ListItems(ctx context.Context, principalID int64, collectionID string, minIDExclusive int64, excludeIDs []int64, limit int) ([]models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailStoreService.ListItems")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	items, err := s.repos.EmailRepository.ListAfter(ctx, principalID, collectionID, minIDExclusive, excludeIDs, limit)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(easerrors.ErrStoreUnavailable, err.Error())
	}
	return items, nil
}

func (s *mailStoreService) CountNew(ctx context.Context, principalID int64, collectionID string, minIDExclusive int64, excludeIDs []int64) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailStoreService.CountNew")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	count, err := s.repos.EmailRepository.CountAfter(ctx, principalID, collectionID, minIDExclusive, excludeIDs)
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, errors.Wrap(easerrors.ErrStoreUnavailable, err.Error())
	}
	return count, nil
}

func (s *mailStoreService) GetItem(ctx context.Context, principalID int64, itemID int64) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailStoreService.GetItem")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	item, err := s.repos.EmailRepository.GetByID(ctx, principalID, itemID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(easerrors.ErrStoreUnavailable, err.Error())
	}
	if item == nil {
		return nil, easerrors.ErrItemNotFound
	}
	return item, nil
}

func (s *mailStoreService) ListFolders(ctx context.Context, principalID int64) ([]models.Folder, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailStoreService.ListFolders")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	folders, err := s.repos.FolderRepository.ListByPrincipal(ctx, principalID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(easerrors.ErrStoreUnavailable, err.Error())
	}
	return folders, nil
}

func (s *mailStoreService) MarkRead(ctx context.Context, principalID int64, itemID int64, read bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailStoreService.MarkRead")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	item, err := s.repos.EmailRepository.GetByID(ctx, principalID, itemID)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(easerrors.ErrStoreUnavailable, err.Error())
	}
	if item == nil {
		return easerrors.ErrItemNotFound
	}
	if err := s.repos.EmailRepository.SetRead(ctx, principalID, itemID, read); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(easerrors.ErrStoreUnavailable, err.Error())
	}
	// Other devices of the same principal long-polling this collection
	// should learn about the flag change.
	s.hub.PublishChange(principalID, item.CollectionID)
	return nil
}

func (s *mailStoreService) EmptyFolder(ctx context.Context, principalID int64, collectionID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailStoreService.EmptyFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	deleted, err := s.repos.EmailRepository.DeleteByCollection(ctx, principalID, collectionID)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(easerrors.ErrStoreUnavailable, err.Error())
	}
	s.log.Infof("emptied collection %s for principal %d (%d items)", collectionID, principalID, deleted)
	s.hub.PublishChange(principalID, collectionID)
	return nil
}

func (s *mailStoreService) BuildOrFetchMime(ctx context.Context, item *models.Email) ([]byte, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "mailStoreService.BuildOrFetchMime")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	raw, err := s.mime.Build(item)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return raw, nil
}

func (s *mailStoreService) SubscribeChanges(ctx context.Context, principalID int64, collectionIDs []string, timeout time.Duration) ([]string, error) {
	return s.hub.wait(ctx, principalID, collectionIDs, timeout)
}
