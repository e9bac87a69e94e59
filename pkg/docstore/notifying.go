package docstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/schedario/schedario/pkg/notify"
	"github.com/schedario/schedario/pkg/observability/logger"
)

// NotifyingStore wraps a Store and publishes a change event after every
// successful mutation. Publishing is best effort: a notifier failure is
// logged and the operation result is returned unchanged.
type NotifyingStore struct {
	inner    Store
	notifier notify.Notifier
	log      logger.Logger
	now      func() time.Time
}

// NewNotifyingStore wraps inner with change-event publishing.
func NewNotifyingStore(inner Store, notifier notify.Notifier, log logger.Logger) *NotifyingStore {
	if log == nil {
		log = logger.Nop()
	}
	return &NotifyingStore{inner: inner, notifier: notifier, log: log, now: time.Now}
}

func (s *NotifyingStore) Collection() string { return s.inner.Collection() }

func (s *NotifyingStore) publish(ctx context.Context, action notify.Action, id string) {
	event := notify.Event{
		ID:         uuid.NewString(),
		Collection: s.Collection(),
		Entity:     id,
		Action:     action,
		At:         s.now().UTC(),
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish change event",
			"collection", event.Collection,
			"entity", event.Entity,
			"action", event.Action,
			"error", err,
		)
	}
}

// Create forwards to the inner store and publishes a created event.
func (s *NotifyingStore) Create(ctx context.Context, entity Document) (Document, error) {
	doc, err := s.inner.Create(ctx, entity)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, notify.ActionCreated, doc.ID())
	return doc, nil
}

// Update forwards to the inner store and publishes an updated event.
func (s *NotifyingStore) Update(ctx context.Context, id string, values Document) (Document, error) {
	doc, err := s.inner.Update(ctx, id, values)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, notify.ActionUpdated, id)
	return doc, nil
}

// Delete forwards to the inner store and publishes a deleted event.
func (s *NotifyingStore) Delete(ctx context.Context, id string) (Document, error) {
	doc, err := s.inner.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, notify.ActionDeleted, id)
	return doc, nil
}

// Reads forward unchanged.

func (s *NotifyingStore) List(ctx context.Context, limit int, orderBy string, continuation *Cursor) (ListResult, error) {
	return s.inner.List(ctx, limit, orderBy, continuation)
}

func (s *NotifyingStore) GetAll(ctx context.Context) (ResultMap, error) {
	return s.inner.GetAll(ctx)
}

func (s *NotifyingStore) Find(ctx context.Context, opts FindOptions) (ResultMap, error) {
	return s.inner.Find(ctx, opts)
}

func (s *NotifyingStore) FindByID(ctx context.Context, id string) (Document, error) {
	return s.inner.FindByID(ctx, id)
}

func (s *NotifyingStore) FindByIDs(ctx context.Context, ids []string) (ResultMap, error) {
	return s.inner.FindByIDs(ctx, ids)
}

var _ Store = (*NotifyingStore)(nil)
