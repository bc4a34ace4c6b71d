package store

import (
	"context"

	"launchpad/models"

	"github.com/sirupsen/logrus"
)

// MessageSink receives every message after it has been persisted.
type MessageSink interface {
	PublishMessage(ctx context.Context, m models.Message) error
}

// FeedStore emits a change event for each inserted message, standing in for the
// change feed a managed database would provide.
type FeedStore struct {
	Store
	sink   MessageSink
	logger *logrus.Entry
}

// WithFeed wraps s so message inserts are published to sink.
func WithFeed(s Store, sink MessageSink, logger *logrus.Entry) *FeedStore {
	return &FeedStore{Store: s, sink: sink, logger: logger}
}

// InsertMessages persists msgs and then publishes them. A publish failure is
// logged only: the rows are already the system of record.
func (f *FeedStore) InsertMessages(ctx context.Context, msgs []*models.Message) error {
	if err := f.Store.InsertMessages(ctx, msgs); err != nil {
		return err
	}
	for _, m := range msgs {
		if err := f.sink.PublishMessage(ctx, *m); err != nil {
			f.logger.WithError(err).WithField("message_id", m.ID).Warn("Change feed publish failed")
		}
	}
	return nil
}
