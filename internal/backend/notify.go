package backend

import (
	"context"
	"log/slog"

	"budgetboard/internal/amqp"
	"budgetboard/internal/core"
	"budgetboard/internal/store"
)

// NotifyingStore announces every successful write through a Notifier. A
// failed announcement is logged and does not fail the write.
type NotifyingStore struct {
	store.ReadWriter
	notifier Notifier
	logger   *slog.Logger
}

func NewNotifyingStore(rw store.ReadWriter, n Notifier, logger *slog.Logger) *NotifyingStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotifyingStore{ReadWriter: rw, notifier: n, logger: logger}
}

func (s *NotifyingStore) PutRecord(ctx context.Context, r core.BudgetRecord) error {
	if err := s.ReadWriter.PutRecord(ctx, r); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewRecordsChangedMessage(amqp.OpPut, r.ID, r.UserID))
	return nil
}

func (s *NotifyingStore) DeleteRecord(ctx context.Context, id string) error {
	if err := s.ReadWriter.DeleteRecord(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewRecordsChangedMessage(amqp.OpDelete, id, ""))
	return nil
}

func (s *NotifyingStore) publish(ctx context.Context, msg *amqp.RecordsChangedMessage) {
	if err := s.notifier.PublishRecordsChanged(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish records changed message",
			"error", err,
			"op", msg.Op,
			"record_id", msg.RecordID)
	}
}
