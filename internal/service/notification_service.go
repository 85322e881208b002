package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorbot/pkg/jobs"
)

// Sender delivers a plain text message to a chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Notification is one outbound message.
type Notification struct {
	ChatID int64
	Text   string
}

// Notifier is what services use to reach users outside of a reply.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string)
}

// NotificationService pushes messages through a worker queue. Delivery
// failures are logged and counted, never returned to callers.
type NotificationService struct {
	queue   *jobs.Queue[Notification]
	sender  Sender
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService builds the service; Start must be called before use.
func NewNotificationService(sender Sender, cfg jobs.QueueConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Logger = logger
	s := &NotificationService{sender: sender, metrics: metrics, logger: logger}
	s.queue = jobs.NewQueue[Notification]("notifications", s.deliver, cfg)
	s.queue.OnDrop(func(job jobs.Job[Notification], err error) {
		s.metrics.ObserveNotification(false)
		s.logger.Warn("notification dropped",
			zap.Int64("chat_id", job.Payload.ChatID),
			zap.Int("attempts", job.Attempt+1),
			zap.Error(err))
	})
	return s
}

// Start launches the workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains queued notifications and stops the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify enqueues a message for chatID. When the buffer is full it waits for
// room until ctx is done, so a reminder to a large group is not truncated.
func (s *NotificationService) Notify(ctx context.Context, chatID int64, text string) {
	job := jobs.Job[Notification]{
		ID:      uuid.NewString(),
		Kind:    "message",
		Payload: Notification{ChatID: chatID, Text: text},
	}
	if err := s.queue.EnqueueWait(ctx, job); err != nil {
		s.metrics.ObserveNotification(false)
		s.logger.Warn("notification not queued", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// NotifyMany enqueues the same message for every chat.
func (s *NotificationService) NotifyMany(ctx context.Context, chatIDs []int64, text string) {
	for _, id := range chatIDs {
		s.Notify(ctx, id, text)
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job[Notification]) error {
	if err := s.sender.SendText(ctx, job.Payload.ChatID, job.Payload.Text); err != nil {
		return err
	}
	s.metrics.ObserveNotification(true)
	s.logger.Debug("notification sent", zap.Int64("chat_id", job.Payload.ChatID))
	return nil
}
