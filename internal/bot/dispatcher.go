package bot

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorbot/pkg/jobs"
)

type updateHandler interface {
	HandleUpdate(ctx context.Context, upd tgbotapi.Update)
}

type updateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Dispatcher feeds updates from polling or the webhook to the router. A
// single worker keeps updates in arrival order.
type Dispatcher struct {
	queue  *jobs.Queue[tgbotapi.Update]
	logger *zap.Logger
}

// NewDispatcher builds a dispatcher; Start must be called before Enqueue.
func NewDispatcher(router updateHandler, buffer int, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	handle := func(ctx context.Context, job jobs.Job[tgbotapi.Update]) error {
		router.HandleUpdate(ctx, job.Payload)
		return nil
	}
	return &Dispatcher{
		queue: jobs.NewQueue[tgbotapi.Update]("updates", handle, jobs.QueueConfig{
			Workers:    1,
			BufferSize: buffer,
			Logger:     logger,
		}),
		logger: logger,
	}
}

// Start launches the worker.
func (d *Dispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains buffered updates and waits for the worker.
func (d *Dispatcher) Stop() {
	d.queue.Stop()
}

// Enqueue accepts an update without blocking. The webhook relies on the
// error to make Telegram redeliver.
func (d *Dispatcher) Enqueue(upd tgbotapi.Update) error {
	return d.queue.Enqueue(updateJob(upd))
}

func updateJob(upd tgbotapi.Update) jobs.Job[tgbotapi.Update] {
	return jobs.Job[tgbotapi.Update]{
		ID:      strconv.Itoa(upd.UpdateID),
		Kind:    "update",
		Payload: upd,
	}
}

// Poll reads long-polling updates until ctx is done. A full buffer pauses
// reading instead of dropping updates.
func (d *Dispatcher) Poll(ctx context.Context, src updateSource, timeout int) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = timeout
	updates := src.GetUpdatesChan(cfg)
	defer src.StopReceivingUpdates()

	d.logger.Info("long polling started", zap.Int("timeout", timeout))
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("long polling stopped")
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			if err := d.queue.EnqueueWait(ctx, updateJob(upd)); err != nil {
				d.logger.Warn("update dropped", zap.Int("update_id", upd.UpdateID), zap.Error(err))
			}
		}
	}
}
