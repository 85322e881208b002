package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/tutorbot/pkg/errors"
	"github.com/noah-isme/tutorbot/pkg/response"
)

type updateQueue interface {
	Enqueue(upd tgbotapi.Update) error
}

// ErrQueueFull tells Telegram to redeliver the update later.
var ErrQueueFull = appErrors.New("QUEUE_FULL", http.StatusServiceUnavailable, "update queue is full")

// WebhookHandler accepts updates pushed by Telegram.
type WebhookHandler struct {
	queue  updateQueue
	logger *zap.Logger
}

// NewWebhookHandler constructs a webhook handler.
func NewWebhookHandler(queue updateQueue, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{queue: queue, logger: logger}
}

// Receive decodes one update and hands it to the dispatcher.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var upd tgbotapi.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}
	if err := h.queue.Enqueue(upd); err != nil {
		h.logger.Warn("webhook update rejected", zap.Int("update_id", upd.UpdateID), zap.Error(err))
		response.Error(c, appErrors.Wrap(err, ErrQueueFull.Code, ErrQueueFull.Status, ErrQueueFull.Message))
		return
	}
	c.Status(http.StatusOK)
}
