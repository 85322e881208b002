package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorbot/internal/models"
)

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// TelegramMessenger implements Messenger (and service.Sender) on top of the
// Bot API client.
type TelegramMessenger struct {
	api    botAPI
	logger *zap.Logger
}

// NewTelegramMessenger wraps an authenticated Bot API client.
func NewTelegramMessenger(api botAPI, logger *zap.Logger) *TelegramMessenger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramMessenger{api: api, logger: logger}
}

// Send posts a new message.
func (t *TelegramMessenger) Send(_ context.Context, chatID int64, reply Reply) error {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if reply.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	switch {
	case reply.ForceReply:
		msg.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true, Selective: true}
	case len(reply.Keyboard) > 0:
		msg.ReplyMarkup = inlineMarkup(reply.Keyboard)
	}
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Edit replaces the text and keyboard of an earlier bot message. Prompts that
// need a reply field are sent as new messages since edits cannot carry one.
func (t *TelegramMessenger) Edit(ctx context.Context, chatID int64, messageID int, reply Reply) error {
	if reply.ForceReply || messageID == 0 {
		return t.Send(ctx, chatID, reply)
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, reply.Text)
	if reply.Markdown {
		edit.ParseMode = tgbotapi.ModeMarkdown
	}
	if len(reply.Keyboard) > 0 {
		markup := inlineMarkup(reply.Keyboard)
		edit.ReplyMarkup = &markup
	}
	if _, err := t.api.Request(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// AnswerCallback stops the client's loading spinner.
func (t *TelegramMessenger) AnswerCallback(_ context.Context, callbackID string) error {
	if _, err := t.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// SendDocument uploads generated bytes as a file.
func (t *TelegramMessenger) SendDocument(_ context.Context, chatID int64, doc Document) error {
	cfg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: doc.Name, Bytes: doc.Data})
	cfg.Caption = doc.Caption
	if _, err := t.api.Send(cfg); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

// SendMedia re-sends a file already stored by Telegram.
func (t *TelegramMessenger) SendMedia(_ context.Context, chatID int64, kind models.ContentType, fileID, caption string) error {
	file := tgbotapi.FileID(fileID)
	var cfg tgbotapi.Chattable
	switch kind {
	case models.ContentPhoto:
		photo := tgbotapi.NewPhoto(chatID, file)
		photo.Caption = caption
		cfg = photo
	case models.ContentAudio:
		audio := tgbotapi.NewAudio(chatID, file)
		audio.Caption = caption
		cfg = audio
	case models.ContentVoice:
		voice := tgbotapi.NewVoice(chatID, file)
		voice.Caption = caption
		cfg = voice
	default:
		doc := tgbotapi.NewDocument(chatID, file)
		doc.Caption = caption
		cfg = doc
	}
	if _, err := t.api.Send(cfg); err != nil {
		return fmt.Errorf("send %s: %w", kind, err)
	}
	return nil
}

// SendText delivers a plain notification.
func (t *TelegramMessenger) SendText(ctx context.Context, chatID int64, text string) error {
	return t.Send(ctx, chatID, Reply{Text: text})
}

func inlineMarkup(kb Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
