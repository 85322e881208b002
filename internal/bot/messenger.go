// Package bot turns Telegram updates into service calls and replies.
package bot

import (
	"context"

	"github.com/noah-isme/tutorbot/internal/models"
)

// Button is one inline keyboard button carrying callback data.
type Button struct {
	Text string
	Data string
}

// Keyboard is a grid of inline buttons, row by row.
type Keyboard [][]Button

// Reply is an outgoing message. ForceReply asks the client to open the reply
// field and cannot be combined with an inline keyboard.
type Reply struct {
	Text       string
	Keyboard   Keyboard
	Markdown   bool
	ForceReply bool
}

// Document is a generated file sent to a chat.
type Document struct {
	Name    string
	Data    []byte
	Caption string
}

// Messenger is the subset of the chat API the router talks to.
type Messenger interface {
	Send(ctx context.Context, chatID int64, reply Reply) error
	Edit(ctx context.Context, chatID int64, messageID int, reply Reply) error
	AnswerCallback(ctx context.Context, callbackID string) error
	SendDocument(ctx context.Context, chatID int64, doc Document) error
	SendMedia(ctx context.Context, chatID int64, kind models.ContentType, fileID, caption string) error
}

func btn(text, data string) Button {
	return Button{Text: text, Data: data}
}

func row(buttons ...Button) []Button {
	return buttons
}
