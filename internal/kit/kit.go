// Package kit holds the transport-agnostic types shared between the core,
// the services and the Telegram adapter. Nothing in here may import other
// classbot packages.
package kit

import "context"

type UpdateKind string

const (
	UpdateMessage UpdateKind = "message"
)

type Update struct {
	Kind    UpdateKind
	Message *Message
}

type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string
}

// ChatTarget identifies an outbound destination.
type ChatTarget struct {
	ChatID int64
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

type BotCommand struct {
	Command     string
	Description string
}

// Adapter is the messaging transport boundary. The Telegram implementation
// lives in internal/adapters/telegram; tests use in-memory fakes.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
