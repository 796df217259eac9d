// Package subs manages the notification subscription of a chat.
package subs

import (
	"context"
	"log/slog"

	"classbot/internal/core"
	"classbot/internal/store"
)

type Plugin struct {
	log  *slog.Logger
	subs *store.Subscribers
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "subs" }

func (p *Plugin) Init(ctx context.Context, deps core.PluginDeps) error {
	p.log = deps.Logger
	p.subs = deps.Subscribers
	return nil
}

func (p *Plugin) Start(ctx context.Context) error { return nil }
func (p *Plugin) Stop(ctx context.Context) error  { return nil }

func (p *Plugin) Commands() []core.Command {
	return []core.Command{
		{
			Name:        "subscribe",
			Description: "get a message when each event starts",
			Usage:       "/subscribe",
			Access:      core.AccessAllowed,
			Handle:      p.handleSubscribe,
		},
		{
			// Leaving is open to anyone, joining is gated.
			Name:        "unsubscribe",
			Description: "stop event notifications",
			Usage:       "/unsubscribe",
			Access:      core.AccessEveryone,
			Handle:      p.handleUnsubscribe,
		},
	}
}

func (p *Plugin) handleSubscribe(ctx context.Context, req *core.Request) error {
	added, err := p.subs.Subscribe(req.Chat.ChatID)
	if err != nil {
		_, _ = req.Adapter.SendText(ctx, req.Chat, "Something went wrong, try again later", nil)
		return err
	}
	reply := "Subscribed! You will be notified when events start"
	if !added {
		reply = "This chat is already subscribed"
	}
	_, err = req.Adapter.SendText(ctx, req.Chat, reply, nil)
	return err
}

func (p *Plugin) handleUnsubscribe(ctx context.Context, req *core.Request) error {
	if err := p.subs.Unsubscribe(req.Chat.ChatID); err != nil {
		_, _ = req.Adapter.SendText(ctx, req.Chat, "Something went wrong, try again later", nil)
		return err
	}
	_, err := req.Adapter.SendText(ctx, req.Chat, "Unsubscribed, no more notifications", nil)
	return err
}
