// Package classes exposes the agenda over chat commands: what is on right
// now, and the full plan for a day.
package classes

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"classbot/internal/agenda"
	"classbot/internal/core"
	"classbot/internal/kit"
	"classbot/internal/render"
)

// trigger is the plain-text phrase that asks for the current event without
// a slash command.
const trigger = "link asap"

var htmlOpts = &kit.SendOptions{ParseMode: "HTML", DisablePreview: true}

type Plugin struct {
	log    *slog.Logger
	agenda *agenda.Store
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "classes" }

func (p *Plugin) Init(ctx context.Context, deps core.PluginDeps) error {
	p.log = deps.Logger
	p.agenda = deps.Agenda
	return nil
}

func (p *Plugin) Start(ctx context.Context) error { return nil }
func (p *Plugin) Stop(ctx context.Context) error  { return nil }

func (p *Plugin) Commands() []core.Command {
	return []core.Command{
		{
			Name:        "now",
			Description: "current and next event",
			Usage:       "/now [2006-01-02 15:04 | 15:04]",
			Access:      core.AccessAllowed,
			Handle:      p.handleNow,
		},
		{
			Name:        "agenda",
			Description: "events for a day",
			Usage:       "/agenda [2006-01-02 | +N]",
			Access:      core.AccessAllowed,
			Handle:      p.handleAgenda,
		},
	}
}

func (p *Plugin) Matchers() []core.Matcher {
	return []core.Matcher{
		{
			Name:   "now.trigger",
			Access: core.AccessAllowed,
			Match: func(text string) bool {
				return strings.Contains(strings.ToLower(text), trigger)
			},
			Handle: p.handleTrigger,
		},
	}
}

func (p *Plugin) handleNow(ctx context.Context, req *core.Request) error {
	at := time.Now().In(p.agenda.Location())
	if len(req.Args) > 0 {
		parsed, err := parseWhen(strings.Join(req.Args, " "), at)
		if err != nil {
			_, _ = req.Adapter.SendText(ctx, req.Chat, render.InvalidArgument(), nil)
			return nil
		}
		at = parsed
	}
	return p.sendNow(ctx, req, at, "")
}

func (p *Plugin) handleTrigger(ctx context.Context, req *core.Request) error {
	prefix := ""
	text := req.Update.Message.Text
	if text == strings.ToUpper(text) {
		prefix = render.NoShoutingPrefix()
	}
	at := time.Now().In(p.agenda.Location())
	return p.sendNow(ctx, req, at, prefix)
}

func (p *Plugin) sendNow(ctx context.Context, req *core.Request, at time.Time, prefix string) error {
	cls, err := p.agenda.ClassifyAt(at)
	if err != nil {
		return err
	}
	_, err = req.Adapter.SendText(ctx, req.Chat, prefix+render.Now(cls, at), htmlOpts)
	return err
}

func (p *Plugin) handleAgenda(ctx context.Context, req *core.Request) error {
	date := time.Now().In(p.agenda.Location())
	if len(req.Args) > 0 {
		parsed, err := parseDay(strings.Join(req.Args, " "), date)
		if err != nil {
			_, _ = req.Adapter.SendText(ctx, req.Chat, render.InvalidArgument(), nil)
			return nil
		}
		date = parsed
	}
	events, err := p.agenda.ResolveDay(date)
	if err != nil {
		return err
	}
	_, err = req.Adapter.SendText(ctx, req.Chat, render.Agenda(events), htmlOpts)
	return err
}

// parseWhen accepts "2006-01-02 15:04", a bare date, or a bare clock
// (applied to today).
func parseWhen(arg string, now time.Time) (time.Time, error) {
	arg = strings.TrimSpace(arg)
	loc := now.Location()
	if t, err := time.ParseInLocation("2006-01-02 15:04", arg, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", arg, loc); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("15:04", arg, loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

// parseDay accepts "2006-01-02" or a "+N" day offset from today.
func parseDay(arg string, now time.Time) (time.Time, error) {
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(arg, "+") {
		n, err := strconv.Atoi(arg[1:])
		if err != nil {
			return time.Time{}, err
		}
		return now.AddDate(0, 0, n), nil
	}
	return time.ParseInLocation("2006-01-02", arg, now.Location())
}
