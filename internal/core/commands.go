package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"classbot/internal/kit"
	"classbot/internal/store"
)

type Access int

const (
	AccessEveryone Access = iota
	// AccessAllowed restricts a command to chats on the static allow-list.
	AccessAllowed
)

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Access      Access
	Timeout     time.Duration // optional per-command override
	Handle      HandlerFunc
}

// Matcher handles plain (non-command) messages, e.g. trigger phrases.
type Matcher struct {
	Name   string
	Access Access
	Match  func(text string) bool
	Handle HandlerFunc
}

type Request struct {
	Update  kit.Update
	Chat    kit.ChatTarget
	FromID  int64
	Command string // command name or matcher name
	Args    []string
	ReqID   string

	Adapter kit.Adapter
	Logger  *slog.Logger
}

type CommandManager struct {
	mu       sync.RWMutex
	cmds     map[string]Command // name and aliases -> command
	order    []string           // canonical names, registration order
	matchers []Matcher

	log     *slog.Logger
	adapter kit.Adapter
	allow   *store.AllowList // swapped on config reload, read under mu
	timeout time.Duration

	jobs chan func()
}

func NewCommandManager(log *slog.Logger, adapter kit.Adapter, allow *store.AllowList, defaultTimeout time.Duration) *CommandManager {
	return &CommandManager{
		cmds:    map[string]Command{},
		log:     log,
		adapter: adapter,
		allow:   allow,
		timeout: defaultTimeout,
		jobs:    make(chan func(), 256),
	}
}

// SetRegistry replaces the routing table. /help is always injected.
func (m *CommandManager) SetRegistry(cmds []Command, matchers []Matcher) {
	helper := Command{
		Name:        "help",
		Aliases:     []string{"h"},
		Description: "show available commands",
		Usage:       "/help",
		Access:      AccessEveryone,
		Handle: func(ctx context.Context, req *Request) error {
			_, _ = req.Adapter.SendText(ctx, req.Chat, m.helpText(), &kit.SendOptions{DisablePreview: true})
			return nil
		},
	}
	cmds = append(cmds, helper)

	table := map[string]Command{}
	var order []string
	for _, c := range cmds {
		name := strings.TrimSpace(c.Name)
		if name == "" || c.Handle == nil {
			continue
		}
		table[name] = c
		order = append(order, name)
		for _, a := range c.Aliases {
			a = strings.TrimSpace(a)
			if a == "" {
				continue
			}
			table[a] = c
		}
	}

	m.mu.Lock()
	m.cmds = table
	m.order = order
	m.matchers = append([]Matcher(nil), matchers...)
	m.mu.Unlock()
}

// SetAllowList replaces the access guard; requests dispatched after the call
// are checked against the new list.
func (m *CommandManager) SetAllowList(allow *store.AllowList) {
	m.mu.Lock()
	m.allow = allow
	m.mu.Unlock()
}

// MenuCommands lists the canonical commands for the Telegram command menu.
func (m *CommandManager) MenuCommands() []kit.BotCommand {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]kit.BotCommand, 0, len(m.order))
	for _, name := range m.order {
		c := m.cmds[name]
		out = append(out, kit.BotCommand{Command: c.Name, Description: c.Description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Command < out[j].Command })
	return out
}

func (m *CommandManager) helpText() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lines := []string{"Commands:"}
	for _, name := range m.order {
		c := m.cmds[name]
		line := "/" + c.Name
		if c.Description != "" {
			line += " - " + c.Description
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// DispatchLoop consumes adapter updates and runs handlers on a bounded
// worker pool until ctx is done.
func (m *CommandManager) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}
	m.log.Info("command dispatcher started", slog.Int("workers", workers))

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-m.jobs:
					if !ok {
						return
					}
					job()
				}
			}
		}()
	}
	defer func() {
		wg.Wait()
		m.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			if up.Kind == kit.UpdateMessage && up.Message != nil {
				m.routeMessage(ctx, up)
			}
		}
	}
}

func (m *CommandManager) routeMessage(ctx context.Context, up kit.Update) {
	msg := up.Message
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		m.routeMatcher(ctx, up, text)
		return
	}

	parts := strings.Fields(text)
	word := strings.TrimPrefix(parts[0], "/")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i] // strip "@botname" suffix used in groups
	}

	m.mu.RLock()
	cmd, ok := m.cmds[word]
	m.mu.RUnlock()
	if !ok {
		_, _ = m.adapter.SendText(ctx, kit.ChatTarget{ChatID: msg.ChatID}, "unknown command, try /help", nil)
		return
	}
	m.enqueue(ctx, up, cmd.Name, parts[1:], cmd.Access, cmd.Timeout, cmd.Handle)
}

func (m *CommandManager) routeMatcher(ctx context.Context, up kit.Update, text string) {
	m.mu.RLock()
	matchers := m.matchers
	m.mu.RUnlock()
	for _, mt := range matchers {
		if mt.Match != nil && mt.Match(text) {
			m.enqueue(ctx, up, mt.Name, nil, mt.Access, 0, mt.Handle)
			return
		}
	}
}

func newReqID() string {
	var b [6]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func (m *CommandManager) enqueue(ctx context.Context, up kit.Update, name string, args []string, access Access, timeout time.Duration, handle HandlerFunc) {
	msg := up.Message
	rid := newReqID()
	reqLog := m.log.With(
		slog.String("rid", rid),
		slog.Int64("chat_id", msg.ChatID),
		slog.Int64("from_id", msg.FromID),
		slog.String("cmd", name),
	)
	req := &Request{
		Update:  up,
		Chat:    kit.ChatTarget{ChatID: msg.ChatID},
		FromID:  msg.FromID,
		Command: name,
		Args:    args,
		ReqID:   rid,
		Adapter: m.adapter,
		Logger:  reqLog,
	}

	if timeout <= 0 {
		timeout = m.timeout
	}
	mws := []Middleware{MWPanicRecover(m.log), MWRequestLog(m.log), MWTimeout(timeout)}
	if access == AccessAllowed {
		m.mu.RLock()
		allow := m.allow
		m.mu.RUnlock()
		mws = append(mws, MWAllowList(allow))
	}
	h := Chain(handle, mws...)

	job := func() { _ = h(ctx, req) }
	select {
	case m.jobs <- job:
	default:
		m.log.Warn("command queue full; dropping request", slog.String("cmd", name), slog.Int64("chat_id", msg.ChatID))
	}
}
