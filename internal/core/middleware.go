package core

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"classbot/internal/store"
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Middleware func(next HandlerFunc) HandlerFunc

func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

// deniedReply is the fixed text for allow-list rejections; no further info
// is leaked to the caller.
const deniedReply = "You don't have access to this command"

// MWAllowList guards a handler behind the static allow-list. The attempt is
// logged; there is no audit trail beyond that.
func MWAllowList(allow *store.AllowList) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if allow == nil || !allow.Allowed(req.Chat.ChatID) {
				req.Logger.Info("gated command denied", slog.Int64("chat_id", req.Chat.ChatID), slog.Int64("from_id", req.FromID))
				_, _ = req.Adapter.SendText(ctx, req.Chat, deniedReply, nil)
				return nil
			}
			return next(ctx, req)
		}
	}
}

func MWTimeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if d <= 0 {
				return next(ctx, req)
			}
			cctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(cctx, req)
		}
	}
}

// MWPanicRecover keeps a handler crash from taking the dispatcher down.
func MWPanicRecover(log *slog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger := log
					if req != nil && req.Logger != nil {
						logger = req.Logger
					}
					logger.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

func MWRequestLog(log *slog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			logger := log
			if req != nil && req.Logger != nil {
				logger = req.Logger
			}
			err := next(ctx, req)
			fields := []any{
				slog.Int64("chat_id", req.Chat.ChatID),
				slog.Int64("from_id", req.FromID),
				slog.String("cmd", req.Command),
				slog.Duration("dur", time.Since(start)),
			}
			if err != nil {
				logger.Warn("request failed", append(fields, slog.String("err", err.Error()))...)
			} else {
				logger.Info("request ok", fields...)
			}
			return err
		}
	}
}
