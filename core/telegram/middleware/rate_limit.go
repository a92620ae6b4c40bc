package middleware

import (
	"log/slog"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/gruppenrun/clubbot/core/logger"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
// Typed messages and callback presses carry independent minimum intervals;
// actions arriving too fast are dropped, never queued.
type RateLimitOptions struct {
	MessageInterval  time.Duration
	CallbackInterval time.Duration
	// OnLimited, when set, emits a throttling notice to the user. Dropped
	// actions are not buffered or retried either way.
	OnLimited tele.HandlerFunc
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// RateLimit returns a middleware that enforces a minimum interval between
// actions from the same user.
func RateLimit(opts RateLimitOptions) tele.MiddlewareFunc {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	var (
		lastSeen   = make(map[int64]time.Time)
		lastSeenMu sync.Mutex
	)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return next(c)
			}

			interval := opts.MessageInterval
			if c.Update().Callback != nil {
				interval = opts.CallbackInterval
			}
			if interval <= 0 {
				return next(c)
			}

			now := opts.Now()

			lastSeenMu.Lock()
			last, seen := lastSeen[user.ID]
			if seen && now.Sub(last) < interval {
				lastSeenMu.Unlock()
				logger.TG.Warn("rate limit",
					slog.String("event", "tg.rate_limit"),
					slog.Int64("user_id", user.ID),
				)
				if opts.OnLimited != nil {
					_ = opts.OnLimited(c)
				}
				return nil
			}
			lastSeen[user.ID] = now
			lastSeenMu.Unlock()

			return next(c)
		}
	}
}
