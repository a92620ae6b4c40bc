package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	tele "gopkg.in/telebot.v4"

	"github.com/gruppenrun/clubbot/core/logger"
)

// adminTraceLimit bounds the stack excerpt relayed to the admin chat.
const adminTraceLimit = 1500

// Recover catches panics in handlers so one user's error never crashes the
// process. The full stack goes to the log; a truncated trace is mirrored
// to the admin chat.
func Recover(adminID int64) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			defer func() {
				if r := recover(); r != nil {
					stack := debug.Stack()
					logger.TG.Error("panic recovered",
						slog.String("event", "tg.panic"),
						slog.Any("err", r),
						slog.String("stack", string(stack)),
					)
					if adminID == 0 {
						return
					}
					trace := string(stack)
					if len(trace) > adminTraceLimit {
						trace = trace[:adminTraceLimit] + "…"
					}
					_, err := c.Bot().Send(
						&tele.User{ID: adminID},
						fmt.Sprintf("⚠️ Ошибка в боте:\n%v\n\n%s", r, trace),
					)
					if err != nil {
						logger.TG.Warn("admin panic relay failed",
							slog.String("event", "tg.panic"),
							slog.String("err", err.Error()),
						)
					}
				}
			}()
			return next(c)
		}
	}
}
