package middleware

import (
	"context"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/gruppenrun/clubbot/core/logger"
)

// Logging records every handled update with its outcome and duration.
func Logging(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		err := next(c)

		kind := "other"
		upd := c.Update()
		switch {
		case upd.Callback != nil:
			kind = "callback"
		case upd.Message != nil:
			kind = "message"
		}

		attrs := []slog.Attr{
			slog.String("event", "tg.update"),
			slog.String("kind", kind),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		}
		if sender := c.Sender(); sender != nil {
			attrs = append(attrs, slog.Int64("user_id", sender.ID))
		}
		if err != nil {
			attrs = append(attrs, slog.String("err", err.Error()))
			logger.TG.LogAttrs(context.Background(), slog.LevelError, "update failed", attrs...)
			return err
		}
		logger.TG.LogAttrs(context.Background(), slog.LevelDebug, "update handled", attrs...)
		return nil
	}
}
