package middleware

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/gruppenrun/clubbot/core/logger"
	"github.com/gruppenrun/clubbot/core/telegram/state"
)

// VersionStore is the slice of user storage the version gate needs.
type VersionStore interface {
	UserBotVersion(userID string) (string, error)
	SetUserBotVersion(userID, version string) error
}

// VersionGate drops in-flight dialogue sessions of users who last talked
// to an older bot version. The user is told once and continues from the
// home screen; completed registrations are untouched.
func VersionGate(version string, store VersionStore, sessions state.Manager, userIDOf func(int64) string) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return next(c)
			}
			id := userIDOf(sender.ID)

			seen, err := store.UserBotVersion(id)
			if err != nil {
				logger.TG.Warn("version lookup failed",
					slog.String("event", "tg.version_gate"),
					slog.String("user_id", id),
					slog.String("err", err.Error()),
				)
				return next(c)
			}
			if seen == version {
				return next(c)
			}

			sessions.Clear(sender.ID)
			if err := store.SetUserBotVersion(id, version); err != nil {
				logger.TG.Warn("version update failed",
					slog.String("event", "tg.version_gate"),
					slog.String("user_id", id),
					slog.String("err", err.Error()),
				)
			}

			if seen != "" {
				_ = c.Send("🔄 Бот был обновлён! Используй /start для продолжения работы.", &tele.ReplyMarkup{RemoveKeyboard: true})
				return nil
			}
			return next(c)
		}
	}
}
