// Package notify delivers out-of-band copies of business events to the
// admin chat. Delivery is best-effort; failures are logged, never
// propagated into the business flow.
package notify

import (
	"log/slog"

	"github.com/gruppenrun/clubbot/core/logger"
)

// Messenger sends messages outside of an in-flight update context.
type Messenger interface {
	SendText(chatID int64, text string) error
}

// Notifier mirrors events to the admin chat.
type Notifier struct {
	Messenger Messenger
	AdminID   int64
}

func New(m Messenger, adminID int64) *Notifier {
	return &Notifier{Messenger: m, AdminID: adminID}
}

// Admin mirrors a text to the admin chat, logging on failure.
func (n *Notifier) Admin(text string) {
	if n == nil || n.Messenger == nil || n.AdminID == 0 {
		return
	}
	if err := n.Messenger.SendText(n.AdminID, text); err != nil {
		logger.TG.Warn("admin notification failed",
			slog.String("event", "notify.admin"),
			slog.String("error", err.Error()),
		)
	}
}
