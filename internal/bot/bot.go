// Package bot wires the dialogue engine and the registration service into
// telebot routes: the main menu, per-event entry points and the callback
// dispatch into in-flight dialogues.
package bot

import (
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/gruppenrun/clubbot/core/config"
	"github.com/gruppenrun/clubbot/core/telegram"
	"github.com/gruppenrun/clubbot/core/telegram/keyboard"
	"github.com/gruppenrun/clubbot/core/telegram/middleware"
	"github.com/gruppenrun/clubbot/core/telegram/state"
	"github.com/gruppenrun/clubbot/internal/dialogue"
	"github.com/gruppenrun/clubbot/internal/service"
	"github.com/gruppenrun/clubbot/internal/store"
)

// Main menu labels.
const (
	menuRunShartash = "⚪ Группенран Шарташ"
	menuRunUktus    = "⚫ Группенран Трейл"
	menuRelay       = "🌍 Кругосветка"
	menuCamp        = "🏔 Иремель Кэмп"
	menuProfile     = "👤 Мой профиль"
	menuFeedback    = "💬 Обратная связь"
	menuAdmin       = "📊 Админ-панель"
)

// Inline uniques of the event sub-menus.
const (
	cbRegisterShartash = "menu_reg_shartash"
	cbRegisterUktus    = "menu_reg_uktus"
)

const greeting = `Привет! Я бот бегового клуба 🏃

Помогу записаться на воскресные пробежки на Шарташе, субботний трейл на Уктусе, Кругосветку и выездной кэмп. Выбирай в меню, что тебе интересно!`

// Bot holds everything the handlers need.
type Bot struct {
	Cfg      *coreconfig.Config
	Engine   *dialogue.Engine
	Svc      *service.Registrations
	Store    store.Store
	Sessions state.Manager
}

func New(cfg *coreconfig.Config, e *dialogue.Engine, svc *service.Registrations, st store.Store, sessions state.Manager) *Bot {
	return &Bot{Cfg: cfg, Engine: e, Svc: svc, Store: st, Sessions: sessions}
}

// Middlewares returns the global middleware chain in registration order.
func (b *Bot) Middlewares() []telegram.Middleware {
	opts := middleware.RateLimitOptions{
		MessageInterval:  time.Duration(b.Cfg.RateLimit.MessageIntervalMS) * time.Millisecond,
		CallbackInterval: time.Duration(b.Cfg.RateLimit.CallbackIntervalMS) * time.Millisecond,
	}
	if b.Cfg.RateLimit.Notify {
		opts.OnLimited = func(c tele.Context) error {
			return c.Send("Не так быстро, пожалуйста 🙏")
		}
	}
	return []telegram.Middleware{
		{Name: "recover", Use: middleware.Recover(b.Cfg.Telegram.AdminID)},
		{Name: "logging", Use: middleware.Logging},
		{Name: "rate_limit", Use: middleware.RateLimit(opts)},
		{Name: "version_gate", Use: middleware.VersionGate(b.Cfg.BotVersion, b.Store, b.Sessions, userKey)},
	}
}

// Routes returns every handler binding for telegram.Run.
func (b *Bot) Routes() []telegram.Route {
	return []telegram.Route{
		{Endpoint: "/start", Handler: b.onStart},
		{Endpoint: tele.OnText, Handler: b.onText},
		{Endpoint: tele.OnContact, Handler: b.onContact},
		{Endpoint: tele.OnCallback, Handler: b.onCallback},
	}
}

func (b *Bot) mainMenu(userID int64) *tele.ReplyMarkup {
	rows := [][]string{
		{menuRunUktus, menuRunShartash},
		{menuRelay, menuCamp},
		{menuProfile, menuFeedback},
	}
	if userID == b.Cfg.Telegram.AdminID {
		rows = append(rows, []string{menuAdmin})
	}
	return keyboard.ReplyButtons(rows...)
}

func (b *Bot) onStart(c tele.Context) error {
	b.Engine.Cancel(c.Sender().ID)
	b.rememberUsername(c)
	return c.Send(greeting, b.mainMenu(c.Sender().ID))
}

func (b *Bot) onText(c tele.Context) error {
	userID := c.Sender().ID

	// An open dialogue owns every typed message.
	if b.Engine.InFlow(userID) {
		outs, handled, err := b.Engine.Handle(dialogue.Input{UserID: userID, Text: c.Text()})
		if err != nil {
			return err
		}
		if handled {
			return b.deliver(c, outs)
		}
	}

	switch c.Text() {
	case menuRunShartash:
		return c.Send("Воскресная пробежка на Шарташе. Старт в 9:00 у главного входа!",
			keyboard.Inline(
				keyboard.InlineBtn{Text: "🏃 Записаться", Unique: cbRegisterShartash},
				keyboard.InlineBtn{Text: "👥 Записать друга", Unique: dialogue.BtnFriend},
				keyboard.InlineBtn{Text: "🍳 Завтраки", Unique: dialogue.BtnBreakfast},
			))
	case menuRunUktus:
		return c.Send("Субботний трейл на Уктусе. Старт в 10:00!",
			keyboard.Inline(keyboard.InlineBtn{Text: "🏃 Записаться", Unique: cbRegisterUktus}))
	case menuRelay:
		return b.startFlow(c, dialogue.FlowRelay)
	case menuCamp:
		return b.startFlow(c, dialogue.FlowCamp)
	case menuProfile:
		return b.startFlow(c, dialogue.FlowProfile)
	case menuFeedback:
		return b.startFlow(c, dialogue.FlowFeedback)
	case menuAdmin:
		if userID == b.Cfg.Telegram.AdminID {
			return b.adminPanel(c)
		}
	}

	return c.Send("Не понял тебя 🤔 Выбери пункт в меню или набери /start.", b.mainMenu(userID))
}

func (b *Bot) onContact(c tele.Context) error {
	contact := c.Message().Contact
	if contact == nil {
		return nil
	}
	outs, handled, err := b.Engine.Handle(dialogue.Input{
		UserID:  c.Sender().ID,
		Contact: contact.PhoneNumber,
	})
	if err != nil {
		return err
	}
	if !handled {
		return nil
	}
	return b.deliver(c, outs)
}

func (b *Bot) onCallback(c tele.Context) error {
	defer func() { _ = c.Respond() }()

	data := strings.TrimPrefix(c.Callback().Data, "\f")
	unique, payload, _ := strings.Cut(data, "|")

	switch unique {
	case cbRegisterShartash:
		return b.startFlow(c, dialogue.FlowRunShartash)
	case cbRegisterUktus:
		return b.startFlow(c, dialogue.FlowRunUktus)
	case dialogue.BtnBreakfast:
		return b.startFlow(c, dialogue.FlowBreakfast)
	case dialogue.BtnFriend:
		return b.startFlow(c, dialogue.FlowFriend)
	case dialogue.BtnJoinWaitlist:
		return b.startFlow(c, dialogue.FlowWaitlist)
	}

	outs, handled, err := b.Engine.Handle(dialogue.Input{
		UserID: c.Sender().ID,
		Button: unique,
		Data:   payload,
	})
	if err != nil {
		return err
	}
	if !handled {
		// Stale button from a finished dialogue.
		return nil
	}
	return b.deliver(c, outs)
}

func (b *Bot) startFlow(c tele.Context, flow string) error {
	b.rememberUsername(c)
	outs, err := b.Engine.Start(c.Sender().ID, flow)
	if err != nil {
		return err
	}
	return b.deliver(c, outs)
}

// rememberUsername keeps the stored username fresh; profile data itself is
// only written by dialogue flows.
func (b *Bot) rememberUsername(c tele.Context) {
	sender := c.Sender()
	if sender == nil || sender.Username == "" {
		return
	}
	id := userKey(sender.ID)
	u, err := b.Store.GetUser(id)
	if err != nil || u.Username == sender.Username {
		return
	}
	u.Username = sender.Username
	_ = b.Store.SaveUser(u)
}
