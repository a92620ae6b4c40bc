package bot

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/gruppenrun/clubbot/core/telegram/format"
	"github.com/gruppenrun/clubbot/internal/calendar"
	"github.com/gruppenrun/clubbot/internal/dialogue"
	"github.com/gruppenrun/clubbot/internal/domain"
	"github.com/gruppenrun/clubbot/internal/service"
)

// adminPanel renders the full roster: per-event registration lists plus
// breakfast pre-orders. Read-only; edits happen through the flows.
func (b *Bot) adminPanel(c tele.Context) error {
	var report strings.Builder

	for _, def := range calendar.All() {
		regs, err := b.Store.ListRegistrations(def.Kind, def.Location)
		if err != nil {
			return err
		}
		fmt.Fprintf(&report, "*%s — %d*\n", format.EscapeMarkdownV2(adminEventTitle(def.Kind, def.Location)), len(regs))
		for _, reg := range regs {
			report.WriteString("  • " + format.EscapeMarkdownV2(b.rosterLine(reg)) + "\n")
		}
		report.WriteString("\n")
	}

	if err := c.Send(report.String(), tele.ModeMarkdownV2); err != nil {
		return err
	}
	return b.sendBreakfastRoster(c)
}

func (b *Bot) rosterLine(reg *domain.Registration) string {
	name := reg.UserID
	if u, err := b.Store.GetUser(reg.UserID); err == nil && u.Name != "" {
		name = u.Name
		if u.Phone != "" {
			name += ", " + u.Phone
		}
	}

	var details []string
	switch {
	case reg.Kind == domain.KindWaitingList:
		details = append(details, "лист ожидания")
	case reg.TargetNumber != nil:
		details = append(details, fmt.Sprintf("№%d", *reg.TargetNumber))
	case reg.ValidUntil != nil:
		details = append(details, "абонемент до "+reg.ValidUntil.Format("02.01.2006"))
	}
	if reg.Attrs != nil {
		if len(reg.Attrs.Stages) > 0 {
			labels := make([]string, len(reg.Attrs.Stages))
			for i, id := range reg.Attrs.Stages {
				labels[i] = dialogue.StageLabel(id)
			}
			details = append(details, "этапы: "+strings.Join(labels, "; "))
		}
		if reg.Attrs.Pace != "" {
			details = append(details, "темп "+reg.Attrs.Pace)
		}
		if reg.Attrs.PaymentTier != "" {
			details = append(details, "оплата "+reg.Attrs.PaymentTier+"%")
		}
		if reg.Attrs.Diet != "" {
			details = append(details, "питание: "+reg.Attrs.Diet)
		}
	}

	if len(details) == 0 {
		return name
	}
	return name + " (" + strings.Join(details, ", ") + ")"
}

func (b *Bot) sendBreakfastRoster(c tele.Context) error {
	users, err := b.Store.ListUsers()
	if err != nil {
		return err
	}

	var report strings.Builder
	report.WriteString("🍳 Предзаказ завтраков\n")
	totals := make(map[string]int)
	orders := 0
	for _, u := range users {
		order, err := b.Store.GetBreakfastOrder(u.ID)
		if err != nil {
			continue
		}
		orders++
		fmt.Fprintf(&report, "  • %s — %d ₽\n", u.Name, order.TotalPrice)
		for key, n := range order.Items {
			totals[key] += n
		}
	}
	if orders == 0 {
		report.WriteString("  пока нет заказов\n")
	} else {
		report.WriteString("\nИтого по позициям:\n")
		for _, item := range service.BreakfastMenu {
			if n := totals[item.Key]; n > 0 {
				fmt.Fprintf(&report, "  %s ×%d\n", strings.SplitN(item.Name, "\n", 2)[0], n)
			}
		}
	}
	return c.Send(report.String())
}

func adminEventTitle(event domain.EventKind, loc domain.Location) string {
	switch {
	case event == domain.EventWeeklyRun && loc == domain.LocationShartash:
		return "⚪ Группенран Шарташ"
	case event == domain.EventWeeklyRun && loc == domain.LocationUktus:
		return "⚫ Группенран Трейл"
	case event == domain.EventRelay:
		return "🌍 Кругосветка"
	case event == domain.EventCamp:
		return "🏔 Иремель Кэмп"
	}
	return string(event)
}
