package dialogue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gruppenrun/clubbot/core/telegram/keyboard"
	"github.com/gruppenrun/clubbot/core/telegram/state"
	"github.com/gruppenrun/clubbot/internal/domain"
	"github.com/gruppenrun/clubbot/internal/validate"
)

const (
	stepProfileMenu  state.Step = "profile_menu"
	stepProfileName  state.Step = "profile_name"
	stepProfilePhone state.Step = "profile_phone"
	stepFeedback     state.Step = "feedback"
)

// profileFlow shows the stored profile with current registration status
// lines and offers name/phone edits.
func profileFlow() *Flow {
	return &Flow{
		Name: FlowProfile,
		Start: func(e *Engine, userID int64) (*Form, state.Step, []Output, error) {
			body, err := e.profileSummary(userID)
			if err != nil {
				return nil, "", nil, err
			}
			return &Form{}, stepProfileMenu, []Output{{Text: body}}, nil
		},
		Steps: []Step{
			profileMenuStep(),
			profileNameStep(),
			profilePhoneStep(),
		},
	}
}

func (e *Engine) profileSummary(userID int64) (string, error) {
	var b strings.Builder
	u, err := e.Store.GetUser(userKey(userID))
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		b.WriteString("Профиль пока пустой: имя и телефон появятся после первой записи.\n")
	case err != nil:
		return "", err
	default:
		fmt.Fprintf(&b, "👤 %s\n📱 %s\n", orDash(u.Name), orDash(u.Phone))
	}

	b.WriteString("\nТвои записи:\n")
	lines := 0
	for _, ev := range []struct {
		event domain.EventKind
		loc   domain.Location
		title string
	}{
		{domain.EventWeeklyRun, domain.LocationShartash, "Воскресная пробежка (Шарташ)"},
		{domain.EventWeeklyRun, domain.LocationUktus, "Субботний трейл (Уктус)"},
		{domain.EventRelay, domain.LocationNone, "Кругосветка"},
		{domain.EventCamp, domain.LocationNone, "Лагерь"},
	} {
		res, err := e.Svc.Status(userKey(userID), ev.event, ev.loc)
		if err != nil || res.Registration == nil {
			continue
		}
		reg := res.Registration
		switch {
		case reg.Kind == domain.KindWaitingList:
			fmt.Fprintf(&b, "• %s: лист ожидания\n", ev.title)
		case reg.TargetNumber != nil && reg.TargetDate != nil:
			fmt.Fprintf(&b, "• %s: №%d, %s\n", ev.title, *reg.TargetNumber, reg.TargetDate.Format("02.01.2006"))
		case reg.ValidUntil != nil:
			fmt.Fprintf(&b, "• %s: абонемент до %s\n", ev.title, reg.ValidUntil.Format("02.01.2006"))
		default:
			fmt.Fprintf(&b, "• %s: записан(а)\n", ev.title)
		}
		lines++
	}
	if lines == 0 {
		b.WriteString("• пока нет активных записей\n")
	}
	return b.String(), nil
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func profileMenuStep() Step {
	return Step{
		Name: stepProfileMenu,
		Prompt: func(e *Engine, f *Form) []Output {
			return []Output{{
				Text: "Можно изменить данные:",
				Rows: [][]keyboard.InlineBtn{
					{{Text: labelEditName, Unique: btnEditName}},
					{{Text: labelEditPhone, Unique: btnEditPhone}},
					{{Text: labelCancel, Unique: btnCancel}},
				},
			}}
		},
		Handle: func(e *Engine, userID int64, f *Form, in Input) (Result, error) {
			switch in.Button {
			case btnEditName:
				return Result{Next: stepProfileName}, nil
			case btnEditPhone:
				return Result{Next: stepProfilePhone}, nil
			}
			return Result{Stay: true}, nil
		},
	}
}

func profileNameStep() Step {
	return Step{
		Name: stepProfileName,
		Prompt: func(e *Engine, f *Form) []Output {
			return []Output{{Text: "Напиши новое имя и фамилию.", Rows: backRowOnly()}}
		},
		Handle: func(e *Engine, userID int64, f *Form, in Input) (Result, error) {
			if in.Text == "" {
				return Result{Stay: true}, nil
			}
			name, err := validate.Name(in.Text)
			if err != nil {
				var verr *validate.Error
				if errors.As(err, &verr) {
					return Result{Stay: true, Replies: []Output{text(verr.Hint)}}, nil
				}
				return Result{}, err
			}
			e.Sessions.Clear(userID)
			if err := e.saveProfile(userKey(userID), name, ""); err != nil {
				return Result{}, err
			}
			return Result{Finished: true, Replies: []Output{text("Готово! Теперь ты " + name + " 👍")}}, nil
		},
	}
}

func profilePhoneStep() Step {
	return Step{
		Name: stepProfilePhone,
		Prompt: func(e *Engine, f *Form) []Output {
			return []Output{{Text: "Отправь новый номер или поделись контактом.", ContactRequest: true}}
		},
		Handle: func(e *Engine, userID int64, f *Form, in Input) (Result, error) {
			raw := in.Contact
			if raw == "" {
				raw = in.Text
			}
			if raw == "" {
				return Result{Stay: true}, nil
			}
			phone, err := validate.Phone(raw)
			if err != nil {
				var verr *validate.Error
				if errors.As(err, &verr) {
					return Result{Stay: true, Replies: []Output{text(verr.Hint)}}, nil
				}
				return Result{}, err
			}
			e.Sessions.Clear(userID)
			if err := e.saveProfile(userKey(userID), "", phone); err != nil {
				return Result{}, err
			}
			return Result{Finished: true, Replies: []Output{{Text: "Номер обновлён: " + phone, RemoveReply: true}}}, nil
		},
	}
}

// feedbackFlow relays a free-form message to the admin chat.
func feedbackFlow() *Flow {
	return &Flow{
		Name: FlowFeedback,
		Start: func(e *Engine, userID int64) (*Form, state.Step, []Output, error) {
			return &Form{}, stepFeedback, nil, nil
		},
		Steps: []Step{{
			Name: stepFeedback,
			Prompt: func(e *Engine, f *Form) []Output {
				return []Output{{Text: msgAskFeedback, Rows: backRowOnly()}}
			},
			Handle: func(e *Engine, userID int64, f *Form, in Input) (Result, error) {
				msg := strings.TrimSpace(in.Text)
				if msg == "" {
					return Result{Stay: true}, nil
				}
				e.Sessions.Clear(userID)
				from := userKey(userID)
				if u, err := e.Store.GetUser(from); err == nil && u.Name != "" {
					from = u.Name + " (" + from + ")"
				}
				e.Svc.Notifier.Admin("💬 Отзыв от " + from + ":\n" + msg)
				return Result{Finished: true, Replies: []Output{text(msgFeedbackSent)}}, nil
			},
		}},
	}
}
