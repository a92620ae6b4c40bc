package dialogue

import (
	"errors"
	"fmt"

	"github.com/gruppenrun/clubbot/core/telegram/keyboard"
	"github.com/gruppenrun/clubbot/core/telegram/state"
	"github.com/gruppenrun/clubbot/internal/domain"
	"github.com/gruppenrun/clubbot/internal/notify"
	"github.com/gruppenrun/clubbot/internal/service"
	"github.com/gruppenrun/clubbot/internal/validate"
)

// Step names shared across flows.
const (
	stepName    state.Step = "name"
	stepPhone   state.Step = "phone"
	stepTier    state.Step = "tier"
	stepPayment state.Step = "payment"
)

func navRow() []keyboard.InlineBtn {
	return []keyboard.InlineBtn{
		{Text: labelBack, Unique: btnBack},
		{Text: labelCancel, Unique: btnCancel},
	}
}

func backRowOnly() [][]keyboard.InlineBtn {
	return [][]keyboard.InlineBtn{navRow()}
}

// nameStep collects and validates the full name.
func nameStep(next state.Step) Step {
	return Step{
		Name: stepName,
		Prompt: func(e *Engine, f *Form) []Output {
			ask := msgAskName
			if f.Proxy {
				ask = msgAskFriendName
			}
			return []Output{{Text: ask, Rows: backRowOnly()}}
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
			f.Name = name
			return Result{Next: next}, nil
		},
	}
}

// phoneStep collects the phone from typed text or a shared contact.
func phoneStep(next state.Step) Step {
	return Step{
		Name: stepPhone,
		Prompt: func(e *Engine, f *Form) []Output {
			if f.Proxy {
				return []Output{text(msgAskFriendPhone)}
			}
			return []Output{{Text: msgAskPhone, ContactRequest: true}}
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
			f.Phone = phone
			return Result{Next: next, Replies: []Output{{Text: "Записал(а): " + phone, RemoveReply: true}}}, nil
		},
	}
}

// paymentLink picks the public payment link for the collected intent.
func (e *Engine) paymentLink(f *Form) string {
	switch {
	case f.Event == domain.EventWeeklyRun && f.Location == domain.LocationShartash:
		if f.Kind == domain.KindMonthly {
			return e.Payments.RunMonthly
		}
		return e.Payments.RunOneTime
	case f.Event == domain.EventWeeklyRun && f.Location == domain.LocationUktus:
		if f.Kind == domain.KindMonthly {
			return e.Payments.TrailMonthly
		}
		return e.Payments.TrailOneTime
	case f.Event == domain.EventRelay:
		return e.Payments.Relay
	case f.Event == domain.EventCamp:
		if f.Tier == "50" {
			return e.Payments.CampHalf
		}
		return e.Payments.CampFull
	}
	return ""
}

// paymentStep shows the link with a QR code and waits for the trusted
// confirmation press. Going back returns to the previous collection step
// with the form intact.
func paymentStep() Step {
	return Step{
		Name: stepPayment,
		Prompt: func(e *Engine, f *Form) []Output {
			link := e.paymentLink(f)
			body := "Для завершения регистрации оплати по ссылке ниже."
			if e.Payments.PhoneInfo != "" {
				body += "\n\nИли переводом на номер: " + e.Payments.PhoneInfo
			}
			body += "\n\nПосле оплаты нажми «Я оплатил(-а)»."

			rows := [][]keyboard.InlineBtn{
				{{Text: labelPay, URL: link}},
				{{Text: labelPaid, Unique: btnPaid}},
				navRow(),
			}
			out := Output{Text: body, Rows: rows}
			if png, err := notify.PaymentQR(link); err == nil {
				out.PhotoPNG = png
			}
			return []Output{out}
		},
		Handle: func(e *Engine, userID int64, f *Form, in Input) (Result, error) {
			if in.Button != btnPaid {
				return Result{Stay: true}, nil
			}
			return e.finishRegistration(userID, f)
		},
	}
}

// finishRegistration is the single terminal path of every paying flow. The
// session is cleared before the write: a second confirmation press finds
// no dialogue and cannot double-persist.
func (e *Engine) finishRegistration(userID int64, f *Form) (Result, error) {
	e.Sessions.Clear(userID)

	subject := domain.Self(userKey(userID))
	if f.Proxy {
		subject = domain.ProxyRegistrant(f.ProxyID, userKey(userID), f.Name, f.Phone)
	} else if f.Name != "" || f.Phone != "" {
		if err := e.saveProfile(userKey(userID), f.Name, f.Phone); err != nil {
			return Result{Finished: true, Replies: []Output{text(msgPaymentFailed)}}, nil
		}
	}

	intent := service.Intent{
		Event:       f.Event,
		Location:    f.Location,
		Kind:        f.Kind,
		Stages:      selectedStages(f.Stages),
		Pace:        f.Pace,
		PaymentTier: f.Tier,
		Diet:        f.Diet,
		Preferences: f.Preferences,
	}

	reg, err := e.Svc.Complete(subject, intent)
	if err != nil {
		if errors.Is(err, domain.ErrNoAvailableSpots) {
			return Result{Finished: true, Replies: []Output{{
				Text: msgCampFull,
				Rows: [][]keyboard.InlineBtn{{{Text: labelJoinWait, Unique: BtnJoinWaitlist}}},
			}}}, nil
		}
		return Result{Finished: true, Replies: []Output{text(msgPaymentFailed)}}, nil
	}

	msg := msgPaid
	if reg.Kind == domain.KindWaitingList {
		msg = msgWaitlisted
	} else if reg.TargetNumber != nil && reg.TargetDate != nil {
		msg = fmt.Sprintf("Отлично, ты записан(а) на №%d, %s! Ждём тебя 🎉",
			*reg.TargetNumber, reg.TargetDate.Format("02.01.2006"))
	} else if reg.ValidUntil != nil {
		msg = fmt.Sprintf("Абонемент оформлен до %s включительно. Ждём тебя 🎉",
			reg.ValidUntil.Format("02.01.2006"))
	}
	if f.Proxy {
		msg = "Готово, " + f.Name + " в списке! 🎉"
	}

	replies := []Output{{Text: msg, RemoveReply: true}}
	if f.Event == domain.EventWeeklyRun && f.Location == domain.LocationShartash && reg.Kind != domain.KindWaitingList {
		replies = append(replies, Output{
			Text: msgFollowUp,
			Rows: [][]keyboard.InlineBtn{
				{{Text: labelBreakfast, Unique: BtnBreakfast}},
				{{Text: labelFriend, Unique: BtnFriend}},
			},
		})
	}
	return Result{Finished: true, Replies: replies}, nil
}

func (e *Engine) saveProfile(userID, name, phone string) error {
	u, err := e.Store.GetUser(userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		u = &domain.User{ID: userID}
	} else if err != nil {
		return err
	}
	if name != "" {
		u.Name = name
	}
	if phone != "" {
		u.Phone = phone
	}
	return e.Store.SaveUser(u)
}

// profileEntry picks the first step of a collecting flow: users with a
// complete profile skip straight past name and phone.
func (e *Engine) profileEntry(userID int64, f *Form, afterProfile state.Step) (state.Step, []Output) {
	u, err := e.Store.GetUser(userKey(userID))
	if err == nil && u.HasProfile() {
		f.Name = u.Name
		f.Phone = u.Phone
		return afterProfile, []Output{text("Привет, " + u.Name + "! Данные из твоего профиля уже у меня.")}
	}
	return stepName, nil
}
