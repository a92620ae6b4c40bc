package dialogue

import (
	"strings"

	"github.com/gruppenrun/clubbot/core/telegram/keyboard"
	"github.com/gruppenrun/clubbot/core/telegram/state"
	"github.com/gruppenrun/clubbot/internal/domain"
)

const (
	stepDiet     state.Step = "diet"
	stepPrefs    state.Step = "prefs"
	stepCampTier state.Step = "camp_tier"
	stepWaitAck  state.Step = "wait_confirm"
)

// campFlow registers for the training camp: capacity gate up front, then
// profile, diet, preferences, a 50/100 payment tier, payment.
func campFlow() *Flow {
	return &Flow{
		Name: FlowCamp,
		Start: func(e *Engine, userID int64) (*Form, state.Step, []Output, error) {
			res, err := e.Svc.Status(userKey(userID), domain.EventCamp, domain.LocationNone)
			if err != nil {
				return nil, "", nil, err
			}
			if res.Registration != nil {
				if res.Registration.Kind == domain.KindWaitingList {
					return nil, "", []Output{text("Ты в листе ожидания. Напишем, как только появится место!")}, nil
				}
				return nil, "", []Output{text("Ты уже записан(а) в лагерь! 🏕")}, nil
			}

			free, err := e.Svc.CampSlots()
			if err != nil {
				return nil, "", nil, err
			}
			if free <= 0 {
				return nil, "", []Output{{
					Text: msgCampFull,
					Rows: [][]keyboard.InlineBtn{{{Text: labelJoinWait, Unique: BtnJoinWaitlist}}},
				}}, nil
			}

			f := &Form{Event: domain.EventCamp, Kind: domain.KindOneTime}
			entry, outs := e.profileEntry(userID, f, stepDiet)
			return f, entry, outs, nil
		},
		Steps: []Step{
			nameStep(stepPhone),
			phoneStep(stepDiet),
			dietStep(),
			prefsStep(),
			campTierStep(),
			paymentStep(),
		},
	}
}

func dietStep() Step {
	return Step{
		Name: stepDiet,
		Prompt: func(e *Engine, f *Form) []Output {
			return []Output{{Text: msgAskDiet, Rows: backRowOnly()}}
		},
		Handle: func(e *Engine, userID int64, f *Form, in Input) (Result, error) {
			if strings.TrimSpace(in.Text) == "" {
				return Result{Stay: true}, nil
			}
			f.Diet = strings.TrimSpace(in.Text)
			return Result{Next: stepPrefs}, nil
		},
	}
}

func prefsStep() Step {
	return Step{
		Name: stepPrefs,
		Prompt: func(e *Engine, f *Form) []Output {
			return []Output{{Text: msgAskPrefs, Rows: backRowOnly()}}
		},
		Handle: func(e *Engine, userID int64, f *Form, in Input) (Result, error) {
			if strings.TrimSpace(in.Text) == "" {
				return Result{Stay: true}, nil
			}
			f.Preferences = strings.TrimSpace(in.Text)
			return Result{Next: stepCampTier}, nil
		},
	}
}

func campTierStep() Step {
	return Step{
		Name: stepCampTier,
		Prompt: func(e *Engine, f *Form) []Output {
			return []Output{{
				Text: "Как будешь оплачивать? Можно внести предоплату 50% или всю сумму сразу.",
				Rows: [][]keyboard.InlineBtn{
					{{Text: labelCampHalf, Unique: btnTierHalf}},
					{{Text: labelCampFull, Unique: btnTierFull}},
					navRow(),
				},
			}}
		},
		Handle: func(e *Engine, userID int64, f *Form, in Input) (Result, error) {
			switch in.Button {
			case btnTierHalf:
				f.Tier = "50"
			case btnTierFull:
				f.Tier = "100"
			default:
				return Result{Stay: true}, nil
			}
			return Result{Next: stepPayment}, nil
		},
	}
}

// waitlistFlow joins the camp waiting list: no payment, just profile data
// and a confirmation.
func waitlistFlow() *Flow {
	return &Flow{
		Name: FlowWaitlist,
		Start: func(e *Engine, userID int64) (*Form, state.Step, []Output, error) {
			res, err := e.Svc.Status(userKey(userID), domain.EventCamp, domain.LocationNone)
			if err != nil {
				return nil, "", nil, err
			}
			if res.Registration != nil {
				return nil, "", []Output{text("Ты уже в списке 👍")}, nil
			}
			f := &Form{Event: domain.EventCamp, Kind: domain.KindWaitingList}
			entry, outs := e.profileEntry(userID, f, stepWaitAck)
			return f, entry, outs, nil
		},
		Steps: []Step{
			nameStep(stepPhone),
			phoneStep(stepWaitAck),
			waitAckStep(),
		},
	}
}

func waitAckStep() Step {
	return Step{
		Name: stepWaitAck,
		Prompt: func(e *Engine, f *Form) []Output {
			return []Output{{
				Text: "Записать тебя в лист ожидания лагеря?",
				Rows: [][]keyboard.InlineBtn{
					{{Text: labelConfirm, Unique: btnWaitConfirm}},
					navRow(),
				},
			}}
		},
		Handle: func(e *Engine, userID int64, f *Form, in Input) (Result, error) {
			if in.Button != btnWaitConfirm {
				return Result{Stay: true}, nil
			}
			return e.finishRegistration(userID, f)
		},
	}
}
