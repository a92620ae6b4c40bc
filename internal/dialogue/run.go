package dialogue

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/gruppenrun/clubbot/core/telegram/keyboard"
	"github.com/gruppenrun/clubbot/core/telegram/state"
	"github.com/gruppenrun/clubbot/internal/domain"
	"github.com/gruppenrun/clubbot/internal/status"
)

// runFlow registers for a weekly run at the given location: name, phone,
// one-time or monthly, payment.
func runFlow(loc domain.Location) *Flow {
	name := FlowRunShartash
	if loc == domain.LocationUktus {
		name = FlowRunUktus
	}
	return &Flow{
		Name: name,
		Start: func(e *Engine, userID int64) (*Form, state.Step, []Output, error) {
			res, err := e.Svc.Status(userKey(userID), domain.EventWeeklyRun, loc)
			if err != nil {
				return nil, "", nil, err
			}
			if res.Active {
				return nil, "", alreadyRegisteredOutputs(res, loc == domain.LocationShartash), nil
			}
			f := &Form{Event: domain.EventWeeklyRun, Location: loc}
			entry, outs := e.profileEntry(userID, f, stepTier)
			return f, entry, outs, nil
		},
		Steps: []Step{
			nameStep(stepPhone),
			phoneStep(stepTier),
			tierStep(),
			paymentStep(),
		},
	}
}

func alreadyRegisteredOutputs(res status.Resolution, offerFriend bool) []Output {
	reg := res.Registration
	msg := "Ты уже записан(а)!"
	switch {
	case reg.TargetNumber != nil && reg.TargetDate != nil:
		msg = fmt.Sprintf("Ты уже записан(а) на №%d, %s 👍",
			*reg.TargetNumber, reg.TargetDate.Format("02.01.2006"))
	case reg.ValidUntil != nil:
		msg = fmt.Sprintf("У тебя действует абонемент до %s включительно 👍",
			reg.ValidUntil.Format("02.01.2006"))
	}
	out := Output{Text: msg}
	if offerFriend {
		out.Rows = [][]keyboard.InlineBtn{{{Text: labelFriend, Unique: BtnFriend}}}
	}
	return []Output{out}
}

// tierStep picks one-time vs monthly.
func tierStep() Step {
	return Step{
		Name: stepTier,
		Prompt: func(e *Engine, f *Form) []Output {
			return []Output{{
				Text: "Какой формат выбираешь?",
				Rows: [][]keyboard.InlineBtn{
					{{Text: labelOneTime, Unique: btnTierOneTime}},
					{{Text: labelMonthly, Unique: btnTierMonthly}},
					navRow(),
				},
			}}
		},
		Handle: func(e *Engine, userID int64, f *Form, in Input) (Result, error) {
			switch in.Button {
			case btnTierOneTime:
				f.Kind = domain.KindOneTime
			case btnTierMonthly:
				f.Kind = domain.KindMonthly
			default:
				return Result{Stay: true}, nil
			}
			return Result{Next: stepPayment}, nil
		},
	}
}

// friendFlow registers a second person for the Sunday run on the acting
// user's behalf. The friend always gets a fresh name and phone and their
// own one-time/monthly choice; the acting user's profile is never touched.
func friendFlow() *Flow {
	return &Flow{
		Name: FlowFriend,
		Start: func(e *Engine, userID int64) (*Form, state.Step, []Output, error) {
			f := &Form{
				Event:    domain.EventWeeklyRun,
				Location: domain.LocationShartash,
				Proxy:    true,
				ProxyID:  uuid.NewString(),
			}
			return f, stepName, nil, nil
		},
		Steps: []Step{
			nameStep(stepPhone),
			phoneStep(stepTier),
			tierStep(),
			paymentStep(),
		},
	}
}
