package dialogue

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gruppenrun/clubbot/core/telegram/keyboard"
	"github.com/gruppenrun/clubbot/core/telegram/state"
	"github.com/gruppenrun/clubbot/internal/domain"
)

const (
	stepStages    state.Step = "stages"
	stepPace      state.Step = "pace"
	stepRelayEdit state.Step = "relay_edit"
)

// relayStages is the stage catalog of the around-the-city relay.
var relayStages = []struct {
	ID    int
	Label string
}{
	{1, "1️⃣ Шарташ → Сибирский тракт, 12.7 км"},
	{2, "2️⃣ Сибирский тракт → Уктус, 10.2 км"},
	{3, "3️⃣ Уктус → Амундсена, 7.3 км"},
	{4, "4️⃣ Амундсена → Мега, 8.2 км"},
	{5, "5️⃣ Мега → Палкинский Торфяник, 8.7 км"},
	{6, "6️⃣ Палкинский Торфяник → 7 ключей, 13.3 км"},
	{7, "7️⃣ 7 ключей → 40й км ЕКАД, 7.9 км"},
	{8, "8️⃣ 40й км ЕКАД → Калиновка, 11.7 км"},
	{9, "9️⃣ Калиновка → Шарташ, 8.6 км"},
}

// selectedStages flattens the toggle map into a sorted id list.
func selectedStages(m map[int]bool) []int {
	var out []int
	for id, on := range m {
		if on {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// allStagesSelected reports whether the full-circle aggregate is in effect.
// The aggregate is derived, never stored: it holds exactly while every
// individual stage is selected, so deselecting any stage clears it.
func allStagesSelected(m map[int]bool) bool {
	if len(m) == 0 {
		return false
	}
	for _, s := range relayStages {
		if !m[s.ID] {
			return false
		}
	}
	return true
}

func stageKeyboard(f *Form) [][]keyboard.InlineBtn {
	var rows [][]keyboard.InlineBtn
	for _, s := range relayStages {
		label := s.Label
		if f.Stages[s.ID] {
			label = "✅ " + label
		}
		rows = append(rows, []keyboard.InlineBtn{{
			Text:   label,
			Unique: stageBtn,
			Data:   strconv.Itoa(s.ID),
		}})
	}
	all := labelAllStages
	if allStagesSelected(f.Stages) {
		all = "✅ " + all
	}
	rows = append(rows,
		[]keyboard.InlineBtn{{Text: all, Unique: btnStageAll}},
		[]keyboard.InlineBtn{{Text: labelStagesDone, Unique: btnStagesDone}},
		navRow(),
	)
	return rows
}

func stagesStep() Step {
	return Step{
		Name: stepStages,
		Prompt: func(e *Engine, f *Form) []Output {
			return []Output{{
				Text: "Выбери этапы, которые хочешь бежать. Можно несколько!",
				Rows: stageKeyboard(f),
			}}
		},
		Handle: func(e *Engine, userID int64, f *Form, in Input) (Result, error) {
			if f.Stages == nil {
				f.Stages = make(map[int]bool)
			}
			switch in.Button {
			case stageBtn:
				id, err := strconv.Atoi(in.Data)
				if err != nil || id < 1 || id > len(relayStages) {
					return Result{Stay: true}, nil
				}
				f.Stages[id] = !f.Stages[id]
			case btnStageAll:
				on := !allStagesSelected(f.Stages)
				for _, s := range relayStages {
					f.Stages[s.ID] = on
				}
			case btnStagesDone:
				if len(selectedStages(f.Stages)) == 0 {
					return Result{Stay: true, Replies: []Output{text("Выбери хотя бы один этап.")}}, nil
				}
				if f.Editing {
					return e.finishStageEdit(userID, f)
				}
				return Result{Next: stepPace}, nil
			default:
				return Result{Stay: true}, nil
			}
			// Re-render the keyboard with updated marks.
			return Result{Stay: true, Replies: []Output{{
				Text: stageSummary(f),
				Rows: stageKeyboard(f),
			}}}, nil
		},
	}
}

func stageSummary(f *Form) string {
	sel := selectedStages(f.Stages)
	if len(sel) == 0 {
		return "Пока ничего не выбрано."
	}
	if allStagesSelected(f.Stages) {
		return "Выбран весь круг 😎"
	}
	parts := make([]string, len(sel))
	for i, id := range sel {
		parts[i] = strconv.Itoa(id)
	}
	return "Выбраны этапы: " + strings.Join(parts, ", ")
}

func (e *Engine) finishStageEdit(userID int64, f *Form) (Result, error) {
	e.Sessions.Clear(userID)
	if err := e.Svc.UpdateStages(userKey(userID), selectedStages(f.Stages)); err != nil {
		return Result{Finished: true, Replies: []Output{text(msgInternalError)}}, nil
	}
	return Result{Finished: true, Replies: []Output{text("Готово, этапы обновлены! " + stageSummary(f))}}, nil
}

func paceStep() Step {
	return Step{
		Name: stepPace,
		Prompt: func(e *Engine, f *Form) []Output {
			return []Output{{Text: msgAskPace, Rows: backRowOnly()}}
		},
		Handle: func(e *Engine, userID int64, f *Form, in Input) (Result, error) {
			pace := strings.TrimSpace(in.Text)
			if pace == "" {
				return Result{Stay: true}, nil
			}
			f.Pace = pace
			if f.Editing {
				e.Sessions.Clear(userID)
				if err := e.Svc.UpdatePace(userKey(userID), pace); err != nil {
					return Result{Finished: true, Replies: []Output{text(msgInternalError)}}, nil
				}
				return Result{Finished: true, Replies: []Output{text("Готово, темп обновлён: " + pace)}}, nil
			}
			return Result{Next: stepPayment}, nil
		},
	}
}

// relayEditStep lets an already registered runner adjust stages or pace
// without re-registering.
func relayEditStep() Step {
	return Step{
		Name: stepRelayEdit,
		Prompt: func(e *Engine, f *Form) []Output {
			return []Output{{
				Text: "Ты уже участвуешь в Кругосветке! Что хочешь изменить?",
				Rows: [][]keyboard.InlineBtn{
					{{Text: labelEditStages, Unique: btnEditStages}},
					{{Text: labelEditPace, Unique: btnEditPace}},
					{{Text: labelCancel, Unique: btnCancel}},
				},
			}}
		},
		Handle: func(e *Engine, userID int64, f *Form, in Input) (Result, error) {
			switch in.Button {
			case btnEditStages:
				f.Editing = true
				return Result{Next: stepStages}, nil
			case btnEditPace:
				f.Editing = true
				return Result{Next: stepPace}, nil
			}
			return Result{Stay: true}, nil
		},
	}
}

func relayFlow() *Flow {
	return &Flow{
		Name: FlowRelay,
		Start: func(e *Engine, userID int64) (*Form, state.Step, []Output, error) {
			res, err := e.Svc.Status(userKey(userID), domain.EventRelay, domain.LocationNone)
			if err != nil {
				return nil, "", nil, err
			}
			f := &Form{Event: domain.EventRelay, Kind: domain.KindOneTime}
			if res.Active {
				// Preload the stored selection so edits start from it.
				if res.Registration.Attrs != nil {
					f.Stages = make(map[int]bool)
					for _, id := range res.Registration.Attrs.Stages {
						f.Stages[id] = true
					}
					f.Pace = res.Registration.Attrs.Pace
				}
				return f, stepRelayEdit, nil, nil
			}
			entry, outs := e.profileEntry(userID, f, stepStages)
			return f, entry, outs, nil
		},
		Steps: []Step{
			nameStep(stepPhone),
			phoneStep(stepStages),
			stagesStep(),
			paceStep(),
			relayEditStep(),
			paymentStep(),
		},
	}
}

// StageLabel returns the catalog label for a stage id (roster views).
func StageLabel(id int) string {
	for _, s := range relayStages {
		if s.ID == id {
			return s.Label
		}
	}
	return fmt.Sprintf("этап %d", id)
}
