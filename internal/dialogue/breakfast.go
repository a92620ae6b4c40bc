package dialogue

import (
	"fmt"
	"strings"

	"github.com/gruppenrun/clubbot/core/telegram/keyboard"
	"github.com/gruppenrun/clubbot/core/telegram/state"
	"github.com/gruppenrun/clubbot/internal/domain"
	"github.com/gruppenrun/clubbot/internal/service"
)

const (
	stepMenu      state.Step = "bf_menu"
	stepMenuCheck state.Step = "bf_check"
)

// breakfastFlow pre-orders breakfast for the upcoming Sunday run. Only
// available while a Shartash registration is active; the order dies with
// the registration.
func breakfastFlow() *Flow {
	return &Flow{
		Name: FlowBreakfast,
		Start: func(e *Engine, userID int64) (*Form, state.Step, []Output, error) {
			res, err := e.Svc.Status(userKey(userID), domain.EventWeeklyRun, domain.LocationShartash)
			if err != nil {
				return nil, "", nil, err
			}
			if !res.Active {
				return nil, "", []Output{text(msgNoActiveRun)}, nil
			}

			f := &Form{Items: make(map[string]int)}
			if order, err := e.Svc.Breakfast(userKey(userID)); err == nil {
				for k, v := range order.Items {
					f.Items[k] = v
				}
				return f, stepMenuCheck, []Output{{
					Text: "У тебя уже есть предзаказ:\n\n" + orderSummary(order.Items),
					Rows: [][]keyboard.InlineBtn{
						{{Text: labelChangeOrder, Unique: btnMenuChange}},
						{{Text: labelDropOrder, Unique: btnMenuCancel}},
						{{Text: labelCancel, Unique: btnCancel}},
					},
				}}, nil
			}
			return f, stepMenu, nil, nil
		},
		Steps: []Step{
			menuStep(),
			menuCheckStep(),
		},
	}
}

func menuKeyboard(f *Form) [][]keyboard.InlineBtn {
	var rows [][]keyboard.InlineBtn
	for _, item := range service.BreakfastMenu {
		label := fmt.Sprintf("%s — %d ₽", shortName(item.Name), item.Price)
		if n := f.Items[item.Key]; n > 0 {
			label = fmt.Sprintf("%s ×%d", label, n)
		}
		rows = append(rows, []keyboard.InlineBtn{{
			Text:   label,
			Unique: btnMenuItem,
			Data:   item.Key,
		}})
	}
	rows = append(rows,
		[]keyboard.InlineBtn{
			{Text: labelMenuReset, Unique: btnMenuReset},
			{Text: labelMenuDone, Unique: btnMenuDone},
		},
		[]keyboard.InlineBtn{{Text: labelCancel, Unique: btnCancel}},
	)
	return rows
}

// shortName strips the descriptive second line for button labels.
func shortName(name string) string {
	if i := strings.IndexByte(name, '\n'); i > 0 {
		return name[:i]
	}
	return name
}

func orderSummary(items map[string]int) string {
	var b strings.Builder
	total := 0
	for _, item := range service.BreakfastMenu {
		n := items[item.Key]
		if n == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s ×%d — %d ₽\n", shortName(item.Name), n, item.Price*n)
		total += item.Price * n
	}
	fmt.Fprintf(&b, "\nИтого: %d ₽", total)
	return b.String()
}

func menuStep() Step {
	return Step{
		Name: stepMenu,
		Prompt: func(e *Engine, f *Form) []Output {
			return []Output{{
				Text: "Выбирай, что приготовить к финишу. Каждое нажатие добавляет порцию:",
				Rows: menuKeyboard(f),
			}}
		},
		Handle: func(e *Engine, userID int64, f *Form, in Input) (Result, error) {
			if f.Items == nil {
				f.Items = make(map[string]int)
			}
			switch in.Button {
			case btnMenuItem:
				if _, ok := service.MenuItemByKey(in.Data); !ok {
					return Result{Stay: true}, nil
				}
				f.Items[in.Data]++
			case btnMenuReset:
				f.Items = make(map[string]int)
			case btnMenuDone:
				if len(f.Items) == 0 {
					return Result{Stay: true, Replies: []Output{text("Пока ничего не выбрано.")}}, nil
				}
				return Result{Stay: true, Replies: []Output{{
					Text: "Проверь заказ:\n\n" + orderSummary(f.Items),
					Rows: [][]keyboard.InlineBtn{
						{{Text: labelConfirm, Unique: btnMenuConfirm}},
						{{Text: labelMenuReset, Unique: btnMenuReset}},
						{{Text: labelCancel, Unique: btnCancel}},
					},
				}}}, nil
			case btnMenuConfirm:
				return e.finishBreakfast(userID, f)
			default:
				return Result{Stay: true}, nil
			}
			return Result{Stay: true, Replies: []Output{{
				Text: "Обновил(а) заказ:",
				Rows: menuKeyboard(f),
			}}}, nil
		},
	}
}

func (e *Engine) finishBreakfast(userID int64, f *Form) (Result, error) {
	e.Sessions.Clear(userID)
	order, err := e.Svc.OrderBreakfast(userKey(userID), f.Items)
	if err != nil {
		return Result{Finished: true, Replies: []Output{text(msgInternalError)}}, nil
	}
	return Result{Finished: true, Replies: []Output{text(fmt.Sprintf(
		"Предзаказ принят! Итого: %d ₽. Завтрак будет ждать тебя на финише 🍳", order.TotalPrice))}}, nil
}

// menuCheckStep handles an existing order: change it or drop it.
func menuCheckStep() Step {
	return Step{
		Name: stepMenuCheck,
		Prompt: func(e *Engine, f *Form) []Output {
			return []Output{text("Что делаем с заказом?")}
		},
		Handle: func(e *Engine, userID int64, f *Form, in Input) (Result, error) {
			switch in.Button {
			case btnMenuChange:
				return Result{Next: stepMenu}, nil
			case btnMenuCancel:
				e.Sessions.Clear(userID)
				if err := e.Svc.ClearBreakfast(userKey(userID)); err != nil {
					return Result{Finished: true, Replies: []Output{text(msgInternalError)}}, nil
				}
				return Result{Finished: true, Replies: []Output{text("Заказ отменён.")}}, nil
			}
			return Result{Stay: true}, nil
		},
	}
}
