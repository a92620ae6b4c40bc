package service

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gruppenrun/clubbot/core/logger"
	"github.com/gruppenrun/clubbot/internal/domain"
)

// MenuItem is one breakfast menu position.
type MenuItem struct {
	Key   string
	Name  string
	Price int
}

// BreakfastMenu is the pre-order menu shown on Sunday runs. Order of the
// slice is the order of the keyboard.
var BreakfastMenu = []MenuItem{
	{Key: "kasha_rice", Name: "🍚 Каша, на основе жасминового риса,\nна кокосовом молоке, с вишневым вареньем", Price: 270},
	{Key: "kasha_hercules", Name: "🥣 Каша геркулесовая, на коровьем молоке,\nс грушевым вареньем и сыром дор блю", Price: 280},
	{Key: "kasha_grechka", Name: "🍵 Каша гречневая\nс яйцом пашот с соусом пармезан", Price: 240},
	{Key: "omlet_bacon", Name: "🥓 Омлет с печеным\nперцем и беконом фри", Price: 350},
	{Key: "omlet_salmon", Name: "🍳 Омлет с лососем\nи соусом пармезан", Price: 350},
	{Key: "oladki_kabachok", Name: "🥞 Оладьи из кабачка,\nс лососем и соусом пармезан", Price: 380},
	{Key: "syrniki", Name: "😋 Сырники\nс вишневым вареньем и сметаной", Price: 260},
}

// MenuItemByKey resolves a menu position.
func MenuItemByKey(key string) (MenuItem, bool) {
	for _, it := range BreakfastMenu {
		if it.Key == key {
			return it, true
		}
	}
	return MenuItem{}, false
}

// OrderBreakfast stores a pre-order for the upcoming Sunday run. The order
// is only allowed while a Shartash run registration is active; its
// lifetime is bound to that registration.
func (r *Registrations) OrderBreakfast(userID string, items map[string]int) (*domain.BreakfastOrder, error) {
	res, err := r.Status(userID, domain.EventWeeklyRun, domain.LocationShartash)
	if err != nil {
		return nil, err
	}
	if !res.Active {
		return nil, domain.ErrNoActiveRun
	}

	total := 0
	for key, count := range items {
		if count <= 0 {
			delete(items, key)
			continue
		}
		item, ok := MenuItemByKey(key)
		if !ok {
			return nil, fmt.Errorf("order breakfast: unknown item %q", key)
		}
		total += item.Price * count
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("order breakfast: %w", domain.ErrValidation)
	}

	order := &domain.BreakfastOrder{
		UserID:     userID,
		Items:      items,
		TotalPrice: total,
		OrderedAt:  r.Now(),
	}
	if err := r.Store.PutBreakfastOrder(order); err != nil {
		return nil, fmt.Errorf("order breakfast: %w", err)
	}

	logger.SVCReg.Info("breakfast ordered",
		slog.String("event", "breakfast.ordered"),
		slog.String("user_id", userID),
		slog.Int("total", total),
	)
	go r.Notifier.Admin(fmt.Sprintf("Предзаказ завтрака: %s, сумма %d ₽", userID, total))
	return order, nil
}

// Breakfast returns the current pre-order, if any.
func (r *Registrations) Breakfast(userID string) (*domain.BreakfastOrder, error) {
	return r.Store.GetBreakfastOrder(userID)
}

// ClearBreakfast cancels the pre-order. Clearing an absent order is a no-op.
func (r *Registrations) ClearBreakfast(userID string) error {
	if err := r.Store.DeleteBreakfastOrder(userID); err != nil && !errors.Is(err, domain.ErrBreakfastNotFound) {
		return fmt.Errorf("clear breakfast: %w", err)
	}
	return nil
}
