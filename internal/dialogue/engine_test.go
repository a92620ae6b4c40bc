package dialogue

import (
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gruppenrun/clubbot/core/telegram/state"
	"github.com/gruppenrun/clubbot/internal/domain"
	"github.com/gruppenrun/clubbot/internal/notify"
	"github.com/gruppenrun/clubbot/internal/service"
	"github.com/gruppenrun/clubbot/internal/status"
	"github.com/gruppenrun/clubbot/internal/store"
)

type nullMessenger struct{}

func (nullMessenger) SendText(int64, string) error { return nil }

func newTestEngine(t *testing.T, now time.Time) (*Engine, store.Store) {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := os.ReadFile("../../migrations/0001_init.up.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	s := store.New(db)
	resolver := status.NewResolver(s)
	resolver.Now = func() time.Time { return now }
	svc := service.NewRegistrations(s, resolver, notify.New(nullMessenger{}, 1), 0)
	svc.Now = resolver.Now

	e := NewEngine(state.NewMemoryManager(), svc, s, PaymentLinks{
		RunOneTime: "https://pay.example/run",
		RunMonthly: "https://pay.example/run-month",
	})
	return e, s
}

func say(t *testing.T, e *Engine, userID int64, text string) []Output {
	t.Helper()
	outs, handled, err := e.Handle(Input{UserID: userID, Text: text})
	require.NoError(t, err)
	require.True(t, handled)
	return outs
}

func press(t *testing.T, e *Engine, userID int64, btn, data string) []Output {
	t.Helper()
	outs, handled, err := e.Handle(Input{UserID: userID, Button: btn, Data: data})
	require.NoError(t, err)
	require.True(t, handled)
	return outs
}

func wednesday() time.Time { return time.Date(2025, time.October, 1, 12, 0, 0, 0, time.UTC) }

func TestRunFlowEndToEnd(t *testing.T) {
	e, s := newTestEngine(t, wednesday())

	_, err := e.Start(42, FlowRunShartash)
	require.NoError(t, err)

	say(t, e, 42, "иван петров")
	say(t, e, 42, "89991234567")
	press(t, e, 42, btnTierOneTime, "")
	outs := press(t, e, 42, btnPaid, "")
	require.NotEmpty(t, outs)
	assert.Contains(t, outs[0].Text, "№278")

	reg, err := s.GetRegistration("42", domain.EventWeeklyRun, domain.LocationShartash)
	require.NoError(t, err)
	require.NotNil(t, reg.TargetNumber)
	assert.Equal(t, 278, *reg.TargetNumber)

	// Profile captured from the collected form, normalized.
	u, err := s.GetUser("42")
	require.NoError(t, err)
	assert.Equal(t, "Иван Петров", u.Name)
	assert.Equal(t, "+7 (999) 123-45-67", u.Phone)
	assert.False(t, e.InFlow(42))
}

func TestDoublePaidPressPersistsOnce(t *testing.T) {
	e, s := newTestEngine(t, wednesday())

	_, err := e.Start(42, FlowRunShartash)
	require.NoError(t, err)
	say(t, e, 42, "Иван Петров")
	say(t, e, 42, "+79991234567")
	press(t, e, 42, btnTierMonthly, "")
	press(t, e, 42, btnPaid, "")

	// Session is already gone: the second press falls through unhandled.
	_, handled, err := e.Handle(Input{UserID: 42, Button: btnPaid})
	require.NoError(t, err)
	assert.False(t, handled)

	reg, err := s.GetRegistration("42", domain.EventWeeklyRun, domain.LocationShartash)
	require.NoError(t, err)
	assert.Equal(t, domain.KindMonthly, reg.Kind)
}

func TestBackNavigationPreservesForm(t *testing.T) {
	e, _ := newTestEngine(t, wednesday())

	_, err := e.Start(42, FlowRunShartash)
	require.NoError(t, err)
	say(t, e, 42, "Иван Петров")
	say(t, e, 42, "89991234567")
	press(t, e, 42, btnTierOneTime, "")

	// Two steps back: payment -> tier -> phone.
	press(t, e, 42, btnBack, "")
	press(t, e, 42, btnBack, "")

	sess, ok := e.Sessions.Get(42)
	require.True(t, ok)
	assert.Equal(t, stepPhone, sess.Step)

	// Earlier answers survived the round trip.
	f := sess.Form.(*Form)
	assert.Equal(t, "Иван Петров", f.Name)
	assert.Equal(t, "+7 (999) 123-45-67", f.Phone)

	// Forward again and finish.
	say(t, e, 42, "89991234567")
	press(t, e, 42, btnTierOneTime, "")
	outs := press(t, e, 42, btnPaid, "")
	assert.Contains(t, outs[0].Text, "№278")
}

func TestBackFromFirstStepCancels(t *testing.T) {
	e, _ := newTestEngine(t, wednesday())

	_, err := e.Start(42, FlowRunShartash)
	require.NoError(t, err)
	outs := press(t, e, 42, btnBack, "")
	assert.Equal(t, msgCancelled, outs[0].Text)
	assert.False(t, e.InFlow(42))
}

func TestValidationErrorKeepsStep(t *testing.T) {
	e, _ := newTestEngine(t, wednesday())

	_, err := e.Start(42, FlowRunShartash)
	require.NoError(t, err)

	outs := say(t, e, 42, "Иван")
	require.NotEmpty(t, outs)

	sess, ok := e.Sessions.Get(42)
	require.True(t, ok)
	assert.Equal(t, stepName, sess.Step)
}

func TestProfileShortCircuitSkipsNameAndPhone(t *testing.T) {
	e, s := newTestEngine(t, wednesday())
	require.NoError(t, s.SaveUser(&domain.User{ID: "42", Name: "Иван Петров", Phone: "+7 (999) 123-45-67"}))

	_, err := e.Start(42, FlowRunShartash)
	require.NoError(t, err)

	sess, ok := e.Sessions.Get(42)
	require.True(t, ok)
	assert.Equal(t, stepTier, sess.Step)
}

func TestStartWhileRegisteredRefuses(t *testing.T) {
	e, _ := newTestEngine(t, wednesday())

	_, err := e.Start(42, FlowRunShartash)
	require.NoError(t, err)
	say(t, e, 42, "Иван Петров")
	say(t, e, 42, "89991234567")
	press(t, e, 42, btnTierOneTime, "")
	press(t, e, 42, btnPaid, "")

	outs, err := e.Start(42, FlowRunShartash)
	require.NoError(t, err)
	require.NotEmpty(t, outs)
	assert.Contains(t, outs[0].Text, "уже записан")
	assert.False(t, e.InFlow(42))
}

func TestRelayAllStagesAggregate(t *testing.T) {
	e, s := newTestEngine(t, wednesday())
	require.NoError(t, s.SaveUser(&domain.User{ID: "42", Name: "Иван Петров", Phone: "+7 (999) 123-45-67"}))

	_, err := e.Start(42, FlowRelay)
	require.NoError(t, err)

	// Selecting every stage individually sets the aggregate.
	for i := 1; i <= 9; i++ {
		press(t, e, 42, stageBtn, strconv.Itoa(i))
	}
	sess, _ := e.Sessions.Get(42)
	f := sess.Form.(*Form)
	assert.True(t, allStagesSelected(f.Stages))

	// Deselecting one stage clears it again.
	press(t, e, 42, stageBtn, "5")
	assert.False(t, allStagesSelected(f.Stages))
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 6, 7, 8, 9}, selectedStages(f.Stages))

	press(t, e, 42, btnStagesDone, "")
	say(t, e, 42, "5:30")
	press(t, e, 42, btnPaid, "")

	reg, err := s.GetRegistration("42", domain.EventRelay, domain.LocationNone)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 6, 7, 8, 9}, reg.Attrs.Stages)
	assert.Equal(t, "5:30", reg.Attrs.Pace)
}

func TestRelayEditStagesInPlace(t *testing.T) {
	e, s := newTestEngine(t, wednesday())
	require.NoError(t, s.SaveUser(&domain.User{ID: "42", Name: "Иван Петров", Phone: "+7 (999) 123-45-67"}))
	require.NoError(t, s.PutRegistration(&domain.Registration{
		UserID: "42",
		Event:  domain.EventRelay,
		Kind:   domain.KindOneTime,
		Attrs:  &domain.EventAttrs{Stages: []int{1, 2}, Pace: "6:00"},
	}))

	_, err := e.Start(42, FlowRelay)
	require.NoError(t, err)

	press(t, e, 42, btnEditStages, "")
	press(t, e, 42, stageBtn, "3")
	press(t, e, 42, btnStagesDone, "")

	reg, err := s.GetRegistration("42", domain.EventRelay, domain.LocationNone)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2, 3}, reg.Attrs.Stages)
	assert.Equal(t, "6:00", reg.Attrs.Pace)
	assert.False(t, e.InFlow(42))
}

func TestCampFullOffersWaitingList(t *testing.T) {
	e, s := newTestEngine(t, wednesday())
	e.Svc.CampCapacity = 1
	require.NoError(t, s.SaveUser(&domain.User{ID: "1"}))
	require.NoError(t, s.PutRegistration(&domain.Registration{
		UserID: "1",
		Event:  domain.EventCamp,
		Kind:   domain.KindOneTime,
		Attrs:  &domain.EventAttrs{PaymentTier: "100"},
	}))

	outs, err := e.Start(42, FlowCamp)
	require.NoError(t, err)
	require.NotEmpty(t, outs)
	assert.Contains(t, outs[0].Text, "лист ожидания")
	assert.False(t, e.InFlow(42))

	// The offered waiting-list flow completes without payment.
	_, err = e.Start(42, FlowWaitlist)
	require.NoError(t, err)
	say(t, e, 42, "Анна Иванова")
	say(t, e, 42, "89991112233")
	outs = press(t, e, 42, btnWaitConfirm, "")
	assert.Equal(t, msgWaitlisted, outs[0].Text)

	reg, err := s.GetRegistration("42", domain.EventCamp, domain.LocationNone)
	require.NoError(t, err)
	assert.Equal(t, domain.KindWaitingList, reg.Kind)
}

func TestBreakfastRequiresActiveRun(t *testing.T) {
	e, _ := newTestEngine(t, wednesday())

	outs, err := e.Start(42, FlowBreakfast)
	require.NoError(t, err)
	assert.Equal(t, msgNoActiveRun, outs[0].Text)
	assert.False(t, e.InFlow(42))
}

func TestBreakfastOrderFlow(t *testing.T) {
	e, s := newTestEngine(t, wednesday())
	require.NoError(t, s.SaveUser(&domain.User{ID: "42", Name: "Иван Петров", Phone: "+7 (999) 123-45-67"}))
	target := time.Date(2025, time.October, 5, 0, 0, 0, 0, time.UTC)
	num := 278
	require.NoError(t, s.PutRegistration(&domain.Registration{
		UserID:       "42",
		Event:        domain.EventWeeklyRun,
		Location:     domain.LocationShartash,
		Kind:         domain.KindOneTime,
		TargetDate:   &target,
		TargetNumber: &num,
	}))

	_, err := e.Start(42, FlowBreakfast)
	require.NoError(t, err)

	press(t, e, 42, btnMenuItem, "syrniki")
	press(t, e, 42, btnMenuItem, "syrniki")
	press(t, e, 42, btnMenuItem, "kasha_grechka")
	press(t, e, 42, btnMenuDone, "")
	outs := press(t, e, 42, btnMenuConfirm, "")
	assert.Contains(t, outs[0].Text, "760")

	order, err := s.GetBreakfastOrder("42")
	require.NoError(t, err)
	assert.Equal(t, 2*260+240, order.TotalPrice)
	assert.Equal(t, 2, order.Items["syrniki"])
}

func TestRunCompletionOffersFollowUps(t *testing.T) {
	e, _ := newTestEngine(t, wednesday())

	_, err := e.Start(42, FlowRunShartash)
	require.NoError(t, err)
	say(t, e, 42, "Иван Петров")
	say(t, e, 42, "89991234567")
	press(t, e, 42, btnTierOneTime, "")
	outs := press(t, e, 42, btnPaid, "")

	// The completion message is followed by the breakfast pre-order and
	// friend registration offers.
	var uniques []string
	for _, out := range outs {
		for _, row := range out.Rows {
			for _, btn := range row {
				uniques = append(uniques, btn.Unique)
			}
		}
	}
	assert.Contains(t, uniques, BtnBreakfast)
	assert.Contains(t, uniques, BtnFriend)
}

func TestFriendFlowRegistersProxy(t *testing.T) {
	e, s := newTestEngine(t, wednesday())
	require.NoError(t, s.SaveUser(&domain.User{ID: "42", Name: "Иван Петров", Phone: "+7 (999) 123-45-67"}))

	_, err := e.Start(42, FlowFriend)
	require.NoError(t, err)
	say(t, e, 42, "Анна Иванова")
	say(t, e, 42, "89991112233")

	// The friend gets their own one-time/monthly choice.
	press(t, e, 42, btnTierMonthly, "")
	outs := press(t, e, 42, btnPaid, "")
	assert.Contains(t, outs[0].Text, "Анна Иванова")

	regs, err := s.ListRegistrations(domain.EventWeeklyRun, domain.LocationShartash)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.NotEqual(t, "42", regs[0].UserID)
	assert.Equal(t, domain.KindMonthly, regs[0].Kind)
	assert.NotNil(t, regs[0].ValidUntil)

	proxy, err := s.GetUser(regs[0].UserID)
	require.NoError(t, err)
	assert.Equal(t, "Анна Иванова", proxy.Name)
	assert.Equal(t, "42", proxy.RegisteredBy)

	// The acting user's profile is untouched.
	u, err := s.GetUser("42")
	require.NoError(t, err)
	assert.Equal(t, "Иван Петров", u.Name)
}
