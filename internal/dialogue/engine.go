// Package dialogue implements the conversational registration flows as an
// engine over ordered steps. The engine owns per-user sessions and step
// transitions; the transport layer only translates updates in and replies
// out, so every flow is testable without Telegram.
package dialogue

import (
	"log/slog"
	"strconv"

	"github.com/gruppenrun/clubbot/core/logger"
	"github.com/gruppenrun/clubbot/core/telegram/keyboard"
	"github.com/gruppenrun/clubbot/core/telegram/state"
	"github.com/gruppenrun/clubbot/internal/domain"
	"github.com/gruppenrun/clubbot/internal/service"
	"github.com/gruppenrun/clubbot/internal/store"
)

// Input is one user action routed into an in-flight dialogue.
type Input struct {
	UserID int64
	// Text is a typed message; empty for button presses.
	Text string
	// Contact is the phone number shared via a contact object.
	Contact string
	// Button is the pressed callback unique; empty for typed messages.
	Button string
	// Data is the callback payload accompanying Button.
	Data string
}

// Output is one reply the transport layer should deliver.
type Output struct {
	Text string
	Rows [][]keyboard.InlineBtn

	// ContactRequest asks for a reply keyboard with a share-contact button.
	ContactRequest bool
	// RemoveReply drops any reply keyboard.
	RemoveReply bool

	// PhotoPNG attaches an image (payment QR); Text becomes the caption.
	PhotoPNG []byte
}

func text(s string) Output { return Output{Text: s} }

// Form accumulates everything a flow collects before completion. It lives
// inside the session and survives back/forward navigation untouched.
type Form struct {
	Event    domain.EventKind
	Location domain.Location
	Proxy    bool
	ProxyID  string

	Name  string
	Phone string

	Kind domain.RegistrationKind
	Tier string

	Stages map[int]bool
	Pace   string
	// Editing marks an in-place edit of an existing relay registration.
	Editing bool

	Diet        string
	Preferences string

	Items map[string]int
}

// Step is one dialogue state: a prompt plus a handler for the next input.
type Step struct {
	Name   state.Step
	Prompt func(e *Engine, f *Form) []Output
	Handle func(e *Engine, userID int64, f *Form, in Input) (Result, error)
}

// Result tells the engine where to go after a handled input.
type Result struct {
	// Next names the step to advance to; the current step is pushed onto
	// the history stack.
	Next state.Step
	// Back pops the previous step; from the first step it cancels the flow.
	Back bool
	// Stay re-renders nothing and keeps the current step (multi-select toggles
	// re-render via Replies).
	Stay bool
	// Finished ends the flow; the session is cleared by the handler itself
	// before any persistence side effect.
	Finished bool
	// Replies are sent before the next step's prompt.
	Replies []Output
}

// Flow is an ordered set of steps with an entry guard.
type Flow struct {
	Name  string
	Steps []Step

	// Start prepares the form and picks the entry step. A nil next step
	// with outputs means the flow refused to start (already registered,
	// event full) and the outputs explain why.
	Start func(e *Engine, userID int64) (*Form, state.Step, []Output, error)
}

func (fl *Flow) step(name state.Step) (Step, bool) {
	for _, s := range fl.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

// Engine drives all dialogue flows.
type Engine struct {
	Sessions state.Manager
	Svc      *service.Registrations
	Store    store.Store
	Payments PaymentLinks

	flows map[string]*Flow
}

// PaymentLinks carries the public payment links shown on payment steps.
type PaymentLinks struct {
	RunOneTime   string
	RunMonthly   string
	TrailOneTime string
	TrailMonthly string
	Relay        string
	CampHalf     string
	CampFull     string
	PhoneInfo    string
}

func NewEngine(sessions state.Manager, svc *service.Registrations, st store.Store, links PaymentLinks) *Engine {
	e := &Engine{
		Sessions: sessions,
		Svc:      svc,
		Store:    st,
		Payments: links,
		flows:    make(map[string]*Flow),
	}
	e.register(runFlow(domain.LocationShartash))
	e.register(runFlow(domain.LocationUktus))
	e.register(friendFlow())
	e.register(relayFlow())
	e.register(campFlow())
	e.register(waitlistFlow())
	e.register(breakfastFlow())
	e.register(profileFlow())
	e.register(feedbackFlow())
	return e
}

func (e *Engine) register(fl *Flow) { e.flows[fl.Name] = fl }

func userKey(id int64) string { return strconv.FormatInt(id, 10) }

// InFlow reports whether the user currently has an open dialogue.
func (e *Engine) InFlow(userID int64) bool {
	return e.Sessions.InProgress(userID)
}

// Start opens a flow for the user, replacing any session left behind by an
// abandoned dialogue.
func (e *Engine) Start(userID int64, flowName string) ([]Output, error) {
	fl, ok := e.flows[flowName]
	if !ok {
		return nil, nil
	}

	form, entry, outs, err := fl.Start(e, userID)
	if err != nil {
		e.Sessions.Clear(userID)
		return []Output{text(msgInternalError)}, err
	}
	if entry == "" {
		// Refused: guard output only, no session.
		e.Sessions.Clear(userID)
		return outs, nil
	}

	sess := &state.Session{Flow: flowName, Step: entry, Form: form}
	e.Sessions.Put(userID, sess)

	logger.DLG.Debug("flow started",
		slog.String("event", "dialogue.start"),
		slog.Int64("user_id", userID),
		slog.String("flow", flowName),
		slog.String("step", string(entry)),
	)

	step, _ := fl.step(entry)
	return append(outs, step.Prompt(e, form)...), nil
}

// Handle routes one input into the user's open dialogue. The second return
// is false when the user has no session (the caller falls back to menu
// handling).
func (e *Engine) Handle(in Input) ([]Output, bool, error) {
	sess, ok := e.Sessions.Get(in.UserID)
	if !ok {
		return nil, false, nil
	}
	fl, ok := e.flows[sess.Flow]
	if !ok {
		e.Sessions.Clear(in.UserID)
		return nil, false, nil
	}
	step, ok := fl.step(sess.Step)
	if !ok {
		e.Sessions.Clear(in.UserID)
		return nil, false, nil
	}
	form, _ := sess.Form.(*Form)
	if form == nil {
		e.Sessions.Clear(in.UserID)
		return nil, false, nil
	}

	// Global navigation is handled before the step sees the input.
	switch in.Button {
	case btnCancel:
		e.Sessions.Clear(in.UserID)
		return []Output{text(msgCancelled)}, true, nil
	case btnBack:
		return e.goBack(in.UserID, sess, fl, form), true, nil
	}

	res, err := step.Handle(e, in.UserID, form, in)
	if err != nil {
		// The handler already cleared the session if it needed to; make
		// sure no half-open dialogue survives an internal error.
		e.Sessions.Clear(in.UserID)
		logger.DLG.Error("dialogue step failed",
			slog.String("event", "dialogue.error"),
			slog.Int64("user_id", in.UserID),
			slog.String("flow", sess.Flow),
			slog.String("step", string(sess.Step)),
			slog.String("error", err.Error()),
		)
		return append(res.Replies, text(msgInternalError)), true, nil
	}

	outs := res.Replies
	switch {
	case res.Finished:
		// Session already cleared by the handler.
	case res.Back:
		outs = append(outs, e.goBack(in.UserID, sess, fl, form)...)
	case res.Next != "":
		sess.Push(res.Next)
		sess.Form = form
		e.Sessions.Put(in.UserID, sess)
		if next, ok := fl.step(res.Next); ok {
			outs = append(outs, next.Prompt(e, form)...)
		}
	default:
		// Stay on the current step.
		e.Sessions.Put(in.UserID, sess)
	}
	return outs, true, nil
}

func (e *Engine) goBack(userID int64, sess *state.Session, fl *Flow, form *Form) []Output {
	if !sess.Pop() {
		// Back from the first step leaves the flow entirely.
		e.Sessions.Clear(userID)
		return []Output{text(msgCancelled)}
	}
	sess.Form = form
	e.Sessions.Put(userID, sess)
	if step, ok := fl.step(sess.Step); ok {
		return step.Prompt(e, form)
	}
	return nil
}

// Cancel force-closes any open dialogue (used by /start and the main menu).
func (e *Engine) Cancel(userID int64) {
	e.Sessions.Clear(userID)
}
