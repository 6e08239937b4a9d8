package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rewrz/word-soul/internal/model"
)

// Turn engine states.
type TurnState int

const (
	// StateIdle accepts new submissions.
	StateIdle TurnState = iota
	// StateSubmitting has a turn in flight; further submissions are
	// rejected until it resolves.
	StateSubmitting
	// StateRetryAvailable follows a failed turn; the last action is held
	// for an explicit retry.
	StateRetryAvailable
)

var (
	// ErrEmptyAction rejects blank input before any network call.
	ErrEmptyAction = errors.New("action must not be empty")

	// ErrTurnInFlight rejects a submission while another is unresolved.
	ErrTurnInFlight = errors.New("a turn is already in flight")

	// ErrNothingToRetry means Retry was called without a failed turn.
	ErrNothingToRetry = errors.New("no failed action to retry")
)

const composingPlaceholder = "叙事者正在构思..."

// TurnEngine drives the action-submission state machine for one session:
// optimistic history entries, the in-flight gate, merge of the narrator's
// reply, and manual retry of the last failed action. Not safe for
// concurrent use; callers serialize through a single goroutine.
type TurnEngine struct {
	client    *Client
	sessionID int64
	history   *History

	state      TurnState
	lastAction string
	worldName  string
	current    model.CurrentState
	choices    []NormalizedChoice

	onChange func()
}

// NewTurnEngine creates an engine for the given session
func NewTurnEngine(c *Client, sessionID int64) *TurnEngine {
	return &TurnEngine{
		client:    c,
		sessionID: sessionID,
		history:   NewHistory(),
	}
}

// OnChange registers a hook run after every externally visible mutation,
// so a presentation layer can re-render without polling.
func (e *TurnEngine) OnChange(fn func()) {
	e.onChange = fn
}

func (e *TurnEngine) State() TurnState { return e.state }

func (e *TurnEngine) History() *History { return e.history }

func (e *TurnEngine) Choices() []NormalizedChoice { return e.choices }

func (e *TurnEngine) CurrentState() model.CurrentState { return e.current }

func (e *TurnEngine) WorldName() string { return e.worldName }

func (e *TurnEngine) LastAction() string { return e.lastAction }

func (e *TurnEngine) SessionID() int64 { return e.sessionID }

// Start loads the session from the server. A brand-new world has no
// history yet, so the engine opens it by looking around.
func (e *TurnEngine) Start(ctx context.Context) error {
	detail, err := e.client.Session(ctx, e.sessionID)
	if err != nil {
		return err
	}

	e.worldName = detail.WorldName
	e.current = detail.CurrentState
	e.history.Load(detail.CurrentState.RecentHistory)
	if last := detail.CurrentState.LastAIResponse; last != nil {
		e.choices = NormalizeChoices(last.SuggestedChoices)
	}
	e.notify()

	if len(detail.CurrentState.RecentHistory) == 0 {
		return e.Submit(ctx, "环顾四周")
	}
	return nil
}

// Submit runs one turn. The player's action appears in the log
// immediately with a composing placeholder below it; on success both are
// replaced by the confirmed turn, on failure both are removed and a
// system message takes their place. The failed action text is preserved
// for Retry, never retyped by the user.
func (e *TurnEngine) Submit(ctx context.Context, action string) error {
	if strings.TrimSpace(action) == "" {
		return ErrEmptyAction
	}
	if e.state == StateSubmitting {
		return ErrTurnInFlight
	}

	e.state = StateSubmitting
	e.lastAction = action
	playerID := e.history.AppendLocal(model.RolePlayer, action)
	placeholderID := e.history.AppendLocal(model.RoleSystem, composingPlaceholder)
	e.notify()

	resp, err := e.client.TakeAction(ctx, e.sessionID, action)

	e.history.RemoveLocal(placeholderID)
	if err != nil {
		e.history.RemoveLocal(playerID)
		e.history.AppendLocal(model.RoleSystem, failureMessage(err))
		e.state = StateRetryAvailable
		e.notify()
		return err
	}

	e.history.CommitTurn(playerID, resp.Description)
	if resp.PlayerMessage != "" {
		e.history.AppendLocal(model.RoleSystem, resp.PlayerMessage)
	}
	if resp.CurrentState != nil {
		// Full replace, not a patch: the server's state is authoritative.
		e.current = *resp.CurrentState
	}
	e.choices = NormalizeChoices(resp.SuggestedChoices)
	e.state = StateIdle
	e.notify()
	return nil
}

// Retry re-submits the exact last attempted action
func (e *TurnEngine) Retry(ctx context.Context) error {
	if e.state != StateRetryAvailable || e.lastAction == "" {
		return ErrNothingToRetry
	}
	return e.Submit(ctx, e.lastAction)
}

// EditNarrative rewrites one narrator entry and syncs it to the server.
// A failed sync keeps the local edit but reports divergence.
func (e *TurnEngine) EditNarrative(ctx context.Context, serverIndex int, content string) error {
	err := e.history.EditByIndex(serverIndex, content, func() error {
		return e.client.UpdateNarrative(ctx, e.sessionID, content, serverIndex)
	})
	if err == nil || errors.Is(err, ErrEditDiverged) {
		e.notify()
	}
	return err
}

func (e *TurnEngine) notify() {
	if e.onChange != nil {
		e.onChange()
	}
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, ErrAuthRejected):
		return "登录已失效，请重新登录。"
	default:
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return fmt.Sprintf("行动未能送达：%s（可重试）", apiErr.Message)
		}
		return fmt.Sprintf("行动未能送达：%v（可重试）", err)
	}
}
