// Package workflow implements the government reply protocol for issues: which
// replies an official may append, what each reply permits afterwards, and how
// citizens answer followup replies.
package workflow

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"citizenconnect/apperrors"
	"citizenconnect/models"
)

// State is the position of an issue in the reply sub-protocol.
type State string

const (
	NoReply         State = "no_reply"
	RepliedOpen     State = "replied_open"
	RepliedTerminal State = "replied_terminal"
)

const machineID = "reply-workflow"

const (
	stateNoReply  statekit.StateID = statekit.StateID(NoReply)
	stateOpen     statekit.StateID = statekit.StateID(RepliedOpen)
	stateTerminal statekit.StateID = statekit.StateID(RepliedTerminal)
)

const (
	eventProgress = "PROGRESS"
	eventFollowUp = "FOLLOWUP"
	eventResolve  = "RESOLVE"
	eventEscalate = "ESCALATE"
)

// machineContext counts the replies accepted by one interpreter run.
type machineContext struct {
	Accepted int
}

func countReply(ctx **machineContext, _ statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	(*ctx).Accepted++
}

func newReplyMachine() (*statekit.MachineConfig[*machineContext], error) {
	return statekit.NewMachine[*machineContext](machineID).
		WithInitial(stateNoReply).
		WithContext(&machineContext{}).
		WithAction("countReply", countReply).
		State(stateNoReply).
			On(eventProgress).Target(stateOpen).Do("countReply").
			On(eventFollowUp).Target(stateOpen).Do("countReply").
			On(eventResolve).Target(stateTerminal).Do("countReply").
			On(eventEscalate).Target(stateTerminal).Do("countReply").
			Done().
		State(stateOpen).
			On(eventProgress).Target(stateOpen).Do("countReply").
			On(eventFollowUp).Target(stateOpen).Do("countReply").
			On(eventResolve).Target(stateTerminal).Do("countReply").
			On(eventEscalate).Target(stateTerminal).Do("countReply").
			Done().
		State(stateTerminal).
			Final().
			Done().
		Build()
}

func eventFor(t models.ReplyType) statekit.EventType {
	switch t {
	case models.ReplyProgress:
		return eventProgress
	case models.ReplyFollowUp:
		return eventFollowUp
	case models.ReplyResolve:
		return eventResolve
	default:
		return eventEscalate
	}
}

// Engine drives the reply statechart. It holds no per-issue state and is
// safe for concurrent use.
type Engine struct {
	machine *statekit.MachineConfig[*machineContext]
}

// NewEngine builds the reply statechart.
func NewEngine() (*Engine, error) {
	m, err := newReplyMachine()
	if err != nil {
		return nil, fmt.Errorf("failed to build reply machine: %w", err)
	}
	return &Engine{machine: m}, nil
}

// Next returns the state reached by appending a reply of type t in state from.
func (e *Engine) Next(from State, t models.ReplyType) (State, error) {
	if !t.Valid() {
		return from, &apperrors.ValidationError{Fields: map[string]string{"replyType": "unknown reply type"}}
	}
	if from == RepliedTerminal {
		return from, apperrors.ErrRepliesClosed
	}

	mctx := &machineContext{}
	interp := statekit.NewInterpreter(e.machine)
	interp.UpdateContext(func(c **machineContext) {
		*c = mctx
	})
	defer interp.Stop()

	snapshot := statekit.Snapshot[*machineContext]{
		MachineID:    machineID,
		CurrentState: statekit.StateID(from),
		Context:      mctx,
		CreatedAt:    time.Now(),
	}
	if err := interp.Restore(snapshot); err != nil {
		return from, fmt.Errorf("failed to restore reply state %s: %w", from, err)
	}

	interp.Send(statekit.Event{Type: eventFor(t)})

	if mctx.Accepted != 1 {
		return from, fmt.Errorf("reply %s not accepted in state %s", t, from)
	}
	return State(interp.State().Value), nil
}

// StateOf derives the reply state from an issue's reply list. Only the last
// reply matters.
func StateOf(replies []models.GovernmentReply) State {
	if len(replies) == 0 {
		return NoReply
	}
	if AllowsFurtherReplies(replies[len(replies)-1].ReplyType) {
		return RepliedOpen
	}
	return RepliedTerminal
}
