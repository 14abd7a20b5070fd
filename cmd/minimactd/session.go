package main

import (
	"context"
	"fmt"
	"log"
	"reflect"

	"github.com/minimact/minimact-sub000"
	"github.com/minimact/minimact-sub000/internal/hostauth"
)

// actionMessage is the wire shape of a client-originated action, grounded
// on the teacher's ActionMessage (application.go): a type discriminator,
// an action name, and the component-instance token that authorizes it.
type actionMessage struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Token  string `json:"token"`
}

// session is one live counter component instance: the demo's entire
// "host" side of the contract in spec §6.1 — it owns the state, the
// render() callback, and the last rendered tree the Core's Predict/Learn
// calls are adjusted against.
type session struct {
	id        string
	component *minimact.Component
	claims    *hostauth.ComponentToken

	state    counterState
	lastTree *minimact.VNode

	logger *log.Logger
}

func newSession(id string, component *minimact.Component, claims *hostauth.ComponentToken, logger *log.Logger) (*session, error) {
	tree, err := renderTree(counterState{Count: 0})
	if err != nil {
		return nil, fmt.Errorf("minimactd: initial render: %w", err)
	}
	return &session{id: id, component: component, claims: claims, state: counterState{Count: 0}, lastTree: tree, logger: logger}, nil
}

// handleAction applies one client action end to end: speculative predict,
// authoritative learn, and the confirm/refute feedback loop (spec §2's
// full control-flow diagram), returning the DOM-space patches the
// transport should send.
func (s *session) handleAction(_ context.Context, msg actionMessage) ([]minimact.Patch, error) {
	next := s.state
	switch msg.Action {
	case "increment":
		next.Count++
	case "decrement":
		next.Count--
	default:
		return nil, fmt.Errorf("minimactd: unknown action %q", msg.Action)
	}

	change := minimact.StateChange{
		ComponentID: s.id,
		StateKey:    "count",
		OldValue:    s.state.Count,
		NewValue:    next.Count,
	}
	allState := map[string]any{"count": next.Count}

	speculative, predicted, err := s.component.Predict(change, allState, s.lastTree)
	if err != nil {
		s.logger.Printf("session %s: predict error: %v", s.id, err)
	}

	nextTree, err := renderTree(next)
	if err != nil {
		return nil, fmt.Errorf("minimactd: render: %w", err)
	}

	patches, err := s.component.Learn(change, s.lastTree, nextTree, allState, nil)
	if err != nil {
		return nil, fmt.Errorf("minimactd: learn: %w", err)
	}

	if predicted {
		if reflect.DeepEqual(speculative, patches) {
			s.component.Confirm(change)
		} else {
			s.component.Refute(change)
		}
	}

	s.state = next
	s.lastTree = nextTree
	return patches, nil
}
