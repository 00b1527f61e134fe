// Package fsm holds the listening session state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle        State = "idle"
	StateListening   State = "listening"
	StateIdentifying State = "identifying"
	StateError       State = "error"
)

const (
	EventStart      Event = "start"
	EventStop       Event = "stop"
	EventCancel     Event = "cancel"
	EventIdentified Event = "identified"
	EventFail       Event = "fail"
	EventReset      Event = "reset"
)

// Transition returns the state reached by applying event to current.
// EventFail is accepted from every state.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StateIdle:
		if event == EventStart {
			return StateListening, nil
		}
	case StateListening:
		switch event {
		case EventStop:
			return StateIdentifying, nil
		case EventCancel:
			return StateIdle, nil
		}
	case StateIdentifying:
		if event == EventIdentified {
			return StateIdle, nil
		}
	case StateError:
		if event == EventReset {
			return StateIdle, nil
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
	return current, invalidTransition(current, event)
}

// Active reports whether a session owns the microphone or is finishing a pass.
func (s State) Active() bool {
	return s == StateListening || s == StateIdentifying
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
