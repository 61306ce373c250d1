package checkout

import "fmt"

// State is a step of the checkout state machine.
type State string

const (
	StateCollectingCard         State = "collecting_card"
	StateCreatingPaymentMethod  State = "creating_payment_method"
	StateSubmittingToBackend    State = "submitting_to_backend"
	StateRequiresAction         State = "requires_action"
	StateConfirmingWithProvider State = "confirming_with_provider"
	StateProcessing             State = "processing"
	StateSucceeded              State = "succeeded"
	StateFailed                 State = "failed"
)

var transitions = map[State][]State{
	StateCollectingCard:         {StateCreatingPaymentMethod},
	StateCreatingPaymentMethod:  {StateSubmittingToBackend, StateFailed},
	StateSubmittingToBackend:    {StateSucceeded, StateProcessing, StateRequiresAction, StateFailed},
	StateRequiresAction:         {StateConfirmingWithProvider},
	StateConfirmingWithProvider: {StateSucceeded, StateProcessing, StateFailed},
	StateProcessing:             {StateSucceeded, StateFailed, StateProcessing},
	StateFailed:                 {StateCollectingCard},
}

// IntentStatus is the payment provider's intent status.
type IntentStatus string

const (
	IntentRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentRequiresAction        IntentStatus = "requires_action"
	IntentProcessing            IntentStatus = "processing"
	IntentSucceeded             IntentStatus = "succeeded"
	IntentCanceled              IntentStatus = "canceled"
	IntentFailed                IntentStatus = "failed"
)

// machine records a legal path through the states.
type machine struct {
	state State
	trail []State
	onTo  func(State)
}

func newMachine(start State, onTo func(State)) *machine {
	return &machine{state: start, trail: []State{start}, onTo: onTo}
}

func (m *machine) to(next State) error {
	for _, allowed := range transitions[m.state] {
		if allowed == next {
			m.state = next
			m.trail = append(m.trail, next)
			if m.onTo != nil {
				m.onTo(next)
			}
			return nil
		}
	}
	return fmt.Errorf("checkout: illegal transition %s -> %s", m.state, next)
}
