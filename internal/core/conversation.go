package core

import "strings"

// Phase is the conversation phase of a session.
type Phase int

const (
	// PhaseIdle means no question is waiting for a general-knowledge confirmation.
	PhaseIdle Phase = iota
	// PhaseAwaitingConfirmation means Question was asked without usable context and the
	// user was offered a general-knowledge answer.
	PhaseAwaitingConfirmation
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingConfirmation:
		return "awaiting_confirmation"
	default:
		return "idle"
	}
}

// State is the conversation state of one session. The zero value is Idle.
type State struct {
	Phase    Phase  `json:"phase"`
	Question string `json:"question,omitempty"`
}

func Idle() State {
	return State{Phase: PhaseIdle}
}

func AwaitingConfirmation(question string) State {
	return State{Phase: PhaseAwaitingConfirmation, Question: question}
}

func (s State) Pending() (string, bool) {
	if s.Phase != PhaseAwaitingConfirmation {
		return "", false
	}
	return s.Question, true
}

// confirmations are accepted replies to the general-knowledge offer.
var confirmations = map[string]struct{}{
	"yes":  {},
	"yeah": {},
	"okay": {},
	"ok":   {},
	"sure": {},
	"yup":  {},
}

// IsConfirmation reports whether input is one of the confirmation words, ignoring
// case and surrounding whitespace.
func IsConfirmation(input string) bool {
	_, ok := confirmations[strings.ToLower(strings.TrimSpace(input))]
	return ok
}

const (
	unhelpfulMarker = "does not contain any information"
	minAnswerWords  = 5
)

// IsUnsatisfactory reports whether a contextual answer should be replaced by the
// general-knowledge offer.
func IsUnsatisfactory(answer string) bool {
	if strings.Contains(strings.ToLower(answer), unhelpfulMarker) {
		return true
	}
	return len(strings.Fields(answer)) < minAnswerWords
}

// HasUsableContext reports whether at least one retrieved chunk is non-blank.
func HasUsableContext(chunks []string) bool {
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			return true
		}
	}
	return false
}

// Action is what the composer does with one user input.
type Action int

const (
	// ActionGeneralKnowledge answers the pending question without retrieval.
	ActionGeneralKnowledge Action = iota
	// ActionRetrieve runs retrieval for the input itself.
	ActionRetrieve
)

// Decide picks the action for input in state s. A confirmation with no pending
// question is an ordinary query.
func Decide(s State, input string) Action {
	if _, ok := s.Pending(); ok && IsConfirmation(input) {
		return ActionGeneralKnowledge
	}
	return ActionRetrieve
}

// AfterGeneralKnowledge is the state once the pending question has been answered.
func AfterGeneralKnowledge(State) State {
	return Idle()
}

// AfterNoContext is the state once input found no usable context.
func AfterNoContext(_ State, input string) State {
	return AwaitingConfirmation(input)
}

// AfterContextAnswer is the state once input was answered from context. An
// unsatisfactory answer makes input the pending question; a satisfactory one clears
// any older pending question.
func AfterContextAnswer(_ State, input, answer string) (State, bool) {
	if IsUnsatisfactory(answer) {
		return AwaitingConfirmation(input), false
	}
	return Idle(), true
}
