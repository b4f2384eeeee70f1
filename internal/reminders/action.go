package reminders

import "strings"

// Action identifies which stage of the reminder lifecycle a trigger fires.
type Action string

const (
	ActionFirst      Action = "first"
	ActionSecond     Action = "second"
	ActionEscalation Action = "escalation"
)

// Actions lists every stage in firing order.
func Actions() []Action {
	return []Action{ActionFirst, ActionSecond, ActionEscalation}
}

// ParseAction maps wire text to an Action. It is the only place raw
// action strings are interpreted.
func ParseAction(raw string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionFirst:
		return ActionFirst, true
	case ActionSecond:
		return ActionSecond, true
	case ActionEscalation:
		return ActionEscalation, true
	default:
		return "", false
	}
}

// suffix is the trigger name suffix for the action.
func (a Action) suffix() string {
	switch a {
	case ActionFirst:
		return "r1"
	case ActionSecond:
		return "r2"
	case ActionEscalation:
		return "esc"
	default:
		return ""
	}
}

// sentLabel is the dispatch result detail reported when the action sends.
func (a Action) sentLabel() string {
	switch a {
	case ActionFirst:
		return "r1"
	case ActionSecond:
		return "r2"
	case ActionEscalation:
		return "owner_alert"
	default:
		return ""
	}
}
