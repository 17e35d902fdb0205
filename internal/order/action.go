package order

import (
	"fmt"
	"strings"
)

// Action is a grower batch button.
type Action string

const (
	ActionConfirm Action = "confirm"
	ActionProcess Action = "process"
	ActionShip    Action = "ship"
	ActionDeliver Action = "deliver"
	ActionCancel  Action = "cancel"
)

var actionTargets = map[Action]Status{
	ActionConfirm: StatusConfirmed,
	ActionProcess: StatusProcessing,
	ActionShip:    StatusShipped,
	ActionDeliver: StatusDelivered,
	ActionCancel:  StatusCancelled,
}

func (a Action) Target() (Status, error) {
	st, ok := actionTargets[Action(strings.ToLower(string(a)))]
	if !ok {
		return "", fmt.Errorf("%w: action %q", ErrUnknownStatus, a)
	}
	return st, nil
}

// ResolveTarget accepts either a raw status or a batch action, status first.
func ResolveTarget(status string, action string) (Status, error) {
	if status != "" {
		return ParseStatus(status)
	}
	if action != "" {
		return Action(action).Target()
	}
	return "", fmt.Errorf("%w: status or action required", ErrUnknownStatus)
}
