package page

import (
	"errors"
	"fmt"
)

// ErrUnknownAction is returned for share actions outside the fixed set.
var ErrUnknownAction = errors.New("unknown share action")

// Action is one of the share transitions a UI control may request.
type Action string

const (
	ActionAddMember    Action = "addMember"
	ActionRemoveMember Action = "removeMember"
	ActionAddEditor    Action = "addEditor"
	ActionRemoveEditor Action = "removeEditor"
)

// dispatch is the closed table of share actions.
var dispatch = map[Action]func(*Page, int64){
	ActionAddMember:    (*Page).AddMember,
	ActionRemoveMember: (*Page).RemoveMember,
	ActionAddEditor:    (*Page).AddEditor,
	ActionRemoveEditor: (*Page).RemoveEditor,
}

// Actions lists the valid actions.
func Actions() []Action {
	return []Action{ActionAddMember, ActionRemoveMember, ActionAddEditor, ActionRemoveEditor}
}

// ParseAction validates a raw action name.
func ParseAction(name string) (Action, error) {
	a := Action(name)
	if _, ok := dispatch[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return a, nil
}

// Dispatch runs action for userID.
func (p *Page) Dispatch(action Action, userID int64) error {
	fn, ok := dispatch[action]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, string(action))
	}
	fn(p, userID)
	return nil
}
