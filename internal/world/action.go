package world

import (
	"fmt"
	"strings"
)

// Action is the sharing decision an agent commits to at a location.
type Action uint8

const (
	NoShare      Action = iota // Share with no one
	ShareFriends               // Share with friends only
	SharePublic                // Share publicly
)

// NumActions is the number of sharing actions.
const NumActions = 3

// Actions lists every action in enumeration (tie-break) order.
var Actions = [NumActions]Action{NoShare, ShareFriends, SharePublic}

var actionNames = [NumActions]string{"SHARE_NO", "SHARE_FRIENDS", "SHARE_PUBLIC"}

// Valid reports whether a is one of the three sharing actions.
func (a Action) Valid() bool {
	return int(a) < NumActions
}

func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("action(%d)", uint8(a))
	}
	return actionNames[a]
}

// ParseAction accepts the canonical names as well as the short forms
// "no", "friends" and "public".
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "share_no", "no", "none", "0":
		return NoShare, nil
	case "share_friends", "friends", "1":
		return ShareFriends, nil
	case "share_public", "public", "2":
		return SharePublic, nil
	}
	return 0, fmt.Errorf("unknown action %q", s)
}
