// Package user holds the portal's user records as the share dialog sees
// them: a searchable, paginated, remote-backed collection.
package user

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/raveportal/pageshare/internal/bind"
)

// AttrID is the attribute holding a user's identifier.
const AttrID = "id"

// User is a single portal user as returned by listUsers or searchUsers.
// Beyond an "id" its attributes are whatever display fields the portal
// sends (username, displayName, email, ...).
type User struct {
	*bind.Model
}

// New builds a user from a remote record. A numeric "id" is normalized to
// int64 so lookups against page membership compare like with like.
func New(attrs map[string]any) *User {
	m := bind.NewModel(attrs)
	if id, ok := IDOf(attrs[AttrID]); ok {
		m.Set(AttrID, id, bind.Silent())
	}
	return &User{Model: m}
}

// ID returns the user's identifier and whether it was present.
func (u *User) ID() (int64, bool) {
	return IDOf(u.Get(AttrID))
}

// IDOf converts the identifier shapes seen in records, JSON and DOM data
// attributes into an int64.
func IDOf(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int64(t), true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
