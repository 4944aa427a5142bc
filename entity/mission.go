package entity

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/toni86moon/telegram-bot/lib/validate"
)

// ActionType enumerates the social actions a mission can require.
type ActionType string

const (
	ActionLike    ActionType = "like"
	ActionComment ActionType = "comment"
	ActionFollow  ActionType = "follow"
)

func AllActionTypes() []ActionType {
	return []ActionType{ActionLike, ActionComment, ActionFollow}
}

func (a ActionType) IsValid() bool {
	switch a {
	case ActionLike, ActionComment, ActionFollow:
		return true
	}
	return false
}

// ParseActionType accepts the user-typed form ("like", "COMMENT", ...).
func ParseActionType(s string) (ActionType, error) {
	a := ActionType(strings.ToLower(strings.TrimSpace(s)))
	if !a.IsValid() {
		return "", fmt.Errorf("%w: action type %q", ErrInvalidArgument, s)
	}
	return a, nil
}

// Mission is a social action on a target resource that a user can complete
// for a reward. Missions are soft-disabled via Active, never deleted.
type Mission struct {
	Id        int64      `json:"id"`
	Type      ActionType `json:"type" validate:"required,oneof=like comment follow"`
	TargetRef string     `json:"target_ref" validate:"required,min=1"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
}

func (m *Mission) Bind(_ *http.Request) error {
	return validate.Struct(m)
}
